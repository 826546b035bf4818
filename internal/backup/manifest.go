package backup

import (
	"time"

	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/store"
)

// Version is the only manifest version this build reads and writes.
const Version = 1

const (
	ManifestName     = "backup.json"
	attachmentPrefix = "attachments/"
)

// Manifest is the JSON document stored as backup.json. Field values are in
// plaintext; confidentiality comes from the archive password.
type Manifest struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Templates  []TemplateEntry `json:"templates,omitempty"`
	Folders    []FolderEntry   `json:"folders"`
	Documents  []DocumentEntry `json:"documents"`
}

type TemplateEntry struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	PinnedOrder *int                 `json:"pinnedOrder,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Fields      []TemplateFieldEntry `json:"fields"`
}

type TemplateFieldEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Ord  int    `json:"ord"`
}

type FolderEntry struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId,omitempty"`
	Name     string  `json:"name"`
	Ord      int     `json:"ord"`
}

type DocumentEntry struct {
	ID           string            `json:"id"`
	TemplateID   *string           `json:"templateId,omitempty"`
	FolderID     *string           `json:"folderId,omitempty"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	IsPinned     bool              `json:"isPinned"`
	PinnedOrder  *int              `json:"pinnedOrder,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	LastOpenedAt time.Time         `json:"lastOpenedAt"`
	Fields       []FieldEntry      `json:"fields"`
	Attachments  []AttachmentEntry `json:"attachments"`
}

type FieldEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	IsSecret bool   `json:"isSecret"`
	Ord      int    `json:"ord"`
}

type AttachmentEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mime      string    `json:"mime"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntryName returns the archive entry name of an attachment.
func EntryName(id, name string) string {
	return attachmentPrefix + id + "_" + SanitizeName(name)
}

// SanitizeName replaces every character outside [A-Za-z0-9._-] with '_'.
func SanitizeName(name string) string {
	out := []byte(name)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "file"
	}
	return string(out)
}

func templatesToManifest(in []models.Template) []TemplateEntry {
	out := make([]TemplateEntry, 0, len(in))
	for _, t := range in {
		e := TemplateEntry{ID: t.ID, Name: t.Name, PinnedOrder: t.PinnedOrder, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
		for _, f := range t.Fields {
			e.Fields = append(e.Fields, TemplateFieldEntry{ID: f.ID, Name: f.Name, Type: string(f.Type), Ord: f.Ord})
		}
		out = append(out, e)
	}
	return out
}

func foldersToManifest(in []models.Folder) []FolderEntry {
	out := make([]FolderEntry, 0, len(in))
	for _, f := range in {
		out = append(out, FolderEntry{ID: f.ID, ParentID: f.ParentID, Name: f.Name, Ord: f.Ord})
	}
	return out
}

func documentToManifest(d models.Document) DocumentEntry {
	e := DocumentEntry{
		ID:           d.ID,
		TemplateID:   d.TemplateID,
		FolderID:     d.FolderID,
		Name:         d.Name,
		Description:  d.Description,
		IsPinned:     d.IsPinned,
		PinnedOrder:  d.PinnedOrder,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastOpenedAt: d.LastOpenedAt,
		Fields:       []FieldEntry{},
		Attachments:  []AttachmentEntry{},
	}
	for _, f := range d.Fields {
		e.Fields = append(e.Fields, FieldEntry{ID: f.ID, Name: f.Name, Value: f.Value, IsSecret: f.IsSecret, Ord: f.Ord})
	}
	return e
}

// toDump converts a manifest to the store's dump. paths maps attachment ids
// to the files they were restored to.
func (m *Manifest) toDump(paths map[string]string) *store.Dump {
	d := &store.Dump{}

	for _, t := range m.Templates {
		tpl := models.Template{ID: t.ID, Name: t.Name, PinnedOrder: t.PinnedOrder, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
		for _, f := range t.Fields {
			tpl.Fields = append(tpl.Fields, models.TemplateField{ID: f.ID, Name: f.Name, Type: models.FieldType(f.Type), Ord: f.Ord})
		}
		d.Templates = append(d.Templates, tpl)
	}

	for _, f := range m.Folders {
		d.Folders = append(d.Folders, models.Folder{ID: f.ID, ParentID: f.ParentID, Name: f.Name, Ord: f.Ord})
	}

	for _, e := range m.Documents {
		doc := models.Document{
			ID:           e.ID,
			TemplateID:   e.TemplateID,
			FolderID:     e.FolderID,
			Name:         e.Name,
			Description:  e.Description,
			IsPinned:     e.IsPinned,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
			LastOpenedAt: e.LastOpenedAt,
		}
		if e.IsPinned {
			doc.PinnedOrder = e.PinnedOrder
			if doc.PinnedOrder == nil {
				last := len(m.Documents) + 1
				doc.PinnedOrder = &last
			}
		}
		for _, f := range e.Fields {
			doc.Fields = append(doc.Fields, models.DocumentField{ID: f.ID, Name: f.Name, Value: f.Value, IsSecret: f.IsSecret, Ord: f.Ord})
		}
		for _, a := range e.Attachments {
			doc.Attachments = append(doc.Attachments, models.Attachment{
				ID:        a.ID,
				Name:      a.Name,
				Mime:      a.Mime,
				Size:      a.Size,
				SHA256:    a.SHA256,
				Path:      paths[a.ID],
				CreatedAt: a.CreatedAt,
			})
		}
		d.Documents = append(d.Documents, doc)
	}
	return d
}

func (m *Manifest) attachmentCount() int {
	n := 0
	for _, d := range m.Documents {
		n += len(d.Attachments)
	}
	return n
}
