package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/cobra"
)

type docFlags struct {
	name        string
	description string
	template    string
	folder      string
	pinned      bool
	fields      []string
	secrets     []string
	attach      []string
}

func (f *docFlags) register(cmd *cobra.Command, create bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.name, "name", "n", "", "document name")
	fs.StringVarP(&f.description, "description", "d", "", "description")
	fs.StringVar(&f.folder, "folder", "", "folder id")
	fs.StringArrayVarP(&f.fields, "field", "f", nil, "field as name=value (repeatable)")
	fs.StringArrayVarP(&f.secrets, "secret", "s", nil, "secret field as name=value (repeatable)")
	if create {
		fs.StringVarP(&f.template, "template", "t", "", "template id to take fields from")
		fs.BoolVar(&f.pinned, "pin", false, "pin the document")
		fs.StringArrayVarP(&f.attach, "attach", "a", nil, "file to attach (repeatable)")
	}
}

// apply sets the flagged fields on doc. Existing fields are matched by
// name, case-insensitively.
func (f *docFlags) apply(doc *models.Document) error {
	for _, set := range []struct {
		args   []string
		secret bool
	}{{f.fields, false}, {f.secrets, true}} {
		for _, arg := range set.args {
			name, value, err := ParseField(arg)
			if err != nil {
				return usageError{err}
			}
			setField(doc, name, value, set.secret)
		}
	}
	return nil
}

func setField(doc *models.Document, name, value string, secret bool) {
	for i := range doc.Fields {
		if strings.EqualFold(doc.Fields[i].Name, name) {
			doc.Fields[i].Value = value
			doc.Fields[i].IsSecret = doc.Fields[i].IsSecret || secret
			return
		}
	}
	doc.Fields = append(doc.Fields, models.DocumentField{Name: name, Value: value, IsSecret: secret})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *App) docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"docs", "document"},
		Short:   "Manage documents",
	}
	cmd.AddCommand(
		a.docAddCmd(),
		a.docEditCmd(),
		a.docListCmd(),
		a.docShowCmd(),
		a.docRmCmd(),
		a.docPinCmd("pin", true),
		a.docPinCmd("unpin", false),
		a.docSwapCmd(),
		a.docSearchCmd(),
		a.docMvCmd(),
	)
	return cmd
}

func (a *App) docAddCmd() *cobra.Command {
	var f docFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a document",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			doc := &models.Document{}
			if f.template != "" {
				var err error
				if doc, err = v.NewDocumentFromTemplate(ctx, f.template); err != nil {
					return err
				}
			}
			if f.name != "" {
				doc.Name = f.name
			}
			doc.Description = f.description
			doc.FolderID = optional(f.folder)
			doc.IsPinned = f.pinned
			if err := f.apply(doc); err != nil {
				return err
			}

			ids := make([]string, 0, len(f.attach))
			for _, path := range f.attach {
				att, err := v.ImportAttachment(ctx, attachments.FileSource{Path: path}, nil)
				if err != nil {
					return fmt.Errorf("attach %s: %w", path, err)
				}
				ids = append(ids, att.ID)
			}

			created, err := v.CreateDocument(ctx, *doc, ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, created.ID)
			return nil
		}),
	}
	f.register(cmd, true)
	return cmd
}

func (a *App) docEditCmd() *cobra.Command {
	var f docFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a document's name, description, folder or fields",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			doc, err := v.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			if f.name != "" {
				doc.Name = f.name
			}
			if f.description != "" {
				doc.Description = f.description
			}
			if f.folder != "" {
				doc.FolderID = &f.folder
			}
			if err := f.apply(doc); err != nil {
				return err
			}
			if err := v.UpdateDocument(ctx, *doc); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Updated.")
			return nil
		}),
	}
	f.register(cmd, false)
	return cmd
}

func (a *App) docListCmd() *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents, pinned first",
		Args:    cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			docs, err := v.ListDocuments(ctx, optional(folder))
			if err != nil {
				return err
			}
			printDocuments(a.out, docs)
			return nil
		}),
	}
	cmd.Flags().StringVar(&folder, "folder", "", "only documents in this folder")
	return cmd
}

func (a *App) docShowCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document; secret fields stay masked unless --reveal is given",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			doc, err := v.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			printDocument(a.out, doc, reveal)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secret values")
	return cmd
}

func (a *App) docRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a document; its attachments are removed by the next gc",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			if err := v.DeleteDocument(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted.")
			return nil
		}),
	}
}

func (a *App) docPinCmd(use string, pinned bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a document",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			return v.SetPinned(ctx, args[0], pinned)
		}),
	}
}

func (a *App) docSwapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <id> <id>",
		Short: "Swap the positions of two pinned documents",
		Args:  cobra.ExactArgs(2),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			return v.SwapPinned(ctx, args[0], args[1])
		}),
	}
}

func (a *App) docSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Find documents by name or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			docs, err := v.SearchDocuments(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printDocuments(a.out, docs)
			return nil
		}),
	}
}

func (a *App) docMvCmd() *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "mv <id>",
		Short: "Move a document to a folder, or out of any folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			return v.MoveDocument(ctx, args[0], optional(folder))
		}),
	}
	cmd.Flags().StringVar(&folder, "folder", "", "target folder id; empty moves to the top level")
	return cmd
}
