package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/docvault/internal/models"
)

const timeLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func pinMark(d models.Document) string {
	if d.IsPinned && d.PinnedOrder != nil {
		return fmt.Sprintf("*%d", *d.PinnedOrder)
	}
	return ""
}

func printDocuments(w io.Writer, docs []models.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIN\tNAME\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, pinMark(d), d.Name, formatTime(d.UpdatedAt))
	}
	_ = tw.Flush()
}

func printDocument(w io.Writer, d *models.Document, reveal bool) {
	fmt.Fprintf(w, "%s\n", d.Name)
	if d.Description != "" {
		fmt.Fprintf(w, "%s\n", d.Description)
	}
	fmt.Fprintf(w, "id: %s  created: %s  updated: %s\n", d.ID, formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if mark := pinMark(*d); mark != "" {
		fmt.Fprintf(w, "pinned: %s\n", strings.TrimPrefix(mark, "*"))
	}

	if len(d.Fields) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range d.Fields {
			value := f.Value
			if f.IsSecret && !reveal {
				value = models.Preview(f.Value, true)
			}
			fmt.Fprintf(tw, "%s:\t%s\n", f.Name, value)
		}
		_ = tw.Flush()
	}

	if len(d.Attachments) > 0 {
		fmt.Fprintln(w)
		printAttachments(w, d.Attachments)
	}
}

func printAttachments(w io.Writer, list []models.Attachment) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No attachments.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", a.ID, a.Name, a.Mime, a.Size)
	}
	_ = tw.Flush()
}

func printTree(w io.Writer, nodes []models.FolderNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s (%d)  [%s]\n", strings.Repeat("  ", depth), n.Name, n.Documents, n.ID)
		printTree(w, n.Children, depth+1)
	}
}

func printTemplates(w io.Writer, list []models.Template) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIN\tNAME\tFIELDS")
	for _, t := range list {
		pin := ""
		if t.PinnedOrder != nil {
			pin = fmt.Sprintf("*%d", *t.PinnedOrder)
		}
		names := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			names = append(names, fmt.Sprintf("%s(%s)", f.Name, f.Type))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, pin, t.Name, strings.Join(names, ", "))
	}
	_ = tw.Flush()
}
