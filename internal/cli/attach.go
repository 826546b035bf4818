package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/cobra"
)

func (a *App) attachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attach",
		Aliases: []string{"attachment", "attachments"},
		Short:   "Manage attachment files",
	}

	var docID string
	add := &cobra.Command{
		Use:   "add <file>",
		Short: "Import a file, optionally attaching it to a document",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			att, err := v.ImportAttachment(ctx, attachments.FileSource{Path: args[0]}, optional(docID))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s  %s  %s  %d bytes\n", att.ID, att.Name, att.Mime, att.Size)
			return nil
		}),
	}
	add.Flags().StringVar(&docID, "doc", "", "document id")

	var orphans bool
	ls := &cobra.Command{
		Use:   "ls [document-id]",
		Short: "List a document's attachments, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			var (
				list []models.Attachment
				err  error
			)
			switch {
			case orphans:
				list, err = v.ListOrphans(ctx)
			case len(args) == 1:
				list, err = v.ListAttachments(ctx, args[0])
			default:
				list, err = v.ListAllAttachments(ctx)
			}
			if err != nil {
				return err
			}
			printAttachments(a.out, list)
			return nil
		}),
	}
	ls.Flags().BoolVar(&orphans, "orphans", false, "only attachments bound to no document")

	var force bool
	get := &cobra.Command{
		Use:   "get <id> [destination]",
		Short: "Copy an attachment out of the vault",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			path, err := a.saveAttachment(ctx, v, args[0], dest, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		}),
	}
	get.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(
		add,
		ls,
		get,
		&cobra.Command{
			Use:   "bind <id> <document-id>",
			Short: "Attach an imported file to a document",
			Args:  cobra.ExactArgs(2),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.BindAttachment(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "detach <id>",
			Short: "Detach a file from its document; gc removes it later",
			Args:  cobra.ExactArgs(1),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.UnbindAttachment(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete an attachment and its file",
			Args:  cobra.ExactArgs(1),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.DeleteAttachment(ctx, args[0])
			}),
		},
	)
	return cmd
}

// saveAttachment writes attachment id to dest. An empty dest or a directory
// uses the attachment's own name.
func (a *App) saveAttachment(ctx context.Context, v *services.Vault, id, dest string, force bool) (string, error) {
	att, rc, err := v.OpenAttachment(ctx, id)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if dest == "" {
		dest = "."
	}
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		dest = filepath.Join(dest, filepath.Base(att.Name))
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(dest, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", usageError{fmt.Errorf("%s already exists; use --force to overwrite", dest)}
		}
		return "", err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

func (a *App) gcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete orphaned attachments and untracked files",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			res, err := v.CollectGarbage(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "orphans: %d  files deleted: %d  records deleted: %d  untracked removed: %d\n",
				res.Orphans, res.DeletedFiles, res.DeletedRecords, res.Untracked)
			for _, f := range res.Failures {
				fmt.Fprintf(a.errOut, "failed: %s (%s): %v\n", f.ID, f.Path, f.Err)
			}
			return nil
		}),
	}
}

func (a *App) verifyCmd() *cobra.Command {
	var hashes, orphansOnly bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that attachment files exist and match their hashes",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			rep, err := v.Verify(ctx, orphansOnly, hashes)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "checked: %d  missing: %d  mismatched: %d\n", rep.Checked, len(rep.Missing), len(rep.Mismatched))
			for _, id := range rep.Missing {
				fmt.Fprintf(a.out, "missing: %s\n", id)
			}
			for _, id := range rep.Mismatched {
				fmt.Fprintf(a.out, "mismatched: %s\n", id)
			}
			if !rep.OK() {
				return common.ErrIntegrityViolation
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&hashes, "hashes", true, "recompute SHA-256 of every file")
	cmd.Flags().BoolVar(&orphansOnly, "orphans", false, "only check orphan attachments")
	return cmd
}
