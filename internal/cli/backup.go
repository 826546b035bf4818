package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/backup"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/cobra"
)

func (a *App) backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export, import and inspect vault archives",
	}

	var (
		dir     string
		encrypt bool
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the whole vault to a ZIP archive",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			password := ""
			if encrypt {
				pw, err := GetNewSecret(a.in, "Backup password", a.errOut)
				if err != nil {
					return err
				}
				password = string(pw)
				common.WipeByteArray(pw)
			}

			res, err := v.ExportBackup(ctx, dir, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Path)
			fmt.Fprintf(a.out, "documents: %d  attachments: %d  encrypted: %t\n", res.Documents, res.Attachments, res.Encrypted)
			if res.Skipped > 0 {
				fmt.Fprintf(a.errOut, "Warning: %d attachment files were missing and not exported.\n", res.Skipped)
			}
			return nil
		}),
	}
	export.Flags().StringVar(&dir, "dir", ".", "directory to write the archive to")
	export.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "protect the archive with a password")

	var yes bool
	imp := &cobra.Command{
		Use:   "import <archive>",
		Short: "Replace the vault contents with an archive",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			info, password, err := a.inspect(ctx, v.InspectBackup, args[0])
			if err != nil {
				return err
			}

			if !yes {
				q := fmt.Sprintf("Replace every document in this vault with the %d documents from the archive?", info.Documents)
				ok, err := Confirm(a.in, q, a.errOut)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Aborted.")
					return nil
				}
			}

			res, err := v.ImportBackup(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "documents: %d  folders: %d  attachments: %d\n", res.Documents, res.Folders, res.Attachments)
			return nil
		}),
	}
	imp.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	inspect := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Describe an archive without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := backup.NewManager(nil, nil, "", a.logger)
			info, _, err := a.inspect(cmd.Context(), mgr.Inspect, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "version: %d\nexported: %s\nencrypted: %t\ndocuments: %d\nattachments: %d\n",
				info.Version, formatTime(info.ExportedAt), info.Encrypted, info.Documents, info.Attachments)
			return nil
		},
	}

	cmd.AddCommand(export, imp, inspect)
	return cmd
}

type inspectFunc func(ctx context.Context, path, password string) (*backup.Inspection, error)

// inspect reads the archive manifest, asking for the password when the
// archive is encrypted. It returns the password that worked.
func (a *App) inspect(ctx context.Context, fn inspectFunc, path string) (*backup.Inspection, string, error) {
	info, err := fn(ctx, path, "")
	if !errors.Is(err, common.ErrPasswordRequired) {
		return info, "", err
	}

	pw, err := GetSecret(a.in, "Backup password", a.errOut)
	if err != nil {
		return nil, "", err
	}
	password := string(pw)
	common.WipeByteArray(pw)

	info, err = fn(ctx, path, password)
	if err != nil {
		return nil, "", err
	}
	return info, password, nil
}
