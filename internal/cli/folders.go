package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/cobra"
)

func (a *App) folderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder",
		Aliases: []string{"folders"},
		Short:   "Manage folders",
	}

	var parent string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			f, err := v.CreateFolder(ctx, args[0], optional(parent))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, f.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&parent, "parent", "", "parent folder id")

	var moveTo string
	mv := &cobra.Command{
		Use:   "mv <id>",
		Short: "Move a folder under another folder, or to the top level",
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
			return v.MoveFolder(ctx, args[0], optional(moveTo))
		}),
	}
	mv.Flags().StringVar(&moveTo, "parent", "", "new parent folder id; empty moves to the top level")

	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "Show the folder tree with document counts",
			Args:    cobra.NoArgs,
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
				tree, err := v.FolderTree(ctx)
				if err != nil {
					return err
				}
				if len(tree) == 0 {
					fmt.Fprintln(a.out, "No folders.")
				}
				printTree(a.out, tree, 0)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a folder",
			Args:  cobra.ExactArgs(2),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.RenameFolder(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a folder; its contents move to its parent",
			Args:  cobra.ExactArgs(1),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.DeleteFolder(ctx, args[0])
			}),
		},
		mv,
	)
	return cmd
}

func (a *App) templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Inspect and pin document templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List templates, pinned first",
			Args:    cobra.NoArgs,
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
				list, err := v.ListTemplates(ctx)
				if err != nil {
					return err
				}
				printTemplates(a.out, list)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "pin <id>",
			Short: "Pin a template",
			Args:  cobra.ExactArgs(1),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.SetTemplatePinned(ctx, args[0], true)
			}),
		},
		&cobra.Command{
			Use:   "unpin <id>",
			Short: "Unpin a template",
			Args:  cobra.ExactArgs(1),
			RunE: a.withVault(func(ctx context.Context, v *services.Vault, args []string) error {
				return v.SetTemplatePinned(ctx, args[0], false)
			}),
		},
	)
	return cmd
}
