package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/config"
	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/cobra"
)

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docvault",
		Short:         "An encrypted personal document vault",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: config.yaml in the data dir)")
	if err := config.BindFlags(a.v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		a.initCmd(),
		a.pinCmd(),
		a.homeCmd(),
		a.docCmd(),
		a.folderCmd(),
		a.templateCmd(),
		a.attachCmd(),
		a.gcCmd(),
		a.verifyCmd(),
		a.backupCmd(),
		a.resetCmd(),
	)
	return root
}

type vaultFunc func(ctx context.Context, v *services.Vault, args []string) error

// withVault unlocks the vault before running fn.
func (a *App) withVault(fn vaultFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		v, err := a.unlock(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, v, args)
	}
}

func (a *App) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a vault and set its PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			set, err := a.session.IsPinSet(ctx)
			if err != nil {
				return err
			}
			if set {
				return common.ErrPinAlreadySet
			}

			pin, err := GetNewSecret(a.in, "New PIN", a.errOut)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pin)

			v, err := a.session.Open(ctx, pin, true)
			if errors.Is(err, common.ErrDatabaseRecreated) {
				fmt.Fprintln(a.errOut, "Warning:", common.UserMessage(err))
			} else if err != nil {
				return err
			}
			tpls, err := v.ListTemplates(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Vault created in %s with %d templates.\n", a.cfg.DataDir, len(tpls))
			return nil
		},
	}
}

func (a *App) pinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the vault PIN",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "change",
		Short: "Change the PIN; stored data is not re-encrypted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			oldPin, err := GetSecret(a.in, "Current PIN", a.errOut)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(oldPin)
			if err := a.session.VerifyPin(ctx, oldPin); err != nil {
				return err
			}

			newPin, err := GetNewSecret(a.in, "New PIN", a.errOut)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(newPin)

			if err := a.session.ChangePin(ctx, oldPin, newPin); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "PIN changed.")
			return nil
		},
	})
	return cmd
}

func (a *App) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase the vault: PIN, key, database and attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := Confirm(a.in, "This permanently erases every document. Continue?", a.errOut)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Aborted.")
					return nil
				}
			}
			if err := a.session.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Vault erased.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *App) homeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show pinned and recently used documents",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(ctx context.Context, v *services.Vault, _ []string) error {
			snap, err := v.Snapshot(ctx)
			if err != nil {
				return err
			}
			printDocuments(a.out, snap.Home)
			if len(snap.Folders) > 0 {
				fmt.Fprintln(a.out)
				printTree(a.out, snap.Folders, 0)
			}
			return nil
		}),
	}
}
