package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/oob"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the local keypair",
	}
	cmd.AddCommand(keysInitCmd(), keysShowCmd(), keysExportCmd(), keysImportCmd(), keysResetCmd())
	return cmd
}

// keys init: create the keypair if missing, or rotate it with --force.
func keysInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the local keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				kp      domain.KeyPair
				created = true
				err     error
			)
			if force {
				kp, err = appCtx.Identity.Generate(cmd.Context())
			} else {
				kp, created, err = appCtx.Identity.Ensure(cmd.Context())
			}
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Keypair created.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Keypair already exists (use --force to replace it).")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", crypto.Fingerprint(kp.PublicKey))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing keypair")
	return cmd
}

// keys show: print the public key so a peer can scan it.
func keysShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the public key and its QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := appCtx.Identity.Load()
			if err != nil {
				return err
			}
			if err := show(cmd.OutOrStdout(), kp.PublicKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", crypto.Fingerprint(kp.PublicKey))
			return nil
		},
	}
	addPNGFlag(cmd)
	return cmd
}

// keys export <contact>: encrypt the private key for another device.
func keysExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <contact>",
		Short: "Encrypt the private key to a contact's public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := appCtx.Contacts.Get(domain.ContactName(args[0]))
			if err != nil {
				return err
			}
			blob, err := appCtx.Identity.Export(cmd.Context(), c.PublicKey)
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), blob)
		},
	}
	addPNGFlag(cmd)
	return cmd
}

// keys import <private-key|@image>: replace the keypair.
func keysImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <private-key|@image>",
		Short: "Replace the local keypair with an imported private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := oob.ReadArgument(args[0])
			if err != nil {
				return err
			}
			kp, err := appCtx.Identity.Import(cmd.Context(), priv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Keypair imported.\nFingerprint: %s\n", crypto.Fingerprint(kp.PublicKey))
			return nil
		},
	}
}

// keys reset: delete the keypair and every contact.
func keysResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the keypair and all contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "Delete the keypair and all contacts?") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := appCtx.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
