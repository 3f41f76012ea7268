package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"qrlink/internal/domain"
)

// seal <contact> <message...>: encrypt a one-shot message and show it as a QR code.
func sealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal <contact> <message...>",
		Short: "Encrypt a message for a contact",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := appCtx.Messages.Seal(cmd.Context(), domain.ContactName(args[0]), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), ct)
		},
	}
	addPNGFlag(cmd)
	return cmd
}
