package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/oob"
)

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "Manage contacts",
	}
	cmd.AddCommand(contactsAddCmd(), contactsListCmd(), contactsRmCmd())
	return cmd
}

func contactsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <public-key|@image>",
		Short: "Store a contact's public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := oob.ReadArgument(args[1])
			if err != nil {
				return err
			}
			if err := appCtx.Contacts.Add(domain.ContactName(args[0]), pub); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", args[0], crypto.Fingerprint(pub))
			return nil
		},
	}
}

func contactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List contacts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := appCtx.Contacts.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no contacts")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFINGERPRINT")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, crypto.Fingerprint(c.PublicKey))
			}
			return tw.Flush()
		},
	}
}

func contactsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Contacts.Delete(domain.ContactName(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
