package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"qrlink/internal/app"
	"qrlink/internal/classify"
	"qrlink/internal/crypto"
	"qrlink/internal/domain"
)

// scan [input|@image]: classify scanned content and run the matching flow.
func scanCmd() *cobra.Command {
	var (
		name string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "scan [input|@image]",
		Short: "Act on scanned content: offer, answer, key or message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := argOrLine(cmd, args)
			if err != nil {
				return err
			}
			res, err := appCtx.Scan(cmd.Context(), input, scanOptions(cmd, name, yes))
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), res)
			if res.Kind == classify.KindSignal && res.Chat != nil {
				return runChat(cmd, res.Chat)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "contact name for a scanned public key")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import scanned private keys without asking")
	addPNGFlag(cmd)
	return cmd
}

func scanOptions(cmd *cobra.Command, name string, yes bool) app.ScanOptions {
	return app.ScanOptions{
		Name: domain.ContactName(name),
		ConfirmImport: func() bool {
			return yes || confirm(cmd, "Replace the local keypair with the scanned private key?")
		},
	}
}

func report(out io.Writer, res app.ScanResult) {
	switch res.Kind {
	case classify.KindPublicKey:
		fmt.Fprintf(out, "Added contact %s (%s)\n", res.Contact.Name, crypto.Fingerprint(res.Contact.PublicKey))
	case classify.KindPrivateKey:
		reportImport(out, res)
	case classify.KindCiphertext:
		switch {
		case res.Unreadable:
			fmt.Fprintln(out, "Message is not addressed to this keypair.")
		case res.Opened.PrivateKey:
			fmt.Fprintln(out, "Message contains a private key.")
			reportImport(out, res)
		default:
			fmt.Fprintln(out, res.Opened.Plaintext)
		}
	case classify.KindText:
		fmt.Fprintf(out, "Not recognised: %s\n", res.Text)
	}
}

func reportImport(out io.Writer, res app.ScanResult) {
	if res.Imported {
		fmt.Fprintf(out, "Keypair imported.\nFingerprint: %s\n", crypto.Fingerprint(res.Keys.PublicKey))
		return
	}
	fmt.Fprintln(out, "Private key not imported.")
}
