package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qrlink/internal/app"
	"qrlink/internal/logging"
	"qrlink/internal/oob"
)

var (
	v      *viper.Viper
	appCtx *app.App

	pngPath string
)

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	v = app.NewViper()
	err := newRoot().ExecuteContext(ctx)
	// PersistentPostRunE does not run when a command fails.
	return errors.Join(err, closeApp())
}

func closeApp() error {
	if appCtx == nil {
		return nil
	}
	err := appCtx.Close()
	appCtx = nil
	return err
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "qrlink",
		Short:        "Serverless peer-to-peer encrypted chat bootstrapped over QR codes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(v)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			appCtx, err = app.New(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp()
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "data dir (default ~/.qrlink)")
	pf.StringP("passphrase", "p", "", "passphrase protecting the keypair at rest")
	pf.String("scheme", "", "crypto scheme: age or box")
	pf.String("store", "", "storage backend: file or leveldb")
	pf.String("worker", "", "crypto worker mode: inproc or process")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format: text or json")
	pf.Bool("qr", true, "render QR codes in the terminal")
	bind(pf.Lookup("home"), "home")
	bind(pf.Lookup("passphrase"), "passphrase")
	bind(pf.Lookup("scheme"), "crypto.scheme")
	bind(pf.Lookup("store"), "store.backend")
	bind(pf.Lookup("worker"), "worker.mode")
	bind(pf.Lookup("log-level"), "log.level")
	bind(pf.Lookup("log-format"), "log.format")
	bind(pf.Lookup("qr"), "qr.show")

	root.AddCommand(keysCmd(), contactsCmd(), sealCmd(), scanCmd(), chatCmd(), workerCmd())
	return root
}

// ---------- Output helpers ----------

// show prints content and, depending on configuration, its QR code.
func show(out io.Writer, content string) error {
	if appCtx.Config().QR.Show {
		if err := oob.ShowTerminal(out, content); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, content)
	if pngPath != "" {
		if err := oob.WritePNG(pngPath, content, oob.DefaultPNGSize); err != nil {
			return err
		}
		fmt.Fprintf(out, "QR code written to %s\n", pngPath)
	}
	return nil
}

func addPNGFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pngPath, "png", "", "also write the QR code to this PNG file")
}
