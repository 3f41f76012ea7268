package commands

import (
	"os"

	"github.com/spf13/cobra"

	"qrlink/internal/crypto"
	"qrlink/internal/logging"
	"qrlink/internal/worker"
)

// worker: serve the crypto protocol on stdin and stdout for a parent process.
func workerCmd() *cobra.Command {
	var (
		scheme      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Serve crypto requests on stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,

		// The worker has no store or services of its own.
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(v.GetString("log.level"), v.GetString("log.format"), os.Stderr); err != nil {
				return err
			}
			p, err := crypto.New(scheme)
			if err != nil {
				return err
			}
			return worker.NewServer(p, concurrency).Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", crypto.SchemeAge, "crypto scheme")
	cmd.Flags().IntVar(&concurrency, "concurrency", worker.DefaultConcurrency, "parallel requests")
	return cmd
}
