package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"qrlink/internal/app"
	"qrlink/internal/classify"
	"qrlink/internal/protocol/signal"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a peer-to-peer chat",
	}
	cmd.AddCommand(chatOfferCmd(), chatAnswerCmd())
	return cmd
}

// chat offer: show an offer, then read the peer's answer from stdin.
func chatOfferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Start a chat and show the offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := appCtx.Offer(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd, c)
		},
	}
	addPNGFlag(cmd)
	return cmd
}

// chat answer [offer|@image]: answer a scanned offer.
func chatAnswerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer [offer|@image]",
		Short: "Answer a scanned offer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := argOrLine(cmd, args)
			if err != nil {
				return err
			}
			offer, err := signal.ParseDescriptor(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			c, err := appCtx.Answer(cmd.Context(), offer)
			if err != nil {
				return err
			}
			return runChat(cmd, c)
		},
	}
	addPNGFlag(cmd)
	return cmd
}

// runChat shows the local descriptor and pumps stdin and chat events until
// the chat ends. Lines typed before the key exchange are scanned, so the
// initiator can paste the answer. After that they are sent. "/quit" leaves.
func runChat(cmd *cobra.Command, c *app.Chat) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := showLocal(cmd, c); err != nil {
		c.Close()
		return err
	}

	input := make(chan string)
	sc := lines(cmd)
	go func() {
		defer close(input)
		for sc.Scan() {
			input <- sc.Text()
		}
	}()

	ready := false
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()

		case line, ok := <-input:
			if !ok {
				c.Close()
				input = nil
				continue
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/quit":
				c.Close()
			case !ready:
				scanPending(ctx, out, c, line)
			default:
				if err := c.Send(ctx, line); err != nil {
					fmt.Fprintf(out, "! %v\n", err)
				}
			}

		case ev, ok := <-c.Events():
			if !ok {
				return nil
			}
			switch ev.Kind {
			case app.EventConnected:
				fmt.Fprintln(out, "* connected")
			case app.EventDisconnected:
				fmt.Fprintln(out, "* connection interrupted")
			case app.EventChannelOpen:
				fmt.Fprintln(out, "* channel open, exchanging keys")
			case app.EventKeyReady:
				ready = true
				fmt.Fprintln(out, "* ready, type to send, /quit to leave")
			case app.EventMessage:
				if ev.PrivateKey {
					fmt.Fprintln(out, "< (peer sent a private key; use `qrlink keys import` to adopt it)")
				}
				fmt.Fprintf(out, "< %s\n", ev.Text)
			case app.EventUnreadable:
				fmt.Fprintln(out, "! received a message that could not be decrypted")
			case app.EventError:
				fmt.Fprintf(out, "! %v\n", ev.Err)
			case app.EventFailed:
				return fmt.Errorf("chat failed: %w", ev.Err)
			case app.EventClosed:
				fmt.Fprintln(out, "* chat closed")
				return nil
			}
		}
	}
}

// showLocal waits for the offer or answer and displays it.
func showLocal(cmd *cobra.Command, c *app.Chat) error {
	out := cmd.OutOrStdout()
	for {
		select {
		case d := <-c.Local():
			s, err := d.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Show this %s to your peer:\n", d.Type)
			return show(out, s)
		case ev, ok := <-c.Events():
			if !ok {
				return errors.New("chat ended before its descriptor was ready")
			}
			if ev.Kind == app.EventFailed {
				return fmt.Errorf("chat failed: %w", ev.Err)
			}
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}

// scanPending handles a line typed before the key exchange. Descriptors are
// only applied while an offer waits for its answer; a repeated or stray one
// would fail or replace a session that is already negotiating.
func scanPending(ctx context.Context, out io.Writer, c *app.Chat, line string) {
	if appCtx.Classifier.Classify(line).Kind == classify.KindSignal && !c.AwaitingAnswer() {
		fmt.Fprintln(out, "* already negotiated, ignoring descriptor")
		return
	}
	if _, err := appCtx.Scan(ctx, line, app.ScanOptions{}); err != nil {
		fmt.Fprintf(out, "! %v\n", err)
	}
}
