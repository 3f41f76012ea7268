package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"qrlink/internal/domain"
)

// Modes accepted by Start.
const (
	ModeInProcess = "inproc"
	ModeProcess   = "process"
)

// Options selects how a worker is started.
type Options struct {
	Mode        string
	Concurrency int
	// Command and Args spawn the child in ModeProcess.
	Command string
	Args    []string
}

// Start launches a worker as described by opts and waits until it is ready.
func Start(ctx context.Context, p domain.CryptoProvider, opts Options) (*Client, error) {
	switch opts.Mode {
	case "", ModeInProcess:
		return StartInProcess(ctx, p, opts.Concurrency)
	case ModeProcess:
		return StartProcess(ctx, opts.Command, opts.Args...)
	default:
		return nil, fmt.Errorf("unknown worker mode %q (want %q or %q)", opts.Mode, ModeInProcess, ModeProcess)
	}
}

// StartInProcess serves p on a goroutine over a pair of pipes.
func StartInProcess(ctx context.Context, p domain.CryptoProvider, concurrency int) (*Client, error) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	srv := NewServer(p, concurrency)

	served := make(chan error, 1)
	go func() {
		err := srv.Serve(context.Background(), reqR, respW)
		_ = reqR.Close()
		_ = respW.Close()
		served <- err
	}()

	c := NewClient(respR, reqW, func() error {
		if err := reqW.Close(); err != nil {
			return err
		}
		return <-served
	})
	if err := c.WaitReady(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// StartProcess spawns command and speaks the protocol over its stdin/stdout.
// An empty command re-executes the running binary, by default as
// `<self> worker`. The child's stderr is passed through.
func StartProcess(ctx context.Context, command string, args ...string) (*Client, error) {
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		command = exe
		if len(args) == 0 {
			args = []string{"worker"}
		}
	}
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	c := NewClient(stdout, stdin, func() error {
		cerr := stdin.Close()
		werr := cmd.Wait()
		return errors.Join(cerr, werr)
	})
	if err := c.WaitReady(ctx); err != nil {
		_ = cmd.Process.Kill()
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
