package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qrlink/internal/oob"
)

var stdin *bufio.Scanner

// lines returns the shared stdin scanner so prompts and chat input do not
// steal buffered bytes from each other.
func lines(cmd *cobra.Command) *bufio.Scanner {
	if stdin == nil {
		stdin = bufio.NewScanner(cmd.InOrStdin())
	}
	return stdin
}

// confirm asks a yes/no question on stdin. Anything but y or yes declines.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	sc := lines(cmd)
	if !sc.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

// argOrLine resolves the optional scanned-content argument, reading one line
// from stdin when it is missing.
func argOrLine(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return oob.ReadArgument(args[0])
	}
	fmt.Fprint(cmd.OutOrStdout(), "paste: ")
	sc := lines(cmd)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}
	return sc.Text(), nil
}
