// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/dailyfix/lib/secret"
	"golang.org/x/term"
)

// ReadPassword reads a password into a secret.Buffer. An empty
// passwordFile prompts on the terminal with echo disabled, writing the
// prompt to prompt. "-" reads the first line of stdin; anything else
// is a file path. The caller closes the returned buffer.
func ReadPassword(passwordFile string, prompt io.Writer) (*secret.Buffer, error) {
	if passwordFile != "" {
		buffer, err := secret.ReadFromPath(passwordFile)
		if err != nil {
			return nil, Validation("reading password from %s: %w", passwordFile, err)
		}
		return buffer, nil
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, Validation("no terminal available for interactive password prompt (use --password-file)")
	}

	fmt.Fprint(prompt, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, Validation("password is empty")
	}

	buffer, err := secret.NewFromBytes(passwordBytes)
	secret.Zero(passwordBytes)
	if err != nil {
		return nil, Internal("storing password: %w", err)
	}
	return buffer, nil
}
