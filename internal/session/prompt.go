// ABOUTME: Interactive and static authenticators for the login handshake
// ABOUTME: Terminal prompts read the code visibly and the 2FA password hidden
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalAuthenticator prompts on the controlling terminal for the
// verification code and the optional two-step password
type TerminalAuthenticator struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalAuthenticator prompts on stdin/stderr
func NewTerminalAuthenticator() *TerminalAuthenticator {
	return &TerminalAuthenticator{In: os.Stdin, Out: os.Stderr}
}

// Code reads the verification code sent to the phone
func (a *TerminalAuthenticator) Code(_ context.Context, phone string) (string, error) {
	fmt.Fprintf(a.Out, "Verification code sent to %s\n", phone)
	fmt.Fprint(a.Out, "Enter code: ")
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read verification code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Password reads the two-step verification password without echo when
// stdin is a terminal
func (a *TerminalAuthenticator) Password(_ context.Context) (string, error) {
	fmt.Fprint(a.Out, "Two-step verification password (empty if not set): ")

	if f, ok := a.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// StaticAuthenticator returns fixed values; used for bot tokens, tests and
// pre-authorized session files where no interaction is possible
type StaticAuthenticator struct {
	CodeValue     string
	PasswordValue string
}

func (a *StaticAuthenticator) Code(context.Context, string) (string, error) {
	return a.CodeValue, nil
}

func (a *StaticAuthenticator) Password(context.Context) (string, error) {
	return a.PasswordValue, nil
}
