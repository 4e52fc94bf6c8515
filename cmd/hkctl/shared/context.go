// Package shared holds the context and output helpers used by every hkctl
// command.
package shared

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-ports/homie/internal/client"
)

// ConnectFailure is printed when the daemon can't be reached.
const ConnectFailure = "Failed to connect to Homie. Is the app running?"

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// API overrides the control API base URL.
	// When empty, resolution falls through to HOMIE_API env var → http://127.0.0.1:8420.
	API string
}

// Client returns a control API client for the resolved base URL.
func (c *Context) Client() *client.Client {
	return client.New(client.ResolveBaseURL(c.API))
}

// Failure turns a client error into the message shown to the user.
// Unreachable daemons get ConnectFailure, rejected requests the daemon's own
// message, anything else fallback.
func Failure(err error, fallback string) error {
	if errors.Is(err, client.ErrUnreachable) {
		return errors.New("❌ " + ConnectFailure)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New("❌ " + apiErr.Message)
	}
	return errors.New("❌ " + fallback)
}

// Success prints a ✅ line.
func Success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "✅ "+format+"\n", args...)
}

// OnOff renders a power state the way every command shows it.
func OnOff(on bool) string {
	if on {
		return "ON 🟢"
	}
	return "OFF ⚪️"
}

// JoinedName returns an Args validator requiring at least one word and a
// usage line shown when none is given.
func JoinedName(usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("Usage: %s", usage) //nolint:staticcheck // printed verbatim
		}
		return nil
	}
}

// Name joins multi-word names back together.
func Name(args []string) string {
	return strings.Join(args, " ")
}
