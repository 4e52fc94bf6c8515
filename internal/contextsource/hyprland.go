package contextsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

const hyprlandSignatureEnv = "HYPRLAND_INSTANCE_SIGNATURE"

// ErrNoHyprland is returned when the Hyprland event socket cannot be located.
var ErrNoHyprland = errors.New("hyprland session not detected")

// HyprlandSocketPath locates the compositor's event socket for this session.
func HyprlandSocketPath() (string, error) {
	sig := os.Getenv(hyprlandSignatureEnv)
	if sig == "" {
		return "", ErrNoHyprland
	}
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		runtime = filepath.Join("/run/user", fmt.Sprint(os.Getuid()))
	}
	return filepath.Join(runtime, "hypr", sig, ".socket2.sock"), nil
}

// HyprlandSubscriber reads activewindow events from the Hyprland event socket.
type HyprlandSubscriber struct {
	Path string
}

// Subscribe implements Subscriber.
func (h *HyprlandSubscriber) Subscribe(ctx context.Context) (<-chan Focus, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", h.Path)
	if err != nil {
		return nil, fmt.Errorf("hyprland: dial %s: %w", h.Path, err)
	}

	ch := make(chan Focus, 16)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			f, ok := parseHyprlandLine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// parseHyprlandLine decodes "activewindow>>CLASS,TITLE". The class is both
// identifier and display name. Other events and focus moving to no window
// are ignored.
func parseHyprlandLine(line string) (Focus, bool) {
	payload, ok := strings.CutPrefix(line, "activewindow>>")
	if !ok {
		return Focus{}, false
	}
	class, _, _ := strings.Cut(payload, ",")
	class = strings.TrimSpace(class)
	if class == "" {
		return Focus{}, false
	}
	return Focus{Identifier: class, DisplayName: class}, true
}
