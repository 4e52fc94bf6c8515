package contextsource

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"strconv"
	"strings"
)

// RunFunc runs a program and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// XpropSampler lists X11 windows through the xprop utility.
type XpropSampler struct {
	Run RunFunc
}

// NewXpropSampler returns a sampler that shells out to xprop.
func NewXpropSampler() *XpropSampler {
	return &XpropSampler{Run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Windows implements WindowSampler. The stacking list is bottom-to-top, so it
// is walked in reverse.
func (x *XpropSampler) Windows(ctx context.Context) ([]Window, error) {
	out, err := x.Run(ctx, "xprop", "-root", "_NET_CLIENT_LIST_STACKING")
	if err != nil {
		return nil, err
	}
	ids := parseWindowIDs(string(out))

	windows := make([]Window, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		props, err := x.Run(ctx, "xprop", "-id", ids[i], "WM_CLASS", "_NET_WM_PID")
		if err != nil {
			continue // window vanished between calls
		}
		windows = append(windows, parseWindowProps(string(props)))
	}
	return windows, nil
}

// parseWindowIDs decodes
// "_NET_CLIENT_LIST_STACKING(WINDOW): window id # 0x1e00003, 0x2200007".
func parseWindowIDs(out string) []string {
	_, list, ok := strings.Cut(out, "#")
	if !ok {
		return nil
	}
	var ids []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); strings.HasPrefix(f, "0x") {
			ids = append(ids, f)
		}
	}
	return ids
}

// parseWindowProps decodes WM_CLASS and _NET_WM_PID lines. The owner name is
// the class part of WM_CLASS (its second string).
func parseWindowProps(out string) Window {
	var w Window
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch {
		case strings.HasPrefix(key, "WM_CLASS"):
			parts := strings.Split(val, ",")
			w.OwnerName = strings.Trim(strings.TrimSpace(parts[len(parts)-1]), `"`)
		case strings.HasPrefix(key, "_NET_WM_PID"):
			if pid, err := strconv.Atoi(val); err == nil {
				w.OwnerPID = pid
			}
		}
	}
	return w
}
