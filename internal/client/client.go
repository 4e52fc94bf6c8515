// Package client talks to the daemon's local control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-ports/homie/internal/models"
)

const (
	// DefaultBaseURL is where the daemon listens unless configured otherwise.
	DefaultBaseURL = "http://127.0.0.1:8420"

	// EnvBaseURL overrides DefaultBaseURL.
	EnvBaseURL = "HOMIE_API"

	// RequestTimeout bounds a single HTTP exchange.
	RequestTimeout = 10 * time.Second

	// WaitTimeout bounds a whole client call.
	WaitTimeout = 15 * time.Second
)

// ErrUnreachable wraps transport failures: refused connections, timeouts and
// undecodable responses.
var ErrUnreachable = errors.New("control API unreachable")

// APIError is a request the daemon answered but rejected, either with a
// non-2xx status or with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client is a control API client.
type Client struct {
	BaseURL string
	http    *http.Client
}

// New returns a client for baseURL. An empty baseURL resolves through
// ResolveBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = ResolveBaseURL("")
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: RequestTimeout},
	}
}

// ResolveBaseURL picks flag, then $HOMIE_API, then DefaultBaseURL.
func ResolveBaseURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvBaseURL); env != "" {
		return env
	}
	return DefaultBaseURL
}

// ---------------------------------------------------------------------------
// Devices and scenes
// ---------------------------------------------------------------------------

// Devices lists every device.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var out models.DeviceList
	if err := c.do(ctx, http.MethodGet, "/devices", nil, &out); err != nil {
		return nil, fmt.Errorf("client.Devices: %w", err)
	}
	return out.Devices, nil
}

// Scenes lists every scene.
func (c *Client) Scenes(ctx context.Context) ([]models.Scene, error) {
	var out models.SceneList
	if err := c.do(ctx, http.MethodGet, "/scenes", nil, &out); err != nil {
		return nil, fmt.Errorf("client.Scenes: %w", err)
	}
	return out.Scenes, nil
}

// Device fetches one device by (fuzzy) name.
func (c *Client) Device(ctx context.Context, name string) (models.Device, error) {
	var out models.Device
	if err := c.do(ctx, http.MethodGet, "/device/"+url.PathEscape(name), nil, &out); err != nil {
		return models.Device{}, fmt.Errorf("client.Device: %w", err)
	}
	return out, nil
}

// Toggle flips a device's power.
func (c *Client) Toggle(ctx context.Context, name string) (models.Device, error) {
	return c.action(ctx, "/device/"+url.PathEscape(name)+"/toggle", nil)
}

// Set changes a device's power and/or brightness.
func (c *Client) Set(ctx context.Context, name string, on *bool, brightness *int) (models.Device, error) {
	return c.action(ctx, "/device/"+url.PathEscape(name)+"/set", models.SetRequest{On: on, Brightness: brightness})
}

// TriggerScene runs a scene by (fuzzy) name.
func (c *Client) TriggerScene(ctx context.Context, name string) error {
	_, err := c.action(ctx, "/scene/"+url.PathEscape(name)+"/trigger", nil)
	return err
}

func (c *Client) action(ctx context.Context, path string, body any) (models.Device, error) {
	var out models.ActionResult
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return models.Device{}, err
	}
	if !out.Success {
		return models.Device{}, &APIError{Status: http.StatusOK, Message: out.Error}
	}
	if out.Device == nil {
		return models.Device{}, nil
	}
	return *out.Device, nil
}

// Debug returns daemon diagnostics.
func (c *Client) Debug(ctx context.Context) (models.DebugInfo, error) {
	var out models.DebugInfo
	if err := c.do(ctx, http.MethodGet, "/debug", nil, &out); err != nil {
		return models.DebugInfo{}, fmt.Errorf("client.Debug: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// Rules lists rules and the ids of those currently active.
func (c *Client) Rules(ctx context.Context) (models.RuleList, error) {
	var out models.RuleList
	if err := c.do(ctx, http.MethodGet, "/rules", nil, &out); err != nil {
		return models.RuleList{}, fmt.Errorf("client.Rules: %w", err)
	}
	return out, nil
}

// AddRule creates a rule and returns it with its assigned id.
func (c *Client) AddRule(ctx context.Context, r models.Rule) (models.Rule, error) {
	var out models.Rule
	if err := c.do(ctx, http.MethodPost, "/rules", r, &out); err != nil {
		return models.Rule{}, fmt.Errorf("client.AddRule: %w", err)
	}
	return out, nil
}

// UpdateRule replaces the rule with r.ID.
func (c *Client) UpdateRule(ctx context.Context, r models.Rule) (models.Rule, error) {
	var out models.Rule
	if err := c.do(ctx, http.MethodPut, "/rules/"+url.PathEscape(r.ID), r, &out); err != nil {
		return models.Rule{}, fmt.Errorf("client.UpdateRule: %w", err)
	}
	return out, nil
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/rules/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteRule: %w", err)
	}
	return nil
}

// InjectContext evaluates rules against a synthetic context event.
func (c *Client) InjectContext(ctx context.Context, ev models.ContextEvent) ([]string, error) {
	var out models.ContextResult
	if err := c.do(ctx, http.MethodPost, "/context", ev, &out); err != nil {
		return nil, fmt.Errorf("client.InjectContext: %w", err)
	}
	return out.ActiveRules, nil
}

// ---------------------------------------------------------------------------
// transport
// ---------------------------------------------------------------------------

// do executes a JSON request bounded by WaitTimeout. Pass nil body for
// requests without one and nil out to discard the response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, WaitTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req) // #nosec G704 -- URL is the operator-configured local API
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var eb models.ErrorBody
		if json.Unmarshal(snippet, &eb) == nil && eb.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: eb.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode: %w", ErrUnreachable, err)
		}
	}
	return nil
}
