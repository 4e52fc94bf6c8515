package models

// ---------------------------------------------------------------------------
// Control API payloads
// ---------------------------------------------------------------------------

// DeviceList is the body of GET /devices.
type DeviceList struct {
	Devices []Device `json:"devices"`
}

// SceneList is the body of GET /scenes.
type SceneList struct {
	Scenes []Scene `json:"scenes"`
}

// SetRequest is the body of POST /device/{name}/set.
type SetRequest struct {
	On         *bool `json:"on,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
}

// ActionResult is returned by device and scene actions. A failed name lookup
// is reported with Success false rather than an HTTP error.
type ActionResult struct {
	Success bool    `json:"success"`
	Device  *Device `json:"device,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// DebugInfo is the body of GET /debug.
type DebugInfo struct {
	DevicesLoaded    int      `json:"devicesLoaded"`
	ScenesLoaded     int      `json:"scenesLoaded"`
	ActiveRules      []string `json:"activeRules"`
	SecurityDegraded bool     `json:"securityDegraded"`
	ContextSource    string   `json:"contextSource"`
	CurrentApp       string   `json:"currentApp,omitempty"`
	Version          string   `json:"version"`
}

// RuleList is the body of GET /rules.
type RuleList struct {
	Rules  []Rule   `json:"rules"`
	Active []string `json:"active"`
}

// ContextResult is the body returned by POST /context.
type ContextResult struct {
	ActiveRules []string `json:"activeRules"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}
