package contextsource

import (
	"strings"
	"unicode"
)

// KnownApps maps window owner names to stable application identifiers.
var KnownApps = map[string]string{
	"Safari":             "com.apple.Safari",
	"Finder":             "com.apple.finder",
	"Terminal":           "com.apple.Terminal",
	"Mail":               "com.apple.mail",
	"Music":              "com.apple.Music",
	"zoom.us":            "us.zoom.xos",
	"Zoom":               "us.zoom.xos",
	"Slack":              "com.tinyspeck.slackmacgap",
	"Google Chrome":      "com.google.Chrome",
	"Firefox":            "org.mozilla.firefox",
	"firefox":            "org.mozilla.firefox",
	"Code":               "com.microsoft.VSCode",
	"Visual Studio Code": "com.microsoft.VSCode",
	"Spotify":            "com.spotify.client",
	"Adobe Lightroom":    "com.adobe.LightroomClassicCC7",
	"Lightroom":          "com.adobe.LightroomClassicCC7",
	"Microsoft Teams":    "com.microsoft.teams",
	"Discord":            "com.hnc.Discord",
	"obs":                "com.obsproject.obs-studio",
}

// shellOwners are desktop-shell processes that own windows but are never the
// user's foreground application.
var shellOwners = map[string]bool{
	"Window Server":       true,
	"Dock":                true,
	"SystemUIServer":      true,
	"Control Center":      true,
	"Notification Center": true,
	"gnome-shell":         true,
	"plasmashell":         true,
	"xfdesktop":           true,
	"Desktop":             true,
}

// Identify maps a window owner name to an application identifier. Unknown
// names get a "synthetic." identifier derived from the name.
func Identify(ownerName string) string {
	if id, ok := KnownApps[ownerName]; ok {
		return id
	}
	for name, id := range KnownApps {
		if strings.EqualFold(name, ownerName) {
			return id
		}
	}
	return syntheticID(ownerName)
}

func syntheticID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return "synthetic." + b.String()
}
