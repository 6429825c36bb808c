// Package browser opens server pages in the desktop browser
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Pages the console can open, relative to the server root
const (
	PageAdmin    = "/admin"
	PageLive     = "/live"
	PageShowcase = "/showcase"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command without waiting for it
func (RealCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

var defaultCommander Commander = RealCommander{}

// PageURL joins a server base URL and one of the Page constants
func PageURL(baseURL, page string) string {
	return strings.TrimRight(baseURL, "/") + page
}

// Open opens the specified URL in the default browser
func Open(rawURL string) error {
	return OpenWithCommander(rawURL, defaultCommander, runtime.GOOS)
}

// OpenWithCommander opens the URL using the specified commander and OS.
// Only absolute http(s) URLs are handed to the OS opener.
func OpenWithCommander(rawURL string, commander Commander, goos string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}

	var name string
	var args []string

	switch goos {
	case "linux", "freebsd", "openbsd":
		name = "xdg-open"
		args = []string{rawURL}
	case "darwin": // macOS
		name = "open"
		args = []string{rawURL}
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	return commander.Start(name, args...)
}
