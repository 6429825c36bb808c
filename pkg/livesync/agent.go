// Package livesync is the client side of live-state distribution. An Agent
// reconciles a viewer's page with the server's LiveState; Sources deliver
// that state over an SSE stream, a WebSocket or plain polling.
package livesync

import (
	"sync"

	"github.com/abrezinsky/pitchvote/internal/models"
)

// View is the agent's state machine position
type View string

const (
	ViewIdle       View = "idle"
	ViewPresenting View = "presenting"
	ViewShowcasing View = "showcasing"
)

// Paths the agent navigates audience viewers to
const (
	PathHome     = "/"
	PathLive     = "/live"
	PathShowcase = "/showcase"
)

// Navigator moves the viewer between pages
type Navigator interface {
	// Path returns the page currently shown
	Path() string
	Navigate(path string)
}

// Agent applies received live states in order. It is safe for concurrent
// use, but states must be applied in receipt order to keep that order.
type Agent struct {
	nav   Navigator
	admin bool

	mu          sync.Mutex
	view        View
	current     models.LiveState
	applied     bool
	lastVersion uint64
	onChange    func(models.LiveState)
}

// AgentOption configures an Agent
type AgentOption func(*Agent)

// AsAdmin marks the viewer as an admin console, which is never redirected
func AsAdmin() AgentOption {
	return func(a *Agent) {
		a.admin = true
	}
}

// OnChange registers fn to run after every applied state
func OnChange(fn func(models.LiveState)) AgentOption {
	return func(a *Agent) {
		a.onChange = fn
	}
}

// NewAgent creates an agent in the idle view
func NewAgent(nav Navigator, opts ...AgentOption) *Agent {
	a := &Agent{nav: nav, view: ViewIdle}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// viewFor maps a state onto a view. Showcase wins when both flags are set.
func viewFor(s models.LiveState) View {
	switch s.DeriveMode() {
	case models.ModeShowcasing:
		return ViewShowcasing
	case models.ModePresenting:
		return ViewPresenting
	default:
		return ViewIdle
	}
}

func pathFor(v View) string {
	switch v {
	case ViewShowcasing:
		return PathShowcase
	case ViewPresenting:
		return PathLive
	default:
		return PathHome
	}
}

// Apply reconciles the viewer with s. States older than the last applied
// version of the same epoch are dropped and Apply reports false. A new epoch
// means the server restarted and its versions start over. Re-delivering the
// same state never navigates twice.
func (a *Agent) Apply(s models.LiveState) bool {
	a.mu.Lock()
	if a.applied && s.Epoch == a.current.Epoch && s.Version < a.lastVersion {
		a.mu.Unlock()
		return false
	}

	prev := a.view
	next := viewFor(s)
	s = s.Clone()
	s.Mode = s.DeriveMode()

	a.applied = true
	a.lastVersion = s.Version
	a.current = s
	a.view = next
	onChange := a.onChange
	a.mu.Unlock()

	if next != prev && !a.admin && a.nav != nil {
		if target := pathFor(next); a.nav.Path() != target {
			a.nav.Navigate(target)
		}
	}
	if onChange != nil {
		onChange(s)
	}
	return true
}

// View returns the current view
func (a *Agent) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Current returns the last applied state and whether any has been applied
func (a *Agent) Current() (models.LiveState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Clone(), a.applied
}
