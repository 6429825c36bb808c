package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/abrezinsky/pitchvote/internal/auth"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services bundles the service layer the handlers call into
type Services struct {
	Pitch    services.PitchServicer
	Category services.CategoryServicer
	Settings services.SettingsServicer
	Live     services.LiveServicer
	Results  services.ResultsServicer
}

// Options carries page and wiring settings
type Options struct {
	// Distribution is the push transport the browser pages use: sse, ws or poll
	Distribution    string
	PollInterval    time.Duration
	FallbackBaseURL string
	Metrics         *metrics.Metrics
	Health          HealthChecker
}

// PageData holds the data passed to audience and admin templates
type PageData struct {
	Title          string
	PageTitle      string
	ActiveNav      string
	Distribution   string
	PollIntervalMs int64
	IsAdmin        bool
	Error          string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index         *template.Template
	Live          *template.Template
	Showcase      *template.Template
	AdminLogin    *template.Template
	AdminLive     *template.Template
	AdminPitches  *template.Template
	AdminResults  *template.Template
	AdminSettings *template.Template
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Pitch        services.PitchServicer
	Category     services.CategoryServicer
	Settings     services.SettingsServicer
	Live         services.LiveServicer
	Results      services.ResultsServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          logger.Logger
	Options      Options
	templates    *Templates
	staticServer http.Handler
}

// New creates a new Handlers instance with all dependencies
func New(
	svc Services,
	templatesFS fs.FS,
	staticServer http.Handler,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log logger.Logger,
	opts Options,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Pitch:        svc.Pitch,
		Category:     svc.Category,
		Settings:     svc.Settings,
		Live:         svc.Live,
		Results:      svc.Results,
		Auth:         adminAuth,
		Hub:          hub,
		Log:          log,
		Options:      opts,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(svc Services) *Handlers {
	// Create a test auth with a known password
	testAuth := auth.New("test-password")
	return &Handlers{
		Pitch:    svc.Pitch,
		Category: svc.Category,
		Settings: svc.Settings,
		Live:     svc.Live,
		Results:  svc.Results,
		Auth:     testAuth,
		Log:      logger.Discard(),
		Options:  Options{Distribution: "sse", PollInterval: 3 * time.Second},
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "layout.html", "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.Live, err = template.ParseFS(templatesFS, "layout.html", "live.html"); err != nil {
		return nil, fmt.Errorf("live template: %w", err)
	}
	if t.Showcase, err = template.ParseFS(templatesFS, "layout.html", "showcase.html"); err != nil {
		return nil, fmt.Errorf("showcase template: %w", err)
	}
	if t.AdminLogin, err = template.ParseFS(templatesFS, "admin/login.html"); err != nil {
		return nil, fmt.Errorf("admin login template: %w", err)
	}
	if t.AdminLive, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/live.html"); err != nil {
		return nil, fmt.Errorf("admin live template: %w", err)
	}
	if t.AdminPitches, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/pitches.html"); err != nil {
		return nil, fmt.Errorf("admin pitches template: %w", err)
	}
	if t.AdminResults, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/results.html"); err != nil {
		return nil, fmt.Errorf("admin results template: %w", err)
	}
	if t.AdminSettings, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/settings.html"); err != nil {
		return nil, fmt.Errorf("admin settings template: %w", err)
	}

	return t, nil
}

// pageData fills the transport settings every page needs
func (h *Handlers) pageData(r *http.Request, title string) PageData {
	return PageData{
		Title:          title,
		PageTitle:      title,
		Distribution:   h.Options.Distribution,
		PollIntervalMs: h.Options.PollInterval.Milliseconds(),
		IsAdmin:        h.Auth.GetSessionFromRequest(r),
	}
}

// render executes a template, logging failures after headers may be sent
func (h *Handlers) render(w http.ResponseWriter, tmpl *template.Template, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.Log.Error("Template render failed", "template", name, "error", err)
	}
}
