package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/pitchvote/internal/auth"
	"github.com/abrezinsky/pitchvote/internal/config"
	"github.com/abrezinsky/pitchvote/internal/handlers"
	"github.com/abrezinsky/pitchvote/internal/livestate"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/repository"
	"github.com/abrezinsky/pitchvote/internal/repository/mongostore"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/websocket"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	shutdownTimeout      = 5 * time.Second
)

// Assets are the embedded page templates and static files
type Assets struct {
	Templates fs.FS
	Static    fs.FS
}

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	store    repository.Store
	settings *services.SettingsService
	live     *services.LiveService
	hub      *websocket.Hub
	handlers *handlers.Handlers

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New opens the configured store and wires services, the live state store,
// the stream hub and the HTTP handlers
func New(ctx context.Context, log logger.Logger, cfg *config.Config, assets Assets, adminAuth *auth.Auth) (*App, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, log, cfg, store, assets, adminAuth)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// openStore selects the storage backend
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.StoreSQLite, "":
		return repository.New(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func build(ctx context.Context, log logger.Logger, cfg *config.Config, store repository.Store, assets Assets, adminAuth *auth.Auth) (*App, error) {
	m := metrics.New()

	// Initialize services
	categoryService := services.NewCategoryService(log, store)
	if _, err := categoryService.EnsureDefaultCategories(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}
	settingsService := services.NewSettingsService(log, store)
	pitchService := services.NewPitchService(log, store, m)

	live := livestate.New(log, m)
	if err := live.SetSnapshotter(ctx, settingsService); err != nil {
		log.Warn("Live state snapshot not restored", "error", err)
	}

	// Initialize stream hub with DI
	hub := websocket.New(log, m, live, cfg.Heartbeat)
	hub.Start()
	live.SetPublisher(hub)
	pitchService.SetBroadcaster(hub)
	pitchService.SetLiveState(live)
	categoryService.SetLiveState(live)

	liveService := services.NewLiveService(log, store, live, pitchService)
	resultsService := services.NewResultsService(log, store, live)

	// Initialize handlers with hub
	h, err := handlers.New(
		handlers.Services{
			Pitch:    pitchService,
			Category: categoryService,
			Settings: settingsService,
			Live:     liveService,
			Results:  resultsService,
		},
		assets.Templates,
		handlers.NewStaticServer(assets.Static),
		adminAuth,
		hub,
		log,
		handlers.Options{
			Distribution:    cfg.Distribution,
			PollInterval:    cfg.PollInterval,
			FallbackBaseURL: cfg.AudienceBaseURL(),
			Metrics:         m,
			Health:          store,
		},
	)
	if err != nil {
		hub.Stop()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Expired sessions are purged with a context for graceful shutdown
	purgeCtx, cancel := context.WithCancel(context.Background())
	go purgeSessions(purgeCtx, log, adminAuth, sessionPurgeInterval)

	return &App{
		log:      log,
		cfg:      cfg,
		store:    store,
		settings: settingsService,
		live:     liveService,
		hub:      hub,
		handlers: h,
		cancel:   cancel,
	}, nil
}

func purgeSessions(ctx context.Context, log logger.Logger, a *auth.Auth, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.PurgeExpired(now); n > 0 {
				log.Debug("Purged expired sessions", "count", n, "active", a.ActiveSessions())
			}
		}
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Live returns the live presentation controls
func (a *App) Live() services.LiveServicer {
	return a.live
}

// Close stops background work and releases the store. Safe to call twice.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.hub.Stop()
		if err := a.store.Close(); err != nil {
			a.log.Warn("Failed to close store", "error", err)
		}
	})
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	baseURL := a.cfg.BaseURL
	if baseURL == "" {
		// Use detected LAN IP so phones can reach the server
		ip := getPreferredIP(realNetworkProvider{})
		baseURL = fmt.Sprintf("http://%s%s", ip, addr)
	}
	a.setDefaultBaseURL(baseURL)

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Admin URL", "url", baseURL+"/admin")

	select {
	case err := <-serverErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	// Streams hold connections open; stopping the hub ends them first
	a.hub.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, err := a.settings.GetBaseURL(ctx)
	if err != nil {
		a.log.Warn("Failed to read base URL", "error", err)
		return
	}

	// An explicit configuration always wins
	needsUpdate := existing == "" || strings.Contains(existing, "localhost") || a.cfg.BaseURL != ""
	if !needsUpdate || existing == baseURL {
		return
	}
	if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
		a.log.Warn("Failed to set default base URL", "error", err)
		return
	}
	a.log.Info("Default base URL set", "url", baseURL)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access. Private
// ranges win; localhost is the last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
