package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/abrezinsky/pitchvote/internal/auth"
	"github.com/abrezinsky/pitchvote/internal/config"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
)

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.store == nil {
		t.Error("expected store to be initialized")
	}
	if app.cancel == nil {
		t.Error("expected cancel to be set")
	}

	categories, err := app.store.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("failed to list categories: %v", err)
	}
	if len(categories) != len(models.DefaultCategories) {
		t.Errorf("expected %d default categories, got %d", len(models.DefaultCategories), len(categories))
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig("/nonexistent/path/db.sqlite")

	_, err := New(context.Background(), logger.Discard(), cfg, testAssets(), auth.New("test-password"))
	if err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestNew_FailsWithMissingTemplates(t *testing.T) {
	assets := Assets{Templates: fstest.MapFS{}, Static: fstest.MapFS{}}

	_, err := New(context.Background(), logger.Discard(), testConfig(":memory:"), assets, auth.New("test-password"))
	if err == nil {
		t.Error("expected error for missing templates")
	}
}

func TestNew_FailsWithUnknownStore(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.Store = "redis"

	_, err := New(context.Background(), logger.Discard(), cfg, testAssets(), auth.New("test-password"))
	if err == nil {
		t.Error("expected error for unknown store")
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))
	server := httptest.NewServer(app.Router())
	defer server.Close()

	for _, path := range []string{"/admin/login", "/api/categories", "/api/livestate", "/healthz", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("request to %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestApp_RestoresLiveStateAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pitchvote.db")
	ctx := context.Background()

	first := createTestApp(t, testConfig(dbPath))
	state, err := first.Live().Merge(ctx, models.LiveStatePatch{IsLive: models.BoolPtr(true)})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	first.Close()

	second := createTestApp(t, testConfig(dbPath))
	restored := second.Live().State()
	if restored.Version != state.Version || !restored.IsLive || restored.Mode != models.ModePresenting {
		t.Errorf("expected restored state %+v, got %+v", state, restored)
	}

	// Seeding is idempotent across restarts
	categories, _ := second.store.ListCategories(ctx)
	if len(categories) != len(models.DefaultCategories) {
		t.Errorf("expected categories seeded once, got %d", len(categories))
	}
}

func TestApp_Close_IsIdempotent(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))

	app.Close()
	app.Close()
}

func TestApp_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.BaseURL = "http://pitch.example.com"
	app := createTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	baseURL, _ := app.settings.GetBaseURL(context.Background())
	if baseURL != "http://pitch.example.com" {
		t.Errorf("expected configured base URL to be stored, got %q", baseURL)
	}
}

func TestPurgeSessions_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeSessions(ctx, logger.Discard(), auth.New("pw"), time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purgeSessions did not stop")
	}
}

// ==================== Base URL ====================

func TestSetDefaultBaseURL_SetsWhenEmpty(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))

	app.setDefaultBaseURL("http://192.168.1.100:8080")

	val, err := app.settings.GetBaseURL(context.Background())
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if val != "http://192.168.1.100:8080" {
		t.Errorf("expected base URL to be set, got: %s", val)
	}
}

func TestSetDefaultBaseURL_ReplacesLocalhost(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))
	ctx := context.Background()

	if err := app.settings.SetBaseURL(ctx, "http://localhost:8080"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}

	app.setDefaultBaseURL("http://192.168.1.100:8080")

	val, _ := app.settings.GetBaseURL(ctx)
	if val != "http://192.168.1.100:8080" {
		t.Errorf("expected base URL to be replaced, got: %s", val)
	}
}

func TestSetDefaultBaseURL_DoesNotOverwriteValidURL(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))
	ctx := context.Background()

	if err := app.settings.SetBaseURL(ctx, "http://192.168.1.50:8080"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}

	app.setDefaultBaseURL("http://192.168.1.100:8080")

	val, _ := app.settings.GetBaseURL(ctx)
	if val != "http://192.168.1.50:8080" {
		t.Errorf("expected base URL to remain unchanged, got: %s", val)
	}
}

func TestSetDefaultBaseURL_HandlesStoreError(t *testing.T) {
	app := createTestApp(t, testConfig(":memory:"))
	app.store.Close()

	// Should not panic even if the store is closed - just logs a warning
	app.setDefaultBaseURL("http://192.168.1.100:8080")
}

// ==================== Preferred IP ====================

// mockInterface implements networkInterface for testing
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

// mockNetworkProvider implements networkProvider for testing
type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		want     string
	}{
		{
			name:     "network error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			want:     "localhost",
		},
		{
			name: "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, err: net.ErrClosed},
			}},
			want: "localhost",
		},
		{
			name: "interface down",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.10")}},
			}},
			want: "localhost",
		},
		{
			name: "loopback interface",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("192.168.1.10")}},
			}},
			want: "localhost",
		},
		{
			name: "IPAddr type",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
			}},
			want: "192.168.1.100",
		},
		{
			name: "private preferred over public",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.5")}},
			}},
			want: "172.20.0.5",
		},
		{
			name: "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
			}},
			want: "8.8.8.8",
		},
		{
			name: "skips loopback and IPv6 addresses",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("fe80::1"), ipNet("10.0.0.7")}},
			}},
			want: "10.0.0.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.want {
				t.Errorf("getPreferredIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetPreferredIP_RealProvider(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})

	if ip == "" {
		t.Fatal("IP should never be empty")
	}
	if ip != "localhost" {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil {
			t.Errorf("expected IPv4 address or 'localhost', got: %s", ip)
		}
	}
}

// Helper functions

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		Port:         8081,
		DBPath:       dbPath,
		Store:        config.StoreSQLite,
		Distribution: config.DistributionSSE,
		PollInterval: 3 * time.Second,
		Heartbeat:    time.Second,
	}
}

func testAssets() Assets {
	return Assets{
		Templates: fstest.MapFS{
			"layout.html":         &fstest.MapFile{Data: []byte(`{{define "page"}}<html><body>{{template "content" .}}</body></html>{{end}}`)},
			"index.html":          &fstest.MapFile{Data: []byte(`{{define "content"}}Pitches{{end}}`)},
			"live.html":           &fstest.MapFile{Data: []byte(`{{define "content"}}Live{{end}}`)},
			"showcase.html":       &fstest.MapFile{Data: []byte(`{{define "content"}}Showcase{{end}}`)},
			"admin/login.html":    &fstest.MapFile{Data: []byte(`<html><body>Login</body></html>`)},
			"admin/layout.html":   &fstest.MapFile{Data: []byte(`{{define "admin"}}<html><body>{{template "content" .}}</body></html>{{end}}`)},
			"admin/live.html":     &fstest.MapFile{Data: []byte(`{{define "content"}}Live Control{{end}}`)},
			"admin/pitches.html":  &fstest.MapFile{Data: []byte(`{{define "content"}}Pitches{{end}}`)},
			"admin/results.html":  &fstest.MapFile{Data: []byte(`{{define "content"}}Results{{end}}`)},
			"admin/settings.html": &fstest.MapFile{Data: []byte(`{{define "content"}}Settings{{end}}`)},
		},
		Static: fstest.MapFS{},
	}
}

func createTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()

	app, err := New(context.Background(), logger.Discard(), cfg, testAssets(), auth.New("test-password"))
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}
