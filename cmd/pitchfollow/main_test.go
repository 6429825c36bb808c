package main

import (
	"io"
	"testing"
	"time"

	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/pkg/livesync"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-server", "http://10.0.0.2:8081", "-transport", "ws", "-poll-interval", "1s", "-dry-run"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if o.server != "http://10.0.0.2:8081" || o.transport != "ws" || o.pollInterval != time.Second || !o.dryRun {
		t.Errorf("unexpected options: %+v", o)
	}
}

func TestNewSyncer_RejectsUnknownTransport(t *testing.T) {
	_, err := newSyncer(options{server: "http://localhost:8081", transport: "smoke"}, logger.Discard())
	if err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestBrowserNavigator_OpensPagesUnderServer(t *testing.T) {
	var opened []string
	nav := &browserNavigator{
		baseURL: "http://10.0.0.2:8081/",
		open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
		log: logger.Discard(),
	}

	nav.Navigate(livesync.PathShowcase)

	if nav.Path() != livesync.PathShowcase {
		t.Errorf("expected path %s, got %s", livesync.PathShowcase, nav.Path())
	}
	if len(opened) != 1 || opened[0] != "http://10.0.0.2:8081/showcase" {
		t.Errorf("unexpected opened URLs %v", opened)
	}
}
