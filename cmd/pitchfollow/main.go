// Command pitchfollow drives a projector or kiosk browser from a PitchVote
// server: it follows the live state and opens the live or showcase page
// whenever the presentation mode changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abrezinsky/pitchvote/internal/browser"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/pkg/livesync"
)

// browserNavigator opens pages under a server base URL
type browserNavigator struct {
	baseURL string
	open    func(url string) error
	log     logger.Logger

	mu   sync.Mutex
	path string
}

func (n *browserNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *browserNavigator) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()

	target := browser.PageURL(n.baseURL, path)
	n.log.Info("Opening page", "url", target)
	if err := n.open(target); err != nil {
		n.log.Warn("Could not open browser", "url", target, "error", err)
	}
}

type options struct {
	server       string
	transport    string
	pollInterval time.Duration
	logLevel     string
	dryRun       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("pitchfollow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.server, "server", "http://localhost:8081", "PitchVote server base URL")
	fs.StringVar(&o.transport, "transport", "sse", "Live state transport (sse, ws, poll)")
	fs.DurationVar(&o.pollInterval, "poll-interval", 3*time.Second, "Polling interval, also used as fallback")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Log navigations without opening a browser")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "pitchfollow: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	log := logger.NewWithLevel(logger.ParseLevel(o.logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer, err := newSyncer(o, log)
	if err != nil {
		return err
	}
	log.Info("Following live state", "server", o.server, "transport", o.transport)
	return syncer.Run(ctx)
}

func newSyncer(o options, log *logger.SlogLogger) (*livesync.Syncer, error) {
	primary, err := livesync.NewSource(o.transport, o.server, o.pollInterval)
	if err != nil {
		return nil, err
	}

	open := browser.Open
	if o.dryRun {
		open = func(string) error { return nil }
	}
	nav := &browserNavigator{baseURL: o.server, open: open, log: log}

	agent := livesync.NewAgent(nav, livesync.OnChange(func(s models.LiveState) {
		log.Debug("Live state applied", "version", s.Version, "mode", s.Mode)
	}))
	fallback := livesync.NewPollSource(o.server, o.pollInterval)
	return livesync.NewSyncer(log, agent, primary, fallback, livesync.DefaultBackoff), nil
}
