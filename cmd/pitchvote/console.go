package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abrezinsky/pitchvote/internal/browser"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/services"
)

const consoleActionTimeout = 5 * time.Second

// console maps single key presses to server actions
type console struct {
	baseURL string
	log     *logger.SlogLogger
	live    services.LiveServicer
	quit    func()
	open    func(url string) error
	out     io.Writer
}

func newConsole(baseURL string, log *logger.SlogLogger, live services.LiveServicer, quit func()) *console {
	return &console{
		baseURL: baseURL,
		log:     log,
		live:    live,
		quit:    quit,
		open:    browser.Open,
		out:     os.Stdout,
	}
}

// handleKey performs the action bound to key. It returns false when the
// console should stop reading.
func (c *console) handleKey(key byte) bool {
	switch strings.ToLower(string(key)) {
	case "a":
		c.openPage("admin", browser.PageAdmin)
	case "v":
		c.openPage("audience live", browser.PageLive)
	case "s":
		c.liveAction("Live mode started", c.live.StartLive)
	case "n":
		c.liveAction("Next pitch", func(ctx context.Context) (models.LiveState, error) {
			return c.live.Advance(ctx, services.Next)
		})
	case "p":
		c.liveAction("Previous pitch", func(ctx context.Context) (models.LiveState, error) {
			return c.live.Advance(ctx, services.Previous)
		})
	case "e":
		c.liveAction("Live mode ended", c.live.EndLive)
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := cycleLogLevel(c.log)
		fmt.Fprintf(c.out, "%sLog level: %s%s%s\n", green, yellow, next, reset)
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		fmt.Fprintf(c.out, "%sShutting down server...%s\n", yellow, reset)
		c.quit()
		return false
	case "?":
		printKeyboardHelp()
	}
	return true
}

func (c *console) openPage(name, page string) {
	fmt.Fprintf(c.out, "%sOpening %s page in browser...%s\n", cyan, name, reset)
	if err := c.open(browser.PageURL(c.baseURL, page)); err != nil {
		fmt.Fprintf(c.out, "%sError opening browser: %v%s\n", red, err, reset)
	}
}

func (c *console) liveAction(label string, action func(ctx context.Context) (models.LiveState, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), consoleActionTimeout)
	defer cancel()

	state, err := action(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "%s%s failed: %v%s\n", red, label, err, reset)
		return
	}

	current := "none"
	if state.CurrentPitchID != nil {
		current = *state.CurrentPitchID
	}
	fmt.Fprintf(c.out, "%s%s%s (mode %s, pitch %s, version %d)\n", green, label, reset, state.Mode, current, state.Version)
}

// cycleLogLevel cycles through debug -> info -> warn -> error and returns the new level
func cycleLogLevel(appLog *logger.SlogLogger) string {
	var next string
	switch appLog.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	return next
}
