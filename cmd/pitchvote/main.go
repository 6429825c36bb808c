package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abrezinsky/pitchvote/internal/app"
	"github.com/abrezinsky/pitchvote/internal/auth"
	"github.com/abrezinsky/pitchvote/internal/browser"
	"github.com/abrezinsky/pitchvote/internal/config"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/web"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

var (
	version = "dev"
)

// showStartupAnimation displays the PitchVote logo then fills a star rating
func showStartupAnimation(skipStars bool) {
	width := 62
	border := strings.Repeat("═", width)

	logo := []string{
		"     ____  _ _       _    __     __    _                  ",
		"    |  _ \\(_) |_ ___| |__ \\ \\   / /__ | |_ ___            ",
		"    | |_) | | __/ __| '_ \\ \\ \\ / / _ \\| __/ _ \\           ",
		"    |  __/| | || (__| | | | \\ V / (_) | ||  __/           ",
		"    |_|   |_|\\__\\___|_| |_|  \\_/ \\___/ \\__\\___|           ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		if len(line) < width {
			line += strings.Repeat(" ", width-len(line))
		}
		fmt.Printf("  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)

	if skipStars {
		fmt.Print("\n")
		return
	}

	// Swap the bottom border for a divider and fill five stars in half steps
	fmt.Printf(moveUp, 1)
	fmt.Printf("%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)
	for step := 0; step <= 10; step++ {
		line := fmt.Sprintf("   %s   %.1f / 5.0", stars(float64(step)/2), float64(step)/2)
		pad := width - len([]rune(line))
		if pad < 0 {
			pad = 0
		}
		fmt.Printf("%s  %s║%s%s%s%s║%s\n", clearLine, cyan, yellow, line, strings.Repeat(" ", pad), cyan, reset)
		fmt.Printf("%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)
		if step < 10 {
			fmt.Printf(moveUp, 2)
		}
		time.Sleep(60 * time.Millisecond)
	}
	fmt.Print("\n")
}

// stars renders a 0-5 score as five star glyphs, rounding halves up
func stars(score float64) string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		switch {
		case score >= float64(i):
			b.WriteString("★ ")
		case score >= float64(i)-0.5:
			b.WriteString("⯪ ")
		default:
			b.WriteString("☆ ")
		}
	}
	return strings.TrimSpace(b.String())
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sa%s      - Open admin page in browser\n", cyan, reset)
	fmt.Printf("    %sv%s      - Open audience live page in browser\n", cyan, reset)
	fmt.Printf("    %ss%s      - Start live mode at the first pitch\n", cyan, reset)
	fmt.Printf("    %sn%s      - Next pitch\n", cyan, reset)
	fmt.Printf("    %sp%s      - Previous pitch\n", cyan, reset)
	fmt.Printf("    %se%s      - End live mode\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%spitchvote: %v%s\n", red, err, reset)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("pitchvote %s\n", version)
		return nil
	}

	showStartupAnimation(cfg.NoAnimate)

	// Setup admin authentication
	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth := auth.New(password)

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, appLog, cfg, app.Assets{Templates: web.GetTemplatesFS(), Static: web.GetStaticFS()}, adminAuth)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	appLog.Info("Admin password", "password", password)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(ctx, cfg.Addr())
	}()

	// Wait a moment for server to start
	time.Sleep(100 * time.Millisecond)

	localURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if !cfg.NoBrowser {
		if err := browser.Open(browser.PageURL(localURL, browser.PageAdmin)); err != nil {
			appLog.Debug("Could not open browser", "error", err)
		}
	}

	if !cfg.NoKeyboard {
		printKeyboardHelp()
		c := newConsole(localURL, appLog, a.Live(), stop)
		go listenForKeyboard(c)
	} else {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -no-keyboard=false to enable)%s\n\n", yellow, reset)
	}

	return <-serverErr
}
