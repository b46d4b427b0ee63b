// ABOUTME: Entry point for the helpdesk ticket tracker
// ABOUTME: Provides serve, health and version subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/helpdesk/internal/config"
	"github.com/2389/helpdesk/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
 _          _       _           _
| |__   ___| |_ __ | |__   ___ | | __
| '_ \ / _ \ | '_ \| '_ \ / _ \| |/ /
| | | |  __/ | |_) | | | |  __/|   <
|_| |_|\___|_| .__/|_| |_|\___||_|\_\  desk
             |_|
`

func usage() {
	fmt.Println("Usage: helpdesk <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the helpdesk server")
	fmt.Println("  health    Check server health")
	fmt.Println("  version   Print the version")
	fmt.Println()
	fmt.Println("Config is read from $HELPDESK_CONFIG, $XDG_CONFIG_HOME/helpdesk/helpdesk.yaml")
	fmt.Println("or ~/.config/helpdesk/helpdesk.yaml. A .env file in the working directory is loaded first.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: reading .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. Without HELPDESK_CONFIG a missing file
// falls back to local defaults; an explicit path must exist.
func loadConfig() (*config.Config, string, error) {
	path := config.DefaultPath()
	if path == "" {
		return config.Default(), "(defaults)", nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && os.Getenv("HELPDESK_CONFIG") == "" {
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      http://%s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s", cfg.Database.Driver)
	if cfg.Database.Driver == config.DriverSQLite {
		gray.Printf(" (%s)", cfg.Database.Path)
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Printf("Admins:    ")
	if len(cfg.Auth.Admins) == 0 {
		yellow.Print("none configured")
	} else {
		fmt.Print(strings.Join(cfg.Auth.Admins, ", "))
	}
	fmt.Println()
	fmt.Println()

	logger.Info("starting helpdesk",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"driver", cfg.Database.Driver,
	)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
