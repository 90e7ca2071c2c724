package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/eringen/folio"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "reset-admin":
		err = runResetAdmin(os.Args[2:])
	case "cleanup-views":
		err = runCleanupViews()
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`folio - a personal blog backend built with Go, Echo, and SQLite

Usage:
  folio <command> [arguments]

Commands:
  serve                           Start the HTTP server
  reset-admin [user] [password]   Set the admin credentials (defaults from ADMIN_USERNAME/ADMIN_PASSWORD)
  cleanup-views                   Delete view history older than VIEW_LOG_RETENTION_DAYS
  version                         Print the folio version
  help                            Show this help message

Configuration is read from the environment and an optional .env file.`)
}

// open loads the configuration, builds the logger and opens the store.
func open() (folio.SiteConfig, zerolog.Logger, *folio.Store, error) {
	cfg, err := folio.LoadConfig()
	if err != nil {
		return folio.SiteConfig{}, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	log := folio.NewLogger(cfg.LogLevel, cfg.LogFormat)
	store, err := folio.NewStore(cfg.DatabasePath, log)
	if err != nil {
		return cfg, log, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, log, store, nil
}

func runServe() error {
	cfg, log, store, err := open()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	app := folio.New(cfg, store, log)
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func runResetAdmin(args []string) error {
	cfg, log, store, err := open()
	if err != nil {
		return err
	}
	defer store.Close()

	username, password := cfg.AdminUsername, cfg.AdminPassword
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}
	if password == "" {
		return fmt.Errorf("a password is required: pass it as the second argument or set ADMIN_PASSWORD")
	}

	if err := store.UpdateAdminCredentials(context.Background(), username, &password); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("admin credentials reset")
	return nil
}

func runCleanupViews() error {
	cfg, log, store, err := open()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.CleanupViewLog(context.Background(), cfg.ViewLogRetentionDays)
	if err != nil {
		return err
	}
	log.Info().Int64("deleted", n).Int("retention_days", cfg.ViewLogRetentionDays).Msg("view log cleaned up")
	return nil
}
