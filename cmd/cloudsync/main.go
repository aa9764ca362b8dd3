package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/app"
	"github.com/cloudsync/cloudsync/internal/credential"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
	"github.com/cloudsync/cloudsync/internal/store"
	"github.com/cloudsync/cloudsync/internal/sync"
	"github.com/cloudsync/cloudsync/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cloudsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	ring, err := credential.Open()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}

	sessions, err := session.NewStore(ring)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	// The cache is optional: the UI runs server-only when the local
	// database cannot be opened.
	cache, err := store.NewCache(cfg.CachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudsync: local cache unavailable: %v\n", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	client := api.NewClient(cfg.Server, sessions)
	feed := ws.New(cfg.Server.WebSocketURL)
	poller := sync.New(client, cfg.Poll)

	defer feed.Disconnect()
	defer poller.Stop()

	program := tea.NewProgram(
		app.New(cfg, client, sessions, cache, feed, poller),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
