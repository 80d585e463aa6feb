package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nemaeval/nema-eval/internal/bus"
	"github.com/nemaeval/nema-eval/internal/config"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
	"github.com/nemaeval/nema-eval/internal/store"
)

// app holds what every command shares: configuration, logging and the
// optional result store and event bus.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store store.Store
	bus   bus.Bus
}

// newApp loads configuration for cmd and sets up logging. Store and bus are
// opened on demand.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}

	return &app{
		cfg: cfg,
		log: logger.New(level, cfg.Log.Format),
	}, nil
}

// openStore opens the configured result store. It returns nil when the
// store is disabled.
func (a *app) openStore() (store.Store, error) {
	if a.store != nil || a.cfg.Store.Type == "none" {
		return a.store, nil
	}
	s, err := store.New(a.cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// requireStore is openStore for commands that cannot work without one.
func (a *app) requireStore() (store.Store, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("result store is disabled; set store.type or NEMA_STORE_TYPE")
	}
	return s, nil
}

// openBus opens the configured event bus. It returns nil when the bus is
// disabled.
func (a *app) openBus() (bus.Bus, error) {
	if a.bus != nil || a.cfg.Bus.Type == "none" {
		return a.bus, nil
	}
	b, err := bus.NewBus(a.cfg.Bus, a.log)
	if err != nil {
		return nil, err
	}
	a.bus = b
	return b, nil
}

// notifier returns a progress notifier for the configured bus, or nil.
func (a *app) notifier() (*bus.Notifier, error) {
	b, err := a.openBus()
	if err != nil || b == nil {
		return nil, err
	}
	return bus.NewNotifier(b, a.cfg.Bus.TopicPrefix, a.cfg.Bus.EventsPerSecond, a.log), nil
}

// Close releases the store and bus.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close event bus")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close result store")
		}
	}
}
