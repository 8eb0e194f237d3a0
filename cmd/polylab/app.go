package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polylab/internal/config"
	"polylab/internal/driver"
	"polylab/internal/language"
	"polylab/internal/telemetry"
	"polylab/internal/version"
)

// app is what every request command needs: configuration, the language
// registry and a driver.
type app struct {
	cfg       config.Config
	registry  *language.Registry
	driver    *driver.Driver
	telemetry *telemetry.Telemetry
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		return config.Load(".")
	}
	return config.LoadExplicit(path)
}

// withApp builds the app, runs fn and tears everything down. Registry errors
// are configuration errors and abort the command before any request runs.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cleanupProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProfiling()

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := language.NewDefaultRegistry(cfg.Settings())
	if err != nil {
		return fmt.Errorf("language registry: %w", err)
	}

	flags := cmd.Root().PersistentFlags()
	telemetryDir, err := flags.GetString("telemetry-dir")
	if err != nil {
		return fmt.Errorf("failed to get telemetry-dir flag: %w", err)
	}
	if telemetryDir == "" {
		telemetryDir = cfg.Telemetry.Dir
	}
	tel := telemetry.Disabled()
	if telemetryDir != "" {
		if tel, err = telemetry.Init(cmd.Context(), telemetry.Config{Dir: telemetryDir, ServiceVersion: version.Version}); err != nil {
			return err
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, tel.Shutdown(ctx))
	}()

	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiagnostics <= 0 {
		maxDiagnostics = cfg.Defaults.MaxDiagnostics
	}
	drv, err := driver.New(driver.Options{
		Registry:       registry,
		Telemetry:      tel,
		MaxDiagnostics: maxDiagnostics,
	})
	if err != nil {
		return err
	}
	return fn(cmd.Context(), &app{cfg: cfg, registry: registry, driver: drv, telemetry: tel})
}
