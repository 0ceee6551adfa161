// Command grinplace-seed applies migrations and loads initial data: the
// owner role, a business administrator role, a super administrator, a
// business and its administrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/platinummonkey/grinplace/pkg/app"
	"github.com/platinummonkey/grinplace/pkg/config"
	"github.com/platinummonkey/grinplace/pkg/observability"
)

func main() {
	fixturePath := flag.String("fixture", "", "Path to a YAML fixture (defaults to the built-in data set)")
	flag.Parse()

	if err := run(*fixturePath); err != nil {
		fmt.Fprintf(os.Stderr, "grinplace-seed: %v\n", err)
		os.Exit(1)
	}
}

func run(fixturePath string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewTextLogger(cfg.Observability.LogLevel, os.Stdout)

	fixture, err := LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	objects, err := app.OpenObjectStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}

	services, err := app.NewServices(cfg, stores, objects, nil, logger)
	if err != nil {
		return err
	}

	result, err := NewSeeder(stores, services, logger).Run(ctx, fixture)
	if err != nil {
		return err
	}
	logger.WithFields(map[string]interface{}{
		"created": result.Created,
		"skipped": result.Skipped,
	}).Info("Seeding complete")
	return nil
}
