package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chargedash/internal/config"
	"chargedash/internal/log"
	"chargedash/pkg/api"
	"chargedash/pkg/auth"
	"chargedash/pkg/cache"
	"chargedash/pkg/cli"
	"chargedash/pkg/report"
	"chargedash/pkg/shape"
)

// run executes one full pass: acquire a snapshot (from the network or the
// cache), then either dump the raw payloads (discover mode) or shape and
// render the dashboard. Any failure aborts the whole run; there is no
// partial output.
func run(ctx context.Context, cliConfig *cli.Config, cfg *config.Config) error {
	var snapshot *cache.Snapshot
	var err error

	if cliConfig.Offline {
		log.Info("Offline mode; loading cached data...")
		snapshot, err = cache.ImportFromFile(cfg.Storage.CacheFile)
		if err != nil {
			return err
		}
		if !snapshot.HasData() {
			return fmt.Errorf("%w: %s holds no payloads", cache.ErrMissing, cfg.Storage.CacheFile)
		}
	} else {
		if cliConfig.Email == "" && cliConfig.KeyringTokenName == "" {
			return errors.New("provide -email to fetch online, or use -offline")
		}
		snapshot, err = fetch(ctx, cliConfig, cfg)
		if err != nil {
			return err
		}
	}

	if cliConfig.Discover {
		return dumpPayloads(cfg.Storage.DataDir, snapshot)
	}

	daily, err := api.ParseDailyHistory(snapshot.V1)
	if err != nil {
		return err
	}
	sessions, err := api.ParseSessionHistory(snapshot.V2)
	if err != nil {
		return err
	}
	if len(daily) == 0 && len(sessions) == 0 {
		return errors.New("no usable records in either payload")
	}
	log.Info("Shaped %d daily records and %d Supercharger sessions", len(daily), len(sessions))

	tables := shape.Build(daily, sessions, cfg.Report.TopLocations)
	html, err := report.Render(tables, report.Meta{
		Title:     cfg.Report.Title,
		FetchedAt: snapshot.FetchedAt,
	})
	if err != nil {
		return err
	}
	if err := report.WriteFile(cfg.Storage.OutputFile, html); err != nil {
		return err
	}
	fmt.Printf("Dashboard written to %s\n", cfg.Storage.OutputFile)
	return nil
}

// fetch performs the online path: resolve credentials, call the two history
// endpoints, and overwrite the cache with the fresh snapshot. A failure of
// either endpoint is fatal for the whole fetch.
func fetch(ctx context.Context, cliConfig *cli.Config, cfg *config.Config) (*cache.Snapshot, error) {
	// A corrupt cache aborts even though the fetch could proceed without
	// it; silently discarding the file would also discard its token.
	previous, err := cache.ImportFromFile(cfg.Storage.CacheFile)
	if err != nil && !errors.Is(err, cache.ErrMissing) {
		return nil, err
	}

	flow := auth.NewFlow(cfg.API.AuthHost, cliConfig.Email)
	token, err := cliConfig.ResolveToken(ctx, previous, flow)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.OwnerHost, cfg.API.OwnershipHost, cfg.API.PageSize, token.AccessToken)
	vehicles, err := client.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, errors.New("no vehicles found on this account")
	}
	vehicle := vehicles[0]
	if len(vehicles) > 1 {
		log.Warning("Account has %d vehicles; using %s", len(vehicles), vehicle.VIN)
	}
	log.Info("Fetching charge history for %s...", vehicle.VIN)

	v1, err := client.ChargeHistory(ctx, vehicle.VIN)
	if err != nil {
		return nil, fmt.Errorf("daily history fetch failed: %w", err)
	}
	v2, err := client.ChargingSessions(ctx, vehicle.VIN)
	if err != nil {
		return nil, fmt.Errorf("session history fetch failed: %w", err)
	}

	snapshot := &cache.Snapshot{
		Token:     token,
		V1:        v1,
		V2:        v2,
		FetchedAt: time.Now().UTC().Round(time.Second),
	}
	if err := snapshot.ExportToFile(cfg.Storage.CacheFile); err != nil {
		return nil, fmt.Errorf("failed to update cache: %w", err)
	}
	log.Info("Cache updated: %s", cfg.Storage.CacheFile)
	return snapshot, nil
}

// dumpPayloads writes the unmodified raw payloads to the data directory for
// inspection. Discover mode performs no shaping or rendering.
func dumpPayloads(dataDir string, snapshot *cache.Snapshot) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	stamp := snapshot.FetchedAt.UTC().Format("20060102T150405Z")
	for _, payload := range []struct {
		name string
		raw  json.RawMessage
	}{
		{fmt.Sprintf("v1_charge_history_%s.json", stamp), snapshot.V1},
		{fmt.Sprintf("v2_charge_history_%s.json", stamp), snapshot.V2},
	} {
		if len(payload.raw) == 0 {
			continue
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, payload.raw, "", "  "); err != nil {
			// Keep the payload verbatim if it will not re-indent.
			pretty.Reset()
			pretty.Write(payload.raw)
		}
		path := filepath.Join(dataDir, payload.name)
		if err := os.WriteFile(path, pretty.Bytes(), 0644); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	}
	return nil
}
