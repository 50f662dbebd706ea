package main

import (
	"context"
	"fmt"

	"github.com/fluxforge/nodesync/check_nodesync/config"
	"github.com/fluxforge/nodesync/check_nodesync/inventory"
)

// openSource connects to the inventory backend selected by cfg.Source and
// applies query throttling.
func openSource(ctx context.Context, cfg *config.Config) (inventory.Source, error) {
	var (
		src inventory.Source
		err error
	)

	switch cfg.Source {
	case config.SourcePuppetDB:
		src, err = inventory.NewPuppetDB(inventory.PuppetDBConfig{
			Host:     cfg.PuppetDB.Host,
			Port:     cfg.PuppetDB.Port,
			Timeout:  cfg.Timeout.Duration(),
			CAFile:   cfg.PuppetDB.CAFile,
			CertFile: cfg.PuppetDB.CertFile,
			KeyFile:  cfg.PuppetDB.KeyFile,
		})
	case config.SourcePostgres:
		src, err = inventory.NewPostgres(ctx, cfg.DSN)
	case config.SourceSQLite:
		src, err = inventory.NewSQLite(ctx, cfg.DSN)
	case config.SourceRedis:
		src, err = inventory.NewRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	case config.SourceConsul:
		src, err = inventory.NewConsul(cfg.Consul.Address, cfg.Consul.Token, cfg.Consul.Prefix)
	case config.SourceFile:
		src, err = inventory.LoadFile(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported source %q", cfg.Source)
	}
	if err != nil {
		return nil, err
	}

	return inventory.NewThrottled(src, cfg.QueryRate), nil
}
