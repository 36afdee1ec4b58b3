package main

import (
	"fmt"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/database"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/internal/storage/gormstore"
	"github.com/emomap/engine/internal/storage/memory"
)

func (a *app) initStorage() error {
	a.Logger.Debug("Initializing place store")

	storageCfg := config.GetStorageConfig()
	backend, err := a.createStorageBackend(storageCfg)
	if err != nil {
		a.Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		a.Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	a.backend = backend
	return nil
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		// Connect falls back to the SQLite file when Postgres is unreachable
		a.db = database.NewManager(a.infraLogger, storageCfg.SQLitePath)
		if err := a.db.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Logger.Info("Postgres storage backend initialized", "local", a.db.ShouldSaveLocal)
		return gormstore.New(gormstore.Dependencies{DB: a.db.DB, Logger: a.Logger}), nil

	case "sqlite":
		a.db = database.NewManager(a.infraLogger, storageCfg.SQLitePath)
		if err := a.db.ConnectSqlite(storageCfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLitePath)
		return gormstore.New(gormstore.Dependencies{DB: a.db.DB, Logger: a.Logger}), nil

	case "memory", "":
		a.Logger.Info("Memory storage backend initialized", "path", storageCfg.Memory.Path)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
