package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"workerstore/internal/config"
	"workerstore/internal/console"
	"workerstore/internal/storage"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	// Logs go to stderr; stdout belongs to the menu.
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.Level())

	log.WithFields(logrus.Fields{
		"storage_backend": cfg.StorageBackend,
		"data_file":       cfg.DataFile,
	}).Info("Configuration loaded successfully")

	// --- Storage ---
	repo, err := newRepository(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing storage")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if wd, err := os.Getwd(); err == nil {
		fmt.Printf("Current directory: %s\n", wd)
	}

	if err := console.New(repo, os.Stdin, os.Stdout, log).Run(ctx); err != nil {
		log.WithError(err).Error("Console stopped with error")
	}
}

func newRepository(cfg config.Config, log logrus.FieldLogger) (storage.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendBadger:
		repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return storage.NewFileRepository(afero.NewOsFs(), cfg.DataFile, log), nil
	}
}
