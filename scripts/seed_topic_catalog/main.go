package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progress-api/internal/repository"
	"github.com/noah-isme/sma-progress-api/pkg/config"
	"github.com/noah-isme/sma-progress-api/pkg/database"
	"github.com/noah-isme/sma-progress-api/pkg/logger"
)

// catalogFile maps a class id to its ordered topic titles; position 1 is the first session.
type catalogFile map[string][]string

func main() {
	var (
		catalogPath string
		dryRun      bool
		timeout     time.Duration
	)

	flag.StringVar(&catalogPath, "catalog", filepath.Join("scripts", "seed_topic_catalog", "catalog.json"), "Path to JSON catalog file")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the catalog without writing")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall seed timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		logr.Fatal("failed to load catalog", zap.String("path", catalogPath), zap.Error(err))
	}
	classIDs := make([]string, 0, len(catalog))
	for classID := range catalog {
		classIDs = append(classIDs, classID)
	}
	sort.Strings(classIDs)

	if dryRun {
		for _, classID := range classIDs {
			fmt.Printf("%s\t%d topics\n", classID, len(catalog[classID]))
		}
		return
	}

	if !cfg.Database.Enabled {
		logr.Fatal("DB_ENABLED must be true to seed the topic catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewTopicCatalogRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		logr.Fatal("failed to prepare schema", zap.Error(err))
	}

	var failed int
	for _, classID := range classIDs {
		if err := repo.ReplaceTopics(ctx, classID, catalog[classID]); err != nil {
			failed++
			logr.Error("seed class catalog", zap.String("class_id", classID), zap.Error(err))
			continue
		}
		logr.Info("class catalog seeded", zap.String("class_id", classID), zap.Int("topics", len(catalog[classID])))
	}

	if failed > 0 {
		logr.Error("topic catalog seed incomplete", zap.Int("failed", failed), zap.Int("total", len(classIDs)))
		os.Exit(1)
	}
}

func loadCatalog(path string) (catalogFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog catalogFile
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, errors.New("catalog is empty")
	}
	for classID, topics := range catalog {
		if strings.TrimSpace(classID) == "" {
			return nil, errors.New("catalog contains an empty class id")
		}
		for i, title := range topics {
			title = strings.TrimSpace(title)
			if title == "" {
				return nil, fmt.Errorf("class %s: topic %d is empty", classID, i+1)
			}
			topics[i] = title
		}
	}
	return catalog, nil
}
