package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"bitelogs/internal/menuitems"
	"bitelogs/internal/seed"
	"bitelogs/pkg/database"
	"bitelogs/pkg/logger"
	"bitelogs/pkg/utils"
)

func main() {
	out := flag.String("out", "data/menu_items.csv", "output CSV path, - for stdout")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logger.New("export-csv", "info", "text").Fatalf("load config: %v", err)
	}
	log := logger.New("export-csv", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	w := os.Stdout
	if *out != "-" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			log.Fatalf("create output dir: %v", err)
		}
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	n, err := seed.ExportMenuCSV(ctx, menuitems.NewRepo(db), w)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.WithField("menu_items", n).WithField("out", *out).Info("export complete")
}
