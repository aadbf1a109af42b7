package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"bitelogs/internal/auth"
	"bitelogs/internal/menuitems"
	"bitelogs/internal/seed"
	"bitelogs/pkg/database"
	"bitelogs/pkg/logger"
	"bitelogs/pkg/utils"
)

func main() {
	var (
		csvIn     = flag.String("csv", "", "optional CSV of restaurants and menu items to import")
		owner     = flag.String("owner", "admin@example.com", "account that owns imported rows")
		skipDemo  = flag.Bool("skip-demo", false, "do not load the demo data set")
		recompute = flag.Bool("recompute", false, "only rebuild every menu item aggregate")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logger.New("seed", "info", "text").Fatalf("load config: %v", err)
	}
	log := logger.New("seed", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if *recompute {
		n, err := seed.RecomputeAll(ctx, menuitems.NewRepo(db), log)
		if err != nil {
			log.Fatalf("recompute failed: %v", err)
		}
		log.WithField("menu_items", n).Info("aggregates rebuilt")
		return
	}

	if !*skipDemo {
		switch _, err := seed.Demo(ctx, db, log); {
		case errors.Is(err, seed.ErrAlreadySeeded):
			log.Info("users already exist, skipping demo data")
		case err != nil:
			log.Fatalf("seed failed: %v", err)
		default:
			log.Infof("demo credentials: demo@example.com / %s", seed.DemoPassword)
		}
	}

	if *csvIn == "" {
		return
	}

	u, err := auth.NewRepo(db).GetByEmail(ctx, *owner)
	if err != nil {
		log.Fatalf("look up owner: %v", err)
	}
	if u == nil {
		log.Fatalf("owner %s does not exist", *owner)
	}

	f, err := os.Open(*csvIn)
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	res, err := seed.ImportMenuCSV(ctx, db, f, u.ID)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.WithField("restaurants", res.Restaurants).WithField("menu_items", res.MenuItems).
		Infof("imported %s", *csvIn)
}
