package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status|version]

import (
	"context"
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"photoreq-backend/internal/shared/config"
	"photoreq-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	dsn := flag.String("database-url", cfg.DatabaseURL, "Postgres connection string")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [flags] [up|down|status|version]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx := context.Background()
	sqlDB, err := db.Connect(ctx, *dsn, db.OptionsFromEnv(db.DefaultOptions("migrate")))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	case "version":
		var v int64
		if v, err = db.SchemaVersion(ctx, sqlDB); err == nil {
			fmt.Println(v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s: %v", command, err)
		os.Exit(1)
	}
}
