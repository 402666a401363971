package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"ledger-core/internal/model"
	"ledger-core/pkg/config"
	"ledger-core/pkg/database"
)

func main() {
	var command, dir string
	var version, steps int
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down, steps, force, version, auto")
	flag.StringVar(&dir, "dir", "migrations", "Migrations directory")
	flag.IntVar(&version, "v", -1, "Version for force command")
	flag.IntVar(&steps, "n", 1, "Number of steps for steps command, negative rolls back")
	flag.Parse()

	config.Init()

	// auto 只用于本地开发: 直接按 gorm 模型建表，不记录迁移版本
	if command == "auto" {
		db, err := database.ConnectPostgres(config.Global.DB.DSN(), true)
		if err != nil {
			log.Fatalf("Database connect failed: %v", err)
		}
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			log.Fatalf("AutoMigrate failed: %v", err)
		}
		log.Println("AutoMigrate done")
		return
	}

	m, err := migrate.New("file://"+dir, config.Global.DB.URL())
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migration up done")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration down done")
	case "steps":
		if err := m.Steps(steps); err != nil {
			log.Fatalf("Migration steps failed: %v", err)
		}
		log.Printf("Migrated %d step(s)", steps)
	case "force":
		if version == -1 {
			log.Fatal("Version (-v) is required for force command")
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("Migration force failed: %v", err)
		}
		log.Printf("Migration forced to version %d", version)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Migration version failed: %v", err)
		}
		log.Printf("Current version %d, dirty=%v", v, dirty)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
