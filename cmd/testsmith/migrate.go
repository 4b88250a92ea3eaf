package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/k11techlab/testsmith/internal/database"
	"github.com/k11techlab/testsmith/store"
)

// =============================================================================
// 🗄️ 上下文表迁移命令
// =============================================================================

// runMigrate 处理 migrate 命令：up（默认）创建或更新 context_entries 表，
// status 报告表是否存在。
func runMigrate(args []string) {
	subcommand := "up"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcommand, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	driver := fs.String("driver", "", "SQL driver: postgres, mysql, sqlite (default: context_store.driver)")
	fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	name := *driver
	if name == "" {
		name = cfg.ContextStore.Driver
	}
	switch name {
	case "postgres", "mysql", "sqlite":
	default:
		fmt.Fprintf(os.Stderr, "migrate requires a SQL context store driver, got %q\n", name)
		os.Exit(1)
	}

	pool, err := database.Open(name, cfg.ContextStore.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch subcommand {
	case "up":
		if err := store.Migrate(ctx, pool.DB()); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("context_entries is up to date (%s)\n", name)
	case "status":
		exists := pool.DB().WithContext(ctx).Migrator().HasTable(&store.EntryRecord{})
		fmt.Printf("Driver:  %s\n", name)
		fmt.Printf("Table:   context_entries\n")
		fmt.Printf("Present: %t\n", exists)
		if !exists {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s (expected up or status)\n", subcommand)
		os.Exit(1)
	}
}
