package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/oarkflow/squealx"
	_ "modernc.org/sqlite"

	"github.com/oarkflow/permit"
	"github.com/oarkflow/permit/logger"
	"github.com/oarkflow/permit/stores"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		handleValidate()
	case "stats":
		handleStats()
	case "seed":
		handleSeed()
	case "check":
		handleCheck()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("permit-config - Configuration tool for permit")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  permit-config validate <file>                    - Validate configuration")
	fmt.Println("  permit-config stats <file>                       - Show configuration statistics")
	fmt.Println("  permit-config seed <file> <sqlite-path>          - Seed a sqlite database")
	fmt.Println("  permit-config check <file> <resource-id> [user]  - Evaluate permissions")
	fmt.Println()
	fmt.Println("Supported formats: .yaml, .yml, .json")
}

func loadConfig(path string) *permit.Config {
	cfg, err := permit.NewConfigLoader().LoadFile(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func handleValidate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: permit-config validate <file>")
		os.Exit(1)
	}
	cfg := loadConfig(os.Args[2])
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration is valid")
}

func handleStats() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: permit-config stats <file>")
		os.Exit(1)
	}
	cfg := loadConfig(os.Args[2])
	fmt.Printf("Version:   %d\n", cfg.Version)
	fmt.Printf("Spaces:    %d\n", len(cfg.Spaces))
	fmt.Printf("Members:   %d\n", len(cfg.Members))
	fmt.Printf("Resources: %d\n", len(cfg.Resources))
	fmt.Printf("Grants:    %d\n", len(cfg.Grants))
	readonly := 0
	for _, s := range cfg.Spaces {
		if s.Tier == permit.TierReadonly {
			readonly++
		}
	}
	fmt.Printf("Readonly spaces: %d\n", readonly)
}

func handleSeed() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: permit-config seed <file> <sqlite-path>")
		os.Exit(1)
	}
	cfg := loadConfig(os.Args[2])

	sqlDB, err := sql.Open("sqlite", os.Args[3])
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()
	db := squealx.NewDb(sqlDB, "sqlite", "permit")

	if err := stores.Migrate(db); err != nil {
		fmt.Printf("Error migrating: %v\n", err)
		os.Exit(1)
	}
	store := stores.NewSQLStore(db)
	if err := store.Seed(context.Background(), cfg); err != nil {
		fmt.Printf("Error seeding: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %s from %s\n", os.Args[3], os.Args[2])
}

func handleCheck() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: permit-config check <file> <resource-id> [user-id]")
		os.Exit(1)
	}
	cfg := loadConfig(os.Args[2])
	resourceID := os.Args[3]
	userID := ""
	if len(os.Args) > 4 {
		userID = os.Args[4]
	}

	store := stores.NewMemoryStore()
	if err := cfg.Apply(store); err != nil {
		fmt.Printf("Error applying config: %v\n", err)
		os.Exit(1)
	}
	engine, err := permit.NewEngine(store,
		permit.WithLogger(logger.NewPhusluLogger()),
		permit.WithAccessCache(cfg.Engine),
	)
	if err != nil {
		fmt.Printf("Error building engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	flags, trace, err := engine.ComputePermissionsWithTrace(context.Background(), permit.ComputeRequest{
		ResourceID: resourceID,
		UserID:     userID,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	for _, line := range trace {
		fmt.Printf("  %s\n", line)
	}
	var res *permit.Resource
	for _, r := range cfg.Resources {
		if r.ID == resourceID {
			res = r
			break
		}
	}
	if res != nil {
		for _, op := range permit.OperationsForKind(res.Kind) {
			fmt.Printf("%-22s %v\n", op, flags[op])
		}
	}
}
