package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/salesight/sales-ai/internal/database"
	"github.com/salesight/sales-ai/internal/engine"
)

func main() {
	seedPath := flag.String("seed", "", "CSV file to load into the sales table after migrating")
	migrationsPath := flag.String("migrations", "./migrations", "path to the migration files")
	flag.Parse()

	config := engine.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_NAME", "salesight"),
		Username: getEnv("DB_USER", "salesight"),
		Password: getEnv("DB_PASSWORD", "changeme"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	fmt.Println("=== Running Database Migrations ===")
	fmt.Printf("Connecting to database: %s@%s:%s/%s\n", config.Username, config.Host, config.Port, config.Database)

	// Verify database connectivity
	if err := database.CreateDatabase(config.Host, config.Port, config.Username, config.Password, config.Database); err != nil {
		log.Fatalf("Database connectivity failed: %v", err)
	}
	fmt.Println("✓ Database connectivity verified")

	// Run migrations
	migrationConfig := database.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			config.Username, config.Password, config.Host, config.Port, config.Database, config.SSLMode),
		MigrationsPath: *migrationsPath,
	}

	if err := database.RunMigrations(migrationConfig); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("✓ Database migrations completed successfully!")

	if *seedPath == "" {
		return
	}

	// Seed the sales table from the CSV dataset
	fmt.Printf("Loading dataset from %s\n", *seedPath)
	client, err := engine.NewClient(config)
	if err != nil {
		log.Fatalf("Failed to connect for seeding: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := client.LoadCSV(ctx, *seedPath)
	if err != nil {
		log.Fatalf("Dataset load failed: %v", err)
	}
	fmt.Printf("✓ Loaded %d sales records\n", count)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
