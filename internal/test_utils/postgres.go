package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/config"
	"github.com/orcaust/orcaust/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	dbName     = "orcaust"
	dbUser     = "test_orcaust"
	dbPassword = "test_orcaust"
)

// tables lists every table truncated between tests, children first.
var tables = []string{
	"audit_record",
	"budget_item",
	"budget",
	"budget_number_counter",
	"project",
	"contract",
	"catalog_node",
	"users",
}

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	pgContainer, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return nil, err
	}
	return pgContainer, nil
}

// TestWithDB sets up a Postgres instance, applies all migrations and opens a pool against it.
// The returned function closes the pool and terminates the container.
func TestWithDB() (*pgxpool.Pool, func()) {
	ctx := context.Background()

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		log.Printf("Failed to start postgres container: %v", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")

	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:     host,
		Port:     port.Int(),
		User:     dbUser,
		Pass:     dbPassword,
		Name:     dbName,
		Schema:   "orcaust",
		MaxConns: 5,
		MinConns: 1,
	}

	err = database.Migrate(cfg)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	pool, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}

	return pool, func() {
		pool.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Errorf("failed to terminate container: %v", err)
		}
	}
}

// CleanDB empties every table and resets identity sequences.
func CleanDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	for _, table := range tables {
		_, err := pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

// findProjectRoot attempts to locate the project root directory
// It looks for .git directory or go.mod file
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, ".git")) || fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
