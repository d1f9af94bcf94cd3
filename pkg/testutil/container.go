// Package testutil provides testing utilities for the lead service:
// a shared PostgreSQL testcontainer, sqlmock helpers, recording fakes,
// HTTP helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leadflow/leadflow-backend/pkg/database"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

const postgresImage = "postgres:15-alpine"

// shared is started once per test binary
var shared struct {
	once      sync.Once
	container *postgres.PostgresContainer
	db        *sqlx.DB
	err       error
}

// IntegrationSuite is a real PostgreSQL database with the migrations applied
type IntegrationSuite struct {
	RawDB    *sqlx.DB
	DB       *database.DB
	Fixtures *FixtureFactory
}

// NewIntegrationSuite starts (or reuses) the shared container and applies
// migrations. The test is skipped when no container runtime is available.
//
//	func TestLeadRepository_Integration(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    suite := testutil.NewIntegrationSuite(t, repository.Migrations())
//	    repo := repository.NewLeadRepository(suite.DB)
//	    ...
//	}
func NewIntegrationSuite(t *testing.T, migrations []string) *IntegrationSuite {
	t.Helper()
	ctx := context.Background()

	shared.once.Do(func() {
		shared.container, shared.db, shared.err = startPostgres(ctx)
	})
	if shared.err != nil {
		t.Skipf("postgres container unavailable: %v", shared.err)
	}

	for i, stmt := range migrations {
		if _, err := shared.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("migration %d failed: %v", i+1, err)
		}
	}

	return &IntegrationSuite{
		RawDB:    shared.db,
		DB:       database.Wrap(shared.db, logger.Nop()),
		Fixtures: NewFixtureFactory(),
	}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, *sqlx.DB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(postgresImage),
		postgres.WithDatabase("leadflow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return container, db, nil
}

// TerminateContainer stops the shared container. Call it from TestMain
// after m.Run.
func TerminateContainer(ctx context.Context) {
	if shared.container != nil {
		_ = shared.db.Close()
		_ = shared.container.Terminate(ctx)
	}
}
