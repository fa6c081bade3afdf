//go:build integration

package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/ruleseditor/internal/config"
)

// setupPostgres starts a PostgreSQL testcontainer, runs migrations and returns its URL
func setupPostgres(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { postgres.Terminate(ctx) })

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	databaseURL := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	m, err := migrate.New("file://../../migrations", databaseURL)
	require.NoError(t, err)
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return databaseURL
}

// TestPostgresServer_SaveAndHistory drives the API against the postgres store
func TestPostgresServer_SaveAndHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Store = config.StorePostgres
	cfg.DatabaseURL = setupPostgres(t)

	reg, db, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()
	s := NewServer(reg, db, cfg.Store, cfg.CORSOrigins)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/rules/save", discountTable())
	require.Equal(t, http.StatusOK, rec.Code)

	table := discountTable()
	table.AddRow()
	table.Rows[1].Values = []any{float64(100), float64(5)}
	rec = doRequest(t, s, http.MethodPost, "/rules/save", table)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/rules/revisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	revisions := decode[RevisionsListResponse](t, rec)
	require.Len(t, revisions.Revisions, 2)
	assert.Equal(t, 2, revisions.Revisions[0].Rows)
	assert.Nil(t, revisions.Revisions[0].Document)

	rec = doRequest(t, s, http.MethodGet, "/rules/revisions/"+revisions.Revisions[1].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	revision := decode[RevisionResponse](t, rec)
	require.NotNil(t, revision.Document)
	assert.Len(t, revision.Document.Rows, 1)

	rec = doRequest(t, s, http.MethodGet, "/rules/revisions/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/rules/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
}
