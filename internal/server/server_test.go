package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstack/internal/config"
	"docstack/internal/container"
	"docstack/internal/db"
	"docstack/internal/observer"
	"docstack/internal/types"
)

type staticRuntime struct {
	states map[string]string
}

func (r *staticRuntime) Status(_ context.Context, service string) (*container.ServiceStatus, error) {
	return &container.ServiceStatus{Service: service, State: r.states[service]}, nil
}

func (r *staticRuntime) Exec(context.Context, string, ...string) ([]byte, error) {
	return []byte("ok"), nil
}

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.New(&db.Config{
		Driver:       "sqlite3",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })

	cfg := &config.Manager{File: &config.File{
		Stack:  config.StackConfig{Name: "paperless"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}}
	runtime := &staticRuntime{states: map[string]string{
		"webserver": "running",
		"db":        "exited",
	}}
	descs := []observer.Descriptor{{Name: "db"}, {Name: "webserver"}}

	srv := New(cfg, observer.New(runtime), descs, db.NewBackupRepository(database), db.NewAlertRepository(database))
	return srv, database
}

func doRequest(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var report types.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, "paperless", report.Stack)
	assert.False(t, report.AllHealthy)
	require.Len(t, report.Services, 2)
	assert.Equal(t, "db", report.Services[0].Service)
	assert.Equal(t, "down", report.Services[0].State)
	assert.Equal(t, "running", report.Services[1].State)
}

func TestBackupsEndpoint(t *testing.T) {
	srv, database := newTestServer(t)

	require.NoError(t, db.NewBackupRepository(database).Insert(context.Background(), &db.BackupRecord{
		ID:          "11111111-2222-3333-4444-555555555555",
		CreatedAt:   time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		Tier:        "quick",
		Artifacts:   `["database","config"]`,
		SizeBytes:   2048,
		ArchivePath: "/var/backups/x",
		Warnings:    `[]`,
	}))

	rec := doRequest(t, srv, "/api/backups")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []types.BackupSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "quick", summaries[0].Tier)
	assert.Equal(t, []string{"database", "config"}, summaries[0].Artifacts)
}

func TestBackupsEndpoint_EmptyListIsNotNull(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "/api/backups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(json.RawMessage(rec.Body.Bytes()[:2])))
}

func TestAlertsEndpoint_HonorsLimit(t *testing.T) {
	srv, database := newTestServer(t)
	repo := db.NewAlertRepository(database)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(context.Background(), &db.AlertRecord{
			Severity:  "alert",
			Title:     "outage",
			Body:      "details",
			Host:      "docserver",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := doRequest(t, srv, "/api/alerts?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []db.AlertRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}
