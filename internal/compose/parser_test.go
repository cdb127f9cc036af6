package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	path := writeCompose(t, `
version: "3.4"
services:
  broker:
    image: docker.io/library/redis:7
    restart: unless-stopped
  db:
    image: docker.io/library/postgres:16
    restart: unless-stopped
    healthcheck:
      test: ["CMD", "pg_isready", "-U", "paperless"]
      interval: 5s
      timeout: 5s
      retries: 5
  webserver:
    image: ghcr.io/paperless-ngx/paperless-ngx:latest
    depends_on:
      - db
      - broker
volumes:
  data:
  media:
`)

	f, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "3.4", f.Version)
	assert.Equal(t, []string{"broker", "db", "webserver"}, f.ServiceNames())
	assert.True(t, f.HasService("webserver"))
	assert.False(t, f.HasService("tika"))

	db := f.Services["db"]
	assert.Equal(t, "db", db.Name)
	require.NotNil(t, db.HealthCheck)
	assert.Equal(t, StringOrSlice{"CMD", "pg_isready", "-U", "paperless"}, db.HealthCheck.Test)
	assert.Equal(t, 5, db.HealthCheck.Retries)

	assert.Equal(t, StringOrSlice{"db", "broker"}, f.Services["webserver"].DependsOn)
}

func TestParse_DependsOnVariants(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		path := writeCompose(t, `
services:
  webserver:
    image: app
    depends_on: db
  db:
    image: postgres
`)
		f, err := Parse(path)
		require.NoError(t, err)
		assert.Equal(t, StringOrSlice{"db"}, f.Services["webserver"].DependsOn)
	})

	t.Run("mapping with conditions", func(t *testing.T) {
		path := writeCompose(t, `
services:
  webserver:
    image: app
    depends_on:
      db:
        condition: service_healthy
      broker:
        condition: service_started
`)
		f, err := Parse(path)
		require.NoError(t, err)
		assert.Equal(t, StringOrSlice{"broker", "db"}, f.Services["webserver"].DependsOn)
	})
}

func TestParse_EmptyServiceBody(t *testing.T) {
	path := writeCompose(t, `
services:
  gotenberg:
`)
	f, err := Parse(path)
	require.NoError(t, err)
	require.True(t, f.HasService("gotenberg"))
	assert.Equal(t, "gotenberg", f.Services["gotenberg"].Name)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	path := writeCompose(t, "services: [broken")
	_, err := Parse(path)
	require.Error(t, err)
}
