package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstack/internal/errors"
)

const composeContent = `
services:
  webserver:
    image: ghcr.io/paperless-ngx/paperless-ngx:latest
  db:
    image: postgres:16
  broker:
    image: redis:7
  gotenberg:
    image: gotenberg/gotenberg:8
`

func writeTestConfig(t *testing.T, tomlContent string) string {
	t.Helper()
	dir := t.TempDir()
	composePath := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(composeContent), 0644))

	configPath := filepath.Join(dir, "docstack.toml")
	content := "[stack]\ncompose_file = \"" + composePath + "\"\n" + tomlContent
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoadFrom_Defaults(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadFrom(writeTestConfig(t, "")))

	f := m.File
	assert.Equal(t, "docstack", f.Stack.Name)
	assert.Equal(t, "webserver", f.Stack.PrimaryService)
	assert.Equal(t, 120, f.Readiness.RunningAttempts)
	assert.Equal(t, 120, f.Readiness.HealthyAttempts)
	assert.Equal(t, 30, f.Readiness.VerifyAttempts)
	assert.Equal(t, 1, f.Readiness.IntervalSeconds)
	assert.Equal(t, 3, f.Monitor.FailureThreshold)
	assert.Equal(t, "db", f.Database.Service)
	assert.Equal(t, 7, f.Backup.KeepQuick)
	assert.Equal(t, 4, f.Backup.KeepFull)
	assert.Equal(t, "127.0.0.1", f.Server.Host)
	assert.Equal(t, 8417, f.Server.Port)
	assert.Equal(t, filepath.Dir(f.Stack.ComposeFile), f.Backup.ConfigDir)
}

func TestLoadFrom_ComposeServicesGetDefaultDescriptors(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadFrom(writeTestConfig(t, `
[services.webserver]
role = "stateful"
`)))

	// all four compose services are managed, configured or not
	assert.Equal(t, []string{"broker", "db", "gotenberg", "webserver"}, m.ServiceNames())
	assert.Equal(t, "stateful", m.File.Services["webserver"].Role)
	assert.Equal(t, "stateless", m.File.Services["broker"].Role)
}

func TestLoadFrom_ProbeConfig(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadFrom(writeTestConfig(t, `
[services.db]
role = "stateful"
[services.db.probe]
type = "exec"
command = ["pg_isready", "-U", "paperless"]
expect = "accepting connections"

[services.webserver]
role = "stateful"
[services.webserver.probe]
type = "http"
url = "http://localhost:8000"
timeout_seconds = 10
`)))

	dbProbe := m.File.Services["db"].Probe
	require.NotNil(t, dbProbe)
	assert.Equal(t, "exec", dbProbe.Type)
	assert.Equal(t, 5, dbProbe.TimeoutSeconds, "probe timeout defaults to 5s")

	webProbe := m.File.Services["webserver"].Probe
	require.NotNil(t, webProbe)
	assert.Equal(t, 10, webProbe.TimeoutSeconds)
}

func TestLoadFrom_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad role", "[services.db]\nrole = \"sideways\"\n"},
		{"exec probe without command", "[services.db]\nrole = \"stateful\"\n[services.db.probe]\ntype = \"exec\"\n"},
		{"http probe without url", "[services.db]\nrole = \"stateful\"\n[services.db.probe]\ntype = \"http\"\n"},
		{"unknown probe type", "[services.db]\nrole = \"stateful\"\n[services.db.probe]\ntype = \"icmp\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().LoadFrom(writeTestConfig(t, tt.toml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfigValidation))
		})
	}
}

func TestLoadFrom_MissingComposeFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "docstack.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[stack]\nname = \"paperless\"\n"), 0644))

	err := New().LoadFrom(configPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigValidation))
}

func TestLoadFrom_MissingFile(t *testing.T) {
	err := New().LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigNotFound))
}

func TestLoadFrom_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docstack.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stack\nbroken"), 0644))

	err := New().LoadFrom(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigParse))
}

func TestLoad_HonorsEnvOverride(t *testing.T) {
	path := writeTestConfig(t, "")
	t.Setenv("DOCSTACK_CONFIG", path)

	m := New()
	require.NoError(t, m.Load())
	assert.Equal(t, path, m.Path)
}
