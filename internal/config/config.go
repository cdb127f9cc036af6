// Package config handles loading and validation of the docstack configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"docstack/internal/compose"
	"docstack/internal/errors"
	"docstack/internal/logger"
	"docstack/internal/xdg"
)

// DefaultFileName is the configuration file name looked up in the XDG config dir.
const DefaultFileName = "docstack.toml"

// Manager handles configuration loading and validation
type Manager struct {
	File *File
	Path string
}

// File is the top-level docstack.toml structure
type File struct {
	Stack     StackConfig              `toml:"stack"`
	Services  map[string]ServiceConfig `toml:"services"`
	Readiness ReadinessConfig          `toml:"readiness"`
	Monitor   MonitorConfig            `toml:"monitor"`
	Alerts    AlertsConfig             `toml:"alerts"`
	Database  DatabaseConfig           `toml:"database"`
	Backup    BackupConfig             `toml:"backup"`
	Server    ServerConfig             `toml:"server"`
}

// StackConfig identifies the managed compose deployment
type StackConfig struct {
	Name           string `toml:"name"`
	ComposeFile    string `toml:"compose_file"`
	Project        string `toml:"project"`         // compose project name (-p)
	PrimaryService string `toml:"primary_service"` // the application container
}

// ServiceConfig describes one managed service
type ServiceConfig struct {
	Role  string       `toml:"role"` // "stateful" or "stateless"
	Probe *ProbeConfig `toml:"probe"`
}

// ProbeConfig describes the health probe for a service
type ProbeConfig struct {
	Type           string   `toml:"type"`    // "exec" or "http"
	Command        []string `toml:"command"` // exec: command run inside the container
	Expect         string   `toml:"expect"`  // exec: required substring in the output
	URL            string   `toml:"url"`     // http: endpoint on the host
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// ReadinessConfig holds the startup wait budgets
type ReadinessConfig struct {
	RunningAttempts int      `toml:"running_attempts"`
	HealthyAttempts int      `toml:"healthy_attempts"`
	VerifyAttempts  int      `toml:"verify_attempts"`
	IntervalSeconds int      `toml:"interval_seconds"`
	VerifyCommand   []string `toml:"verify_command"` // functional no-op run in the primary service
}

// MonitorConfig holds the health monitor daemon settings
type MonitorConfig struct {
	FailureThreshold int    `toml:"failure_threshold"`
	LogFile          string `toml:"log_file"`
}

// AlertsConfig holds alert sink configuration
type AlertsConfig struct {
	Webhooks []string    `toml:"webhooks"`
	Email    EmailConfig `toml:"email"`
}

// EmailConfig holds SMTP settings for the email sink
type EmailConfig struct {
	To       string `toml:"to"`
	From     string `toml:"from"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// DatabaseConfig identifies the application database inside the stack
type DatabaseConfig struct {
	Service string `toml:"service"` // compose service running PostgreSQL
	Name    string `toml:"name"`
	User    string `toml:"user"`
}

// BackupConfig holds snapshot and retention settings
type BackupConfig struct {
	Directory string `toml:"directory"`  // archive destination; defaults to XDG data dir
	ConfigDir string `toml:"config_dir"` // deployment config to include; defaults to the compose file's dir
	MediaPath string `toml:"media_path"` // document/media files captured by Full backups
	KeepQuick int    `toml:"keep_quick"`
	KeepFull  int    `toml:"keep_full"`
}

// ServerConfig holds the status API server settings
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// New creates a new configuration manager
func New() *Manager {
	return &Manager{}
}

// Load reads the configuration from DOCSTACK_CONFIG or the XDG config dir.
func (m *Manager) Load() error {
	path := os.Getenv("DOCSTACK_CONFIG")
	if path == "" {
		configDir, err := xdg.ConfigDir()
		if err != nil {
			return errors.Wrap(err, errors.ErrConfigNotFound, "cannot determine config directory")
		}
		path = filepath.Join(configDir, DefaultFileName)
	}
	return m.LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path.
func (m *Manager) LoadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigNotFound, fmt.Sprintf("cannot read %s", path))
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, fmt.Sprintf("cannot parse %s", path))
	}

	f.applyDefaults()
	if err := f.validate(); err != nil {
		return err
	}

	m.File = &f
	m.Path = path

	m.crossCheckCompose()
	return nil
}

// applyDefaults fills in zero-value fields
func (f *File) applyDefaults() {
	if f.Stack.Name == "" {
		f.Stack.Name = "docstack"
	}
	if f.Stack.PrimaryService == "" {
		f.Stack.PrimaryService = "webserver"
	}
	if f.Services == nil {
		f.Services = map[string]ServiceConfig{}
	}
	if f.Readiness.RunningAttempts <= 0 {
		f.Readiness.RunningAttempts = 120
	}
	if f.Readiness.HealthyAttempts <= 0 {
		f.Readiness.HealthyAttempts = 120
	}
	if f.Readiness.VerifyAttempts <= 0 {
		f.Readiness.VerifyAttempts = 30
	}
	if f.Readiness.IntervalSeconds <= 0 {
		f.Readiness.IntervalSeconds = 1
	}
	if f.Monitor.FailureThreshold <= 0 {
		f.Monitor.FailureThreshold = 3
	}
	if f.Monitor.LogFile == "" {
		f.Monitor.LogFile = filepath.Join(xdg.LogsDir(), "docstack.log")
	}
	if f.Database.Service == "" {
		f.Database.Service = "db"
	}
	if f.Database.Name == "" {
		f.Database.Name = "docstack"
	}
	if f.Database.User == "" {
		f.Database.User = "docstack"
	}
	if f.Backup.Directory == "" {
		if dataDir, err := xdg.DataDir(); err == nil {
			f.Backup.Directory = filepath.Join(dataDir, "backups")
		}
	}
	if f.Backup.ConfigDir == "" && f.Stack.ComposeFile != "" {
		f.Backup.ConfigDir = filepath.Dir(f.Stack.ComposeFile)
	}
	if f.Backup.KeepQuick <= 0 {
		f.Backup.KeepQuick = 7
	}
	if f.Backup.KeepFull <= 0 {
		f.Backup.KeepFull = 4
	}
	if f.Server.Host == "" {
		f.Server.Host = "127.0.0.1"
	}
	if f.Server.Port <= 0 {
		f.Server.Port = 8417
	}
	if f.Alerts.Email.SMTPPort <= 0 {
		f.Alerts.Email.SMTPPort = 25
	}

	for name, svc := range f.Services {
		if svc.Role == "" {
			svc.Role = "stateless"
		}
		if svc.Probe != nil && svc.Probe.TimeoutSeconds <= 0 {
			svc.Probe.TimeoutSeconds = 5
		}
		f.Services[name] = svc
	}
}

// validate rejects configurations that cannot drive the stack at all
func (f *File) validate() error {
	if f.Stack.ComposeFile == "" {
		return errors.New(errors.ErrConfigValidation, "stack.compose_file is required")
	}
	for name, svc := range f.Services {
		if svc.Role != "stateful" && svc.Role != "stateless" {
			return errors.Newf(errors.ErrConfigValidation, "service %s: role must be stateful or stateless, got %q", name, svc.Role)
		}
		if svc.Probe == nil {
			continue
		}
		switch svc.Probe.Type {
		case "exec":
			if len(svc.Probe.Command) == 0 {
				return errors.Newf(errors.ErrConfigValidation, "service %s: exec probe requires a command", name)
			}
		case "http":
			if svc.Probe.URL == "" {
				return errors.Newf(errors.ErrConfigValidation, "service %s: http probe requires a url", name)
			}
		default:
			return errors.Newf(errors.ErrConfigValidation, "service %s: unknown probe type %q", name, svc.Probe.Type)
		}
	}
	return nil
}

// crossCheckCompose warns about drift between docstack.toml and the compose
// file. A missing or unreadable compose file is not fatal here; the observer
// reports those services as down at runtime.
func (m *Manager) crossCheckCompose() {
	cf, err := compose.Parse(m.File.Stack.ComposeFile)
	if err != nil {
		logger.WithError(err).Warn("Cannot cross-check services against compose file")
		return
	}

	for name := range m.File.Services {
		if !cf.HasService(name) {
			logger.WithField("service", name).Warn("Configured service not present in compose file")
		}
	}

	// Services present in the compose file but absent from docstack.toml are
	// still managed; they get a default stateless descriptor with no probe.
	for _, name := range cf.ServiceNames() {
		if _, ok := m.File.Services[name]; !ok {
			m.File.Services[name] = ServiceConfig{Role: "stateless"}
		}
	}
}

// ServiceNames returns the configured service names in deterministic order
func (m *Manager) ServiceNames() []string {
	names := make([]string, 0, len(m.File.Services))
	for name := range m.File.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
