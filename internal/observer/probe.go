package observer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docstack/internal/config"
)

// Probe verifies that a running service is actually able to do its job.
// A nil error means the probe passed; any error means the service is
// degraded, with the error text as the diagnostic detail.
type Probe interface {
	Check(ctx context.Context, runtime Runtime, service string) error
	Describe() string
}

// NewProbe builds a probe from its configuration. Unknown probe types are
// rejected at config validation time; this fallback marks the service
// degraded rather than crashing an observation loop over one bad descriptor.
func NewProbe(cfg config.ProbeConfig) Probe {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	switch cfg.Type {
	case "exec":
		return &ExecProbe{Command: cfg.Command, Expect: cfg.Expect, Timeout: timeout}
	case "http":
		return &HTTPProbe{URL: cfg.URL, Timeout: timeout}
	default:
		return &brokenProbe{reason: fmt.Sprintf("unknown probe type %q", cfg.Type)}
	}
}

// ExecProbe runs a command inside the service container, e.g. pg_isready
// for PostgreSQL or "redis-cli ping" for Redis.
type ExecProbe struct {
	Command []string
	Expect  string // required substring in the output; empty means exit code only
	Timeout time.Duration
}

func (p *ExecProbe) Check(ctx context.Context, runtime Runtime, service string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	output, err := runtime.Exec(ctx, service, p.Command...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("probe timed out after %s", p.Timeout)
		}
		return fmt.Errorf("probe command failed: %v", err)
	}
	if p.Expect != "" && !strings.Contains(string(output), p.Expect) {
		return fmt.Errorf("probe output missing %q: %s", p.Expect, firstLine(output))
	}
	return nil
}

func (p *ExecProbe) Describe() string {
	return "exec " + strings.Join(p.Command, " ")
}

// HTTPProbe issues a GET against an endpoint the service publishes on the
// host and requires a 2xx response.
type HTTPProbe struct {
	URL     string
	Timeout time.Duration
}

func (p *HTTPProbe) Check(ctx context.Context, _ Runtime, _ string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("probe request invalid: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe got HTTP %d from %s", resp.StatusCode, p.URL)
	}
	return nil
}

func (p *HTTPProbe) Describe() string {
	return "http " + p.URL
}

// brokenProbe always fails with a fixed reason
type brokenProbe struct {
	reason string
}

func (p *brokenProbe) Check(context.Context, Runtime, string) error {
	return fmt.Errorf("%s", p.reason)
}

func (p *brokenProbe) Describe() string {
	return "broken: " + p.reason
}

func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
