package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstack/internal/container"
	"docstack/internal/observer"
)

// scriptedRuntime replays a per-service sequence of statuses; the last entry
// repeats once the script is exhausted. Exec calls replay execErrs the same
// way.
type scriptedRuntime struct {
	mu       sync.Mutex
	statuses map[string][]*container.ServiceStatus
	calls    map[string]int
	execErrs []error
	execs    int
}

func (s *scriptedRuntime) Status(_ context.Context, service string) (*container.ServiceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	script := s.statuses[service]
	if len(script) == 0 {
		return nil, fmt.Errorf("no script for %s", service)
	}
	i := s.calls[service]
	if i >= len(script) {
		i = len(script) - 1
	}
	s.calls[service]++
	return script[i], nil
}

func (s *scriptedRuntime) Exec(_ context.Context, _ string, _ ...string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.execs
	s.execs++
	if i >= len(s.execErrs) {
		if len(s.execErrs) == 0 {
			return []byte("ok"), nil
		}
		i = len(s.execErrs) - 1
	}
	if err := s.execErrs[i]; err != nil {
		return nil, err
	}
	return []byte("ok"), nil
}

func running(service string) *container.ServiceStatus {
	return &container.ServiceStatus{Service: service, State: "running"}
}

func exited(service string) *container.ServiceStatus {
	return &container.ServiceStatus{Service: service, State: "exited", ExitCode: 1}
}

func newTestOrchestrator(runtime observer.Runtime) *Orchestrator {
	o := New(observer.New(runtime), runtime)
	o.SetInterval(time.Millisecond)
	return o
}

func TestAwaitReady_AllHealthy(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {running("webserver")},
			"broker":    {running("broker")},
		},
	}
	descs := []observer.Descriptor{
		{Name: "webserver", Probe: &observer.ExecProbe{Command: []string{"true"}, Timeout: time.Second}},
		{Name: "broker"},
	}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", []string{"id"}, Budgets{Running: 5, Healthy: 5, Verify: 5})

	assert.Equal(t, AllHealthy, report.Result)
	assert.True(t, report.Verified)
	assert.Empty(t, report.NotRunning)
	assert.Empty(t, report.NotHealthy)
	assert.Equal(t, "all services healthy", report.Summary())
}

func TestAwaitReady_SlowServiceComesUpWithinBudget(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {exited("webserver"), exited("webserver"), running("webserver")},
			"broker":    {running("broker")},
		},
	}
	descs := []observer.Descriptor{{Name: "webserver"}, {Name: "broker"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", nil, Budgets{Running: 10, Healthy: 5, Verify: 5})

	assert.Equal(t, AllHealthy, report.Result)
	assert.Empty(t, report.NotRunning)
}

func TestAwaitReady_PartialTimeoutNamesLaggards(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {running("webserver")},
			"tika":      {exited("tika")},
			"gotenberg": {exited("gotenberg")},
		},
	}
	descs := []observer.Descriptor{{Name: "webserver"}, {Name: "tika"}, {Name: "gotenberg"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", nil, Budgets{Running: 3, Healthy: 3, Verify: 3})

	assert.Equal(t, PartialTimeout, report.Result)
	assert.Equal(t, []string{"gotenberg", "tika"}, report.NotRunning)
	assert.Contains(t, report.Summary(), "gotenberg")
	assert.Contains(t, report.Summary(), "tika")
}

func TestAwaitReady_FailedWhenNothingComesUp(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {exited("webserver")},
			"db":        {exited("db")},
		},
	}
	descs := []observer.Descriptor{{Name: "webserver"}, {Name: "db"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", nil, Budgets{Running: 3, Healthy: 3, Verify: 3})

	assert.Equal(t, Failed, report.Result)
	assert.Equal(t, []string{"db", "webserver"}, report.NotRunning)
}

func TestAwaitReady_DegradedProbeTimesOutHealthyPhase(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"db": {running("db")},
		},
		execErrs: []error{fmt.Errorf("pg_isready: no response")},
	}
	descs := []observer.Descriptor{
		{Name: "db", Probe: &observer.ExecProbe{Command: []string{"pg_isready"}, Timeout: time.Second}},
	}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"", nil, Budgets{Running: 3, Healthy: 3, Verify: 3})

	assert.Equal(t, PartialTimeout, report.Result)
	assert.Equal(t, []string{"db"}, report.NotHealthy)
}

func TestAwaitReady_VerifyRetriesThenSucceeds(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {running("webserver")},
		},
		execErrs: []error{fmt.Errorf("not ready"), fmt.Errorf("not ready"), nil},
	}
	descs := []observer.Descriptor{{Name: "webserver"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", []string{"document_exporter", "--help"}, Budgets{Running: 3, Healthy: 3, Verify: 5})

	assert.Equal(t, AllHealthy, report.Result)
	assert.True(t, report.Verified)
}

func TestAwaitReady_VerifyExhaustedIsPartial(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {running("webserver")},
		},
		execErrs: []error{fmt.Errorf("exec format error")},
	}
	descs := []observer.Descriptor{{Name: "webserver"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"webserver", []string{"document_exporter", "--help"}, Budgets{Running: 3, Healthy: 3, Verify: 2})

	assert.Equal(t, PartialTimeout, report.Result)
	assert.False(t, report.Verified)
	assert.Contains(t, report.Detail, "webserver")
}

func TestAwaitReady_EmptyVerifyCommandSkipsPhase(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"broker": {running("broker")},
		},
	}
	descs := []observer.Descriptor{{Name: "broker"}}

	report := newTestOrchestrator(runtime).AwaitReady(context.Background(), descs,
		"", nil, Budgets{Running: 3, Healthy: 3, Verify: 3})

	assert.Equal(t, AllHealthy, report.Result)
	assert.True(t, report.Verified)
	assert.Zero(t, runtime.execs)
}

func TestAwaitReady_CancelledContextDegradesToPartial(t *testing.T) {
	runtime := &scriptedRuntime{
		statuses: map[string][]*container.ServiceStatus{
			"webserver": {exited("webserver")},
			"broker":    {running("broker")},
		},
	}
	descs := []observer.Descriptor{{Name: "webserver"}, {Name: "broker"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(observer.New(runtime), runtime)
	o.SetInterval(time.Hour) // a real wait here would hang the test
	report := o.AwaitReady(ctx, descs, "", nil, Budgets{Running: 100, Healthy: 100, Verify: 100})

	require.NotNil(t, report)
	assert.Equal(t, PartialTimeout, report.Result)
	assert.Equal(t, []string{"webserver"}, report.NotRunning)
}
