package container

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstack/internal/errors"
)

// MockCommandExecutor for testing
type MockCommandExecutor struct {
	commands []MockCommand
	index    int
	captured [][]string
}

type MockCommand struct {
	output string
	fail   bool
}

func (m *MockCommandExecutor) CommandContext(_ context.Context, name string, args ...string) *exec.Cmd {
	m.captured = append(m.captured, append([]string{name}, args...))
	if m.index >= len(m.commands) {
		panic(fmt.Sprintf("unexpected command: %s %v", name, args))
	}
	mock := m.commands[m.index]
	m.index++

	if mock.fail {
		return exec.Command("false")
	}
	return exec.Command("echo", mock.output)
}

func TestStatus_ParsesLineDelimitedJSON(t *testing.T) {
	mock := &MockCommandExecutor{
		commands: []MockCommand{
			{output: `{"Service":"webserver","Name":"paperless-webserver-1","ID":"abc123","State":"running","Health":"healthy","ExitCode":0}`},
		},
	}
	runtime := NewComposeRuntime("/opt/paperless/docker-compose.yml", "paperless", mock)

	status, err := runtime.Status(context.Background(), "webserver")
	require.NoError(t, err)
	assert.Equal(t, "webserver", status.Service)
	assert.Equal(t, "abc123", status.ContainerID)
	assert.Equal(t, "running", status.State)
	assert.Equal(t, "healthy", status.Health)

	require.Len(t, mock.captured, 1)
	assert.Equal(t, []string{
		"docker", "compose", "-f", "/opt/paperless/docker-compose.yml", "-p", "paperless",
		"ps", "--all", "--format", "json", "webserver",
	}, mock.captured[0])
}

func TestStatus_NoOutputIsServiceNotFound(t *testing.T) {
	mock := &MockCommandExecutor{commands: []MockCommand{{output: ""}}}
	runtime := NewComposeRuntime("compose.yml", "", mock)

	_, err := runtime.Status(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceNotFound))
}

func TestStatus_CommandFailureIsRuntimeUnavailable(t *testing.T) {
	mock := &MockCommandExecutor{commands: []MockCommand{{fail: true}}}
	runtime := NewComposeRuntime("compose.yml", "", mock)

	_, err := runtime.Status(context.Background(), "webserver")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRuntimeUnavailable))
}

func TestParsePSOutput(t *testing.T) {
	t.Run("newline delimited objects", func(t *testing.T) {
		output := []byte(`{"Service":"webserver","State":"running"}
{"Service":"db","State":"exited","ExitCode":1}`)
		statuses := parsePSOutput(output)
		require.Len(t, statuses, 2)
		assert.Equal(t, "webserver", statuses[0].Service)
		assert.Equal(t, 1, statuses[1].ExitCode)
	})

	t.Run("single array", func(t *testing.T) {
		output := []byte(`[{"Service":"webserver","State":"running"},{"Service":"broker","State":"running"}]`)
		statuses := parsePSOutput(output)
		require.Len(t, statuses, 2)
		assert.Equal(t, "broker", statuses[1].Service)
	})

	t.Run("empty and malformed", func(t *testing.T) {
		assert.Nil(t, parsePSOutput(nil))
		assert.Nil(t, parsePSOutput([]byte("  \n")))
		assert.Nil(t, parsePSOutput([]byte("[]")))

		statuses := parsePSOutput([]byte("not json\n{\"Service\":\"db\",\"State\":\"running\"}"))
		require.Len(t, statuses, 1)
		assert.Equal(t, "db", statuses[0].Service)
	})
}

func TestComposeArgs_OmitsEmptyProject(t *testing.T) {
	runtime := NewComposeRuntime("compose.yml", "", &MockCommandExecutor{})
	assert.Equal(t, []string{"compose", "-f", "compose.yml", "stop"}, runtime.composeArgs("stop"))
}

func TestUp_PassesServiceNames(t *testing.T) {
	mock := &MockCommandExecutor{commands: []MockCommand{{output: "ok"}}}
	runtime := NewComposeRuntime("compose.yml", "paperless", mock)

	require.NoError(t, runtime.Up(context.Background(), "db", "broker"))
	require.Len(t, mock.captured, 1)
	assert.Equal(t, []string{
		"docker", "compose", "-f", "compose.yml", "-p", "paperless", "up", "-d", "db", "broker",
	}, mock.captured[0])
}

func TestStop_WholeStackWhenNoServicesGiven(t *testing.T) {
	mock := &MockCommandExecutor{commands: []MockCommand{{output: "ok"}}}
	runtime := NewComposeRuntime("compose.yml", "", mock)

	require.NoError(t, runtime.Stop(context.Background()))
	assert.Equal(t, []string{"docker", "compose", "-f", "compose.yml", "stop"}, mock.captured[0])
}

func TestStatusAll(t *testing.T) {
	mock := &MockCommandExecutor{
		commands: []MockCommand{
			{output: `[{"Service":"webserver","State":"running"},{"Service":"db","State":"running"}]`},
		},
	}
	runtime := NewComposeRuntime("compose.yml", "", mock)

	statuses, err := runtime.StatusAll(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "webserver", statuses[0].Service)
}

func TestContainerID(t *testing.T) {
	t.Run("resolves", func(t *testing.T) {
		mock := &MockCommandExecutor{commands: []MockCommand{{output: "f00dcafe1234"}}}
		runtime := NewComposeRuntime("compose.yml", "", mock)

		id, err := runtime.ContainerID(context.Background(), "webserver")
		require.NoError(t, err)
		assert.Equal(t, "f00dcafe1234", id)
	})

	t.Run("empty output is not found", func(t *testing.T) {
		mock := &MockCommandExecutor{commands: []MockCommand{{output: ""}}}
		runtime := NewComposeRuntime("compose.yml", "", mock)

		_, err := runtime.ContainerID(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrServiceNotFound))
	})
}

func TestExec_RunsInsideService(t *testing.T) {
	mock := &MockCommandExecutor{commands: []MockCommand{{output: "accepting connections"}}}
	runtime := NewComposeRuntime("compose.yml", "", mock)

	output, err := runtime.Exec(context.Background(), "db", "pg_isready", "-U", "paperless")
	require.NoError(t, err)
	assert.Contains(t, string(output), "accepting connections")
	assert.Equal(t, []string{
		"docker", "compose", "-f", "compose.yml", "exec", "-T", "db", "pg_isready", "-U", "paperless",
	}, mock.captured[0])
}
