package cli

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/config"
	"github.com/tansive/sessionactions/internal/server"
)

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	prev := config.Config()
	t.Cleanup(func() { config.SetConfig(prev) })

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func startProxy(t *testing.T) *httptest.Server {
	t.Helper()
	prev := config.Config()
	config.SetConfig(config.Default())
	t.Cleanup(func() { config.SetConfig(prev) })

	s, err := server.CreateNewServer(action.DefaultRegistry())
	require.NoError(t, err)
	s.MountHandlers()
	ts := httptest.NewServer(s.Router)
	t.Cleanup(ts.Close)
	return ts
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, server.Version)

	out, _, err = executeCommand(t, "version", "-j")
	require.NoError(t, err)
	assert.Equal(t, server.Version, gjson.Get(out, "version").String())
}

func TestInvokeLocal(t *testing.T) {
	out, _, err := executeCommand(t, "invoke", "startSession", "-p", "strategy=greedy", "-p", "sessionId=42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"startSession","sessionId":42,"strategy":"greedy"}`, out)

	out, _, err = executeCommand(t, "invoke", "stop-session", "-p", "sessionId=7", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "command: stopSession\nsessionId: 7\n", out)

	out, _, err = executeCommand(t, "invoke", "startSession", "-p", "sessionId=42")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)

	out, _, err = executeCommand(t, "invoke", "startSession", "-p", "strategy=greedy")
	require.NoError(t, err)
	assert.Positive(t, gjson.Get(out, "sessionId").Int())
}

func TestInvokeLocalErrors(t *testing.T) {
	_, stderr, err := executeCommand(t, "invoke", "stopSession")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, "sessionId")

	out, _, err := executeCommand(t, "invoke", "stopSession", "-p", `sessionId="7"`, "-j")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.NotEmpty(t, gjson.Get(out, "error").String())

	_, _, err = executeCommand(t, "invoke", "pauseSession")
	assert.ErrorIs(t, err, ErrAlreadyHandled)

	_, _, err = executeCommand(t, "invoke", "stopSession", "-p", "novalue")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyHandled)

	_, _, err = executeCommand(t, "invoke", "stopSession", "-o", "xml")
	assert.Error(t, err)
}

func TestInvokeWithParamsFile(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("strategy: {{ .ENV.SA_CLI_STRATEGY }}\nsessionId: 42\n"), 0o600))
	t.Setenv("SA_CLI_STRATEGY", "leastLoaded")

	out, _, err := executeCommand(t, "invoke", "startSession", "-f", yamlFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"startSession","sessionId":42,"strategy":"leastLoaded"}`, out)

	// -p overrides the file
	out, _, err = executeCommand(t, "invoke", "startSession", "-f", yamlFile, "-p", "sessionId=43")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"startSession","sessionId":43,"strategy":"leastLoaded"}`, out)

	jsonFile := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"sessionId":9}`), 0o600))
	out, _, err = executeCommand(t, "invoke", "stopSession", "-f", jsonFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"stopSession","sessionId":9}`, out)
}

func TestInvokeRemote(t *testing.T) {
	ts := startProxy(t)

	out, _, err := executeCommand(t, "invoke", "stopSession", "-p", "sessionId=7", "--endpoint", ts.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"stopSession","sessionId":7}`, out)

	out, _, err = executeCommand(t, "invoke", "stopSession", "--endpoint", ts.URL, "-j")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, gjson.Get(out, "error").String(), "sessionId")
}

func TestStatus(t *testing.T) {
	ts := startProxy(t)

	out, _, err := executeCommand(t, "status", "--endpoint", ts.URL, "-j")
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "ready").Bool())
	assert.True(t, gjson.Get(out, "compatible").Bool())
	assert.Equal(t, server.Version, gjson.Get(out, "serverVersion").String())

	out, _, err = executeCommand(t, "status", "--endpoint", ts.URL)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "startSession, stopSession"))
}

func TestStatusNotReady(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	_, stderr, err := executeCommand(t, "status", "--endpoint", url, "--wait", "50ms", "--interval", "10ms")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, "not ready")
}

func TestConfigFileNotFound(t *testing.T) {
	_, _, err := executeCommand(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.conf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestServeRejectsInvalidPort(t *testing.T) {
	for _, port := range []string{"abc", "99999", "0"} {
		_, _, err := executeCommand(t, "serve", "--port", port)
		require.Error(t, err, port)
		assert.Contains(t, err.Error(), "invalid --port", port)
	}
}

func TestLoopRequiresAction(t *testing.T) {
	_, _, err := executeCommand(t, "loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action given")

	_, _, err = executeCommand(t, "loop", "pauseSession")
	assert.Error(t, err)
}

func TestBuildParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    string
		wantErr bool
	}{
		{"empty", nil, `{}`, false},
		{"string value", []string{"strategy=greedy"}, `{"strategy":"greedy"}`, false},
		{"number value", []string{"sessionId=42"}, `{"sessionId":42}`, false},
		{"quoted number stays a string", []string{`strategy="42"`}, `{"strategy":"42"}`, false},
		{"value with equals", []string{"strategy=a=b"}, `{"strategy":"a=b"}`, false},
		{"nested path", []string{"meta.owner=ops"}, `{"meta":{"owner":"ops"}}`, false},
		{"later pair wins", []string{"sessionId=1", "sessionId=2"}, `{"sessionId":2}`, false},
		{"missing equals", []string{"strategy"}, ``, true},
		{"empty key", []string{"=x"}, ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildParams("", tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestReadParamsFileRejectsNonObject(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(file, []byte(`[1,2]`), 0o600))
	_, err := buildParams(file, nil)
	assert.Error(t, err)
}
