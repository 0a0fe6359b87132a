package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/heatline/internal/config"
	"github.com/coral-mesh/heatline/internal/profiler"
	"github.com/coral-mesh/heatline/internal/server"
	"github.com/coral-mesh/heatline/internal/testutil"
	"github.com/coral-mesh/heatline/internal/tree"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	session, err := profiler.NewSession(testutil.NewFakeEngine(), profiler.SessionConfig{}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(server.NewDispatcher(session, 0, testutil.NewTestLogger(t)))
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestControlCommands(t *testing.T) {
	addr := startTestServer(t)

	out, _, err := run(t, "info", "--addr", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "idle")

	out, _, err = run(t, "start", "--addr", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Profiling started")

	_, _, err = run(t, "start", "--addr", addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	out, _, err = run(t, "info", "--addr", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "running")

	out, stderr, err := run(t, "stop", "--addr", addr)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Nodes: 4, samples: 4")

	var root tree.Node
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "(root)", root.Name)

	_, _, err = run(t, "stop", "--addr", addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestStopCommand_OutputFile(t *testing.T) {
	addr := startTestServer(t)
	path := filepath.Join(t.TempDir(), "profile.txt")

	_, _, err := run(t, "start", "--addr", addr)
	require.NoError(t, err)
	out, _, err := run(t, "stop", "--addr", addr, "--format", "folded", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "main.main;main.work 3\nruntime.gcBgMarkWorker 1\n", string(data))
}

func TestStopCommand_UnknownFormat(t *testing.T) {
	_, _, err := run(t, "stop", "--addr", "127.0.0.1:1", "--format", "svg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatline.yaml")

	out, _, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.MaxNodes, cfg.Server.MaxNodes)

	_, _, err = run(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = run(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Heatline version")
}

func TestRenderTree(t *testing.T) {
	root := tree.Serialize(testutil.NewFakeEngine().Root)

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, root, 0))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "(root)"))
	assert.Contains(t, lines[0], "[self 0, total 4]")
	assert.True(t, strings.HasPrefix(lines[1], "  main.main"))
	assert.Contains(t, lines[1], "[self 0, total 3]")
	assert.True(t, strings.HasPrefix(lines[2], "    main.work"))
	assert.Contains(t, lines[2], "main.work.go:1")

	buf.Reset()
	require.NoError(t, renderTree(&buf, root, 1))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"), "depth 1 shows root and its children")
}

func TestResolveServeConfig(t *testing.T) {
	t.Setenv("HEATLINE_CONFIG", "")
	t.Setenv("HEATLINE_PORT", "9000")

	opts := &serveOptions{}
	cmd := newServeCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--sampling-interval", "250", "--log-level", "debug"}))

	cfg, err := resolveServeConfig(cmd, opts)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port, "env applies when the flag is not set")
	assert.Equal(t, 250, cfg.Profiler.SamplingIntervalMicros)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)

	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100"}))
	cfg, err = resolveServeConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "flags win over env")

	require.NoError(t, cmd.ParseFlags([]string{"--sampling-interval=-3"}))
	_, err = resolveServeConfig(cmd, opts)
	assert.Error(t, err)
}
