package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cleitonmarx/teardown"
	"github.com/cleitonmarx/teardown/config"
	"github.com/cleitonmarx/teardown/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planTOML = `
default-timeout = "1s"

[phases.stop-http]

[phases.drain]
depends-on = ["stop-http"]
timeout = "2s"

[phases.close-db]
depends-on = ["drain"]
recover = false
`

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetGlobalProvider)

	var stdout, stderr bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	testCases := map[string]struct {
		plan      string
		expectErr string
	}{
		"valid": {
			plan: planTOML,
		},
		"cycle": {
			plan: `
[phases.a]
depends-on = ["b"]
[phases.b]
depends-on = ["a"]
`,
			expectErr: "dependency cycle detected: a -> b -> a",
		},
		"unknown-key": {
			plan:      "[phases.a]\nretries = 3\n",
			expectErr: "retries",
		},
	}

	for name, tt := range testCases {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(t, "validate", "--log-level", "error", "-c", writePlan(t, "plan.toml", tt.plan))
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok\n", out)
		})
	}
}

func TestOrderCommand(t *testing.T) {
	t.Run("document", func(t *testing.T) {
		out, _, err := execute(t, "order", "--config", writePlan(t, "plan.toml", planTOML))
		require.NoError(t, err)
		assert.Equal(t, "1. stop-http timeout=1s on-failure=continue\n"+
			"2. drain timeout=2s on-failure=continue\n"+
			"3. close-db timeout=1s on-failure=abort\n", out)
	})

	t.Run("builtin-merged-with-document", func(t *testing.T) {
		plan := writePlan(t, "plan.yaml", "phases:\n  flush-metrics:\n    depends-on: [service-stop]\n")
		out, _, err := execute(t, "order", "--builtin", "-c", plan)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 7)
		assert.True(t, strings.HasPrefix(lines[0], "1. "+phase.BeforeServiceUnbind+" "))
		assert.Contains(t, out, "flush-metrics timeout=5s")
		assert.True(t, strings.HasPrefix(lines[6], "7. "+phase.ProcessExit+" timeout=10s on-failure=abort"))
	})

	t.Run("builtin-from-environment", func(t *testing.T) {
		t.Setenv("TEARDOWN_BUILTIN", "true")
		out, _, err := execute(t, "order")
		require.NoError(t, err)
		assert.Contains(t, out, "6. "+phase.ProcessExit)
	})

	t.Run("no-phases", func(t *testing.T) {
		_, _, err := execute(t, "order")
		assert.ErrorIs(t, err, errNoPhases)
	})
}

func TestGraphCommand(t *testing.T) {
	out, _, err := execute(t, "graph", "-c", writePlan(t, "plan.json",
		`{"phases": {"stop-http": {}, "close-db": {"depends-on": ["stop-http"], "recover": false}}}`))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "phase_stop_http --> phase_close_db")
}

func TestSimulateCommand(t *testing.T) {
	plan := writePlan(t, "plan.toml", planTOML)

	t.Run("success", func(t *testing.T) {
		out, _, err := execute(t, "simulate", "-c", plan, "--task-delay", "1ms")
		require.NoError(t, err)
		assert.Contains(t, out, "ok       stop-http")
		assert.Contains(t, out, "ok       close-db")
		assert.Contains(t, out, "3/3 phases")
	})

	t.Run("recovered-failure", func(t *testing.T) {
		out, _, err := execute(t, "simulate", "-c", plan, "--task-delay", "1ms", "--fail", "drain")
		require.NoError(t, err)
		assert.Contains(t, out, "recovered drain")
		assert.Contains(t, out, "recovered: teardown: task \"simulated-drain\" in phase \"drain\" failed: simulated failure")
	})

	t.Run("fatal-failure", func(t *testing.T) {
		out, stderr, err := execute(t, "simulate", "-c", plan, "--task-delay", "1ms", "--fail", "close-db", "--log-encoder", "json")
		require.ErrorIs(t, err, teardown.ErrTaskFailed)
		assert.Contains(t, out, "failed   close-db")
		assert.Contains(t, out, "aborted:")
		assert.Contains(t, stderr, `"msg":"phase failed, aborting shutdown"`)
	})

	t.Run("invalid-log-level", func(t *testing.T) {
		_, _, err := execute(t, "simulate", "-c", plan, "--log-level", "loud")
		assert.ErrorContains(t, err, "cannot set logger level")
	})
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("TEARDOWN_LOG_LEVEL", "debug")
	t.Setenv("TEARDOWN_LOG_ENCODER", "json")
	t.Cleanup(config.ResetGlobalProvider)

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "warn", "-c", "plan.toml"}))

	s, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		ConfigFile: "plan.toml",
		LogLevel:   "warn",
		LogEncoder: "json",
	}, s)

	var keys []string
	for _, access := range config.IntrospectConfigAccesses() {
		keys = append(keys, access.Key)
	}
	assert.ElementsMatch(t, []string{
		"TEARDOWN_BUILTIN", "TEARDOWN_CONFIG", "TEARDOWN_LOG_ENCODER", "TEARDOWN_LOG_FILE", "TEARDOWN_LOG_LEVEL",
	}, keys)
}
