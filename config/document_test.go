package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cleitonmarx/teardown/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlDocument = `
default-timeout = "10s"

[phases.a]

[phases.b]
depends-on = ["a"]
timeout = "15s"

[phases.c]
depends-on = ["a", "b"]
recover = false
`

const yamlDocument = `
default-timeout: 10s
phases:
  a: {}
  b:
    depends-on: [a]
    timeout: 15s
  c:
    depends-on: [a, b]
    recover: false
`

const jsonDocument = `{
  "default-timeout": "10s",
  "phases": {
    "a": {},
    "b": {"depends-on": ["a"], "timeout": "15s"},
    "c": {"depends-on": ["a", "b"], "recover": false}
  }
}`

func expectedABC() phase.Set {
	return phase.Set{
		"a": {Name: "a", Timeout: 10 * time.Second, Recover: true},
		"b": {Name: "b", DependsOn: []string{"a"}, Timeout: 15 * time.Second, Recover: true},
		"c": {Name: "c", DependsOn: []string{"a", "b"}, Timeout: 10 * time.Second, Recover: false},
	}
}

func TestDecodePhases(t *testing.T) {
	tests := map[string]struct {
		data        string
		format      Format
		wantDefault time.Duration
		wantPhases  phase.Set
		expectErr   string
	}{
		"toml": {
			data:        tomlDocument,
			format:      FormatTOML,
			wantDefault: 10 * time.Second,
			wantPhases:  expectedABC(),
		},
		"yaml": {
			data:        yamlDocument,
			format:      FormatYAML,
			wantDefault: 10 * time.Second,
			wantPhases:  expectedABC(),
		},
		"json": {
			data:        jsonDocument,
			format:      FormatJSON,
			wantDefault: 10 * time.Second,
			wantPhases:  expectedABC(),
		},
		"missing_default_timeout": {
			data:        "[phases.only]\n",
			format:      FormatTOML,
			wantDefault: phase.DefaultTimeout,
			wantPhases: phase.Set{
				"only": {Name: "only", Timeout: phase.DefaultTimeout, Recover: true},
			},
		},
		"empty_yaml_document": {
			data:        "",
			format:      FormatYAML,
			wantDefault: phase.DefaultTimeout,
			wantPhases:  phase.Set{},
		},
		"duplicate_dependencies_are_collapsed": {
			data:        "phases:\n  b:\n    depends-on: [a, a]\n",
			format:      FormatYAML,
			wantDefault: phase.DefaultTimeout,
			wantPhases: phase.Set{
				"b": {Name: "b", DependsOn: []string{"a"}, Timeout: phase.DefaultTimeout, Recover: true},
			},
		},
		"unknown_toml_key": {
			data:      "[phases.a]\ndepends_on = [\"b\"]\n",
			format:    FormatTOML,
			expectErr: "unknown keys: phases.a.depends_on",
		},
		"unknown_yaml_key": {
			data:      "phases:\n  a:\n    retries: 3\n",
			format:    FormatYAML,
			expectErr: "field retries not found",
		},
		"unknown_json_key": {
			data:      `{"phases": {"a": {"retries": 3}}}`,
			format:    FormatJSON,
			expectErr: `unknown field "retries"`,
		},
		"invalid_duration": {
			data:      `default-timeout = "soon"`,
			format:    FormatTOML,
			expectErr: `invalid duration "soon"`,
		},
		"negative_phase_timeout": {
			data:      "phases:\n  a:\n    timeout: -1s\n",
			format:    FormatYAML,
			expectErr: `config: phase "a": timeout must be positive, got -1s`,
		},
		"zero_default_timeout": {
			data:      `{"default-timeout": "0s"}`,
			format:    FormatJSON,
			expectErr: "default-timeout must be positive",
		},
		"unsupported_format": {
			data:      "",
			format:    Format("ini"),
			expectErr: `unsupported format "ini"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := DecodePhases([]byte(tt.data), tt.format)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, doc.DefaultTimeout)
			assert.Equal(t, tt.wantPhases, doc.Phases)
		})
	}
}

func TestDocument_Validate(t *testing.T) {
	doc, err := DecodePhases([]byte("phases:\n  a:\n    depends-on: [b]\n  b:\n    depends-on: [a]\n"), FormatYAML)
	require.NoError(t, err)

	err = doc.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, phase.ErrConfiguration)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestLoadPhasesFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := map[string]struct {
		path      string
		expectErr string
	}{
		"toml_file": {path: write("phases.toml", tomlDocument)},
		"yml_file":  {path: write("phases.yml", yamlDocument)},
		"json_file": {path: write("phases.json", jsonDocument)},
		"unsupported_extension": {
			path:      write("phases.ini", ""),
			expectErr: `file extension ".ini" is not allowed`,
		},
		"missing_file": {
			path:      filepath.Join(dir, "missing.toml"),
			expectErr: "no such file or directory",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := LoadPhasesFile(tt.path)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, expectedABC(), doc.Phases)
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
}
