package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cleitonmarx/teardown/phase"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Format names the encoding of a phase document.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("config: file extension %q is not allowed", ext)
	}
}

// Duration is a time.Duration written as a Go duration string ("250ms", "10s").
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Document is a decoded phase document.
//
//	default-timeout = "10s"
//	[phases.stop-http]
//	timeout = "15s"
//	[phases.close-db]
//	depends-on = ["stop-http"]
//	recover = false
type Document struct {
	DefaultTimeout time.Duration
	Phases         phase.Set
}

// Validate reports configuration errors of the declared phases, including dependency cycles.
func (d Document) Validate() error {
	return d.Phases.Validate()
}

type rawDocument struct {
	DefaultTimeout *Duration           `toml:"default-timeout" yaml:"default-timeout" json:"default-timeout"`
	Phases         map[string]rawPhase `toml:"phases" yaml:"phases" json:"phases"`
}

type rawPhase struct {
	DependsOn []string  `toml:"depends-on" yaml:"depends-on" json:"depends-on"`
	Timeout   *Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
	Recover   *bool     `toml:"recover" yaml:"recover" json:"recover"`
}

// LoadPhasesFile reads and decodes the phase document at path.
// The format is chosen by the file extension.
func LoadPhasesFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("config: %w", err)
	}
	return DecodePhases(data, format)
}

// DecodePhases decodes a phase document. Omitted fields take their defaults:
// default-timeout is phase.DefaultTimeout, a phase timeout is default-timeout,
// recover is true and depends-on is empty. Unknown keys are rejected.
func DecodePhases(data []byte, format Format) (Document, error) {
	var raw rawDocument
	if err := decodeStrict(data, format, &raw); err != nil {
		return Document{}, fmt.Errorf("config: decoding %s phase document: %w", format, err)
	}

	doc := Document{
		DefaultTimeout: phase.DefaultTimeout,
		Phases:         make(phase.Set, len(raw.Phases)),
	}
	var errs error
	if raw.DefaultTimeout != nil {
		doc.DefaultTimeout = time.Duration(*raw.DefaultTimeout)
		if doc.DefaultTimeout <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("config: default-timeout must be positive, got %s", doc.DefaultTimeout))
		}
	}

	names := make([]string, 0, len(raw.Phases))
	for name := range raw.Phases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rp := raw.Phases[name]
		if strings.TrimSpace(name) == "" {
			errs = multierr.Append(errs, errors.New("config: phase name cannot be blank"))
			continue
		}
		p := phase.Phase{
			Name:      name,
			DependsOn: uniqueNames(rp.DependsOn),
			Timeout:   doc.DefaultTimeout,
			Recover:   true,
		}
		if rp.Timeout != nil {
			p.Timeout = time.Duration(*rp.Timeout)
			if p.Timeout <= 0 {
				errs = multierr.Append(errs, fmt.Errorf("config: phase %q: timeout must be positive, got %s", name, p.Timeout))
			}
		}
		if rp.Recover != nil {
			p.Recover = *rp.Recover
		}
		doc.Phases[name] = p
	}
	if errs != nil {
		return Document{}, errs
	}
	return doc, nil
}

func decodeStrict(data []byte, format Format, out *rawDocument) error {
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), out)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func uniqueNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
