// Package config builds the immutable task configuration from a
// YAML file, .env overrides and the process environment.
//
// Precedence, lowest first: built-in defaults, the YAML file,
// PROVISION_* variables from the .env file, PROVISION_*
// variables from the process environment. ${VAR} references in
// path settings and values are expanded last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"digital.vasic.provision/pkg/env"
	"digital.vasic.provision/pkg/task"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PROVISION_"

// valuePrefix marks free-form value overrides, for example
// PROVISION_VALUE_OFFICE_VERSION.
const valuePrefix = "VALUE_"

// ErrInvalidConfig is returned when the configuration is
// incomplete or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

// File is the on-disk configuration.
type File struct {
	task.ConfigValues `yaml:",inline"`

	// ResultsDir receives saved pass summaries and the history
	// log. Empty disables saving.
	ResultsDir string `yaml:"results_dir,omitempty"`

	// StateDir holds the local adapter hive.
	StateDir string `yaml:"state_dir,omitempty"`
}

// Default returns the built-in configuration. Paths refer to
// ${HOME} and are expanded by Load.
func Default() *File {
	return &File{
		ConfigValues: task.ConfigValues{
			ToolsRoot:        "${HOME}/greensoft",
			ConfDir:          "${HOME}/.config/provision/conf",
			UserAutorunDir:   "${HOME}/.config/autostart",
			SharedAutorunDir: "/etc/xdg/autostart",
			FontsDir:         "${HOME}/.local/share/fonts",
			Values:           map[string]string{},
		},
		StateDir: "${HOME}/.local/state/provision",
	}
}

// Load reads path (if non-empty) over the defaults, applies
// overrides from loader and validates the result.
func Load(path string, loader env.Loader) (*File, error) {
	f := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := f.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if loader == nil {
		loader = env.NewLoader()
	}
	f.applyOverrides(loader.WithPrefix(EnvPrefix))
	if err := f.expand(loader); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return err
	}
	if f.Values == nil {
		f.Values = map[string]string{}
	}
	return nil
}

func (f *File) fields() map[string]*string {
	return map[string]*string{
		"TOOLS_ROOT":         &f.ToolsRoot,
		"CONF_DIR":           &f.ConfDir,
		"USER_AUTORUN_DIR":   &f.UserAutorunDir,
		"SHARED_AUTORUN_DIR": &f.SharedAutorunDir,
		"FONTS_DIR":          &f.FontsDir,
		"RESULTS_DIR":        &f.ResultsDir,
		"STATE_DIR":          &f.StateDir,
	}
}

func (f *File) applyOverrides(overrides map[string]string) {
	fields := f.fields()
	for k, v := range overrides {
		if dst, ok := fields[k]; ok {
			*dst = v
			continue
		}
		if name, ok := strings.CutPrefix(k, valuePrefix); ok && name != "" {
			f.Values[strings.ToLower(name)] = v
		}
	}
}

func (f *File) expand(loader env.Loader) error {
	var missing []string
	mapping := func(name string) string {
		v, ok := loader.Lookup(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	}
	for _, p := range f.fields() {
		*p = os.Expand(*p, mapping)
	}
	for k, v := range f.Values {
		f.Values[k] = os.Expand(v, mapping)
	}
	if len(missing) > 0 {
		return fmt.Errorf(
			"%w: undefined variable(s) %s",
			ErrInvalidConfig, strings.Join(dedupe(missing), ", "),
		)
	}
	return nil
}

// Validate checks that the required roots are set and that
// value names are usable.
func (f *File) Validate() error {
	var problems []string
	if f.ToolsRoot == "" {
		problems = append(problems, "tools_root is required")
	}
	if f.ConfDir == "" {
		problems = append(problems, "conf_dir is required")
	}
	for k := range f.Values {
		if strings.TrimSpace(k) == "" {
			problems = append(problems, "values: empty key")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf(
			"%w: %s", ErrInvalidConfig, strings.Join(problems, "; "),
		)
	}
	return nil
}

// TaskConfig freezes the task-visible part of the file.
func (f *File) TaskConfig() *task.Config {
	return task.NewConfig(f.ConfigValues)
}

// Secrets returns configured values that must not appear in
// logs.
func (f *File) Secrets() []string {
	return env.Secrets(f.Values)
}

// Redacted returns a copy of f with credential values masked,
// suitable for display.
func (f *File) Redacted() *File {
	cp := *f
	cp.Values = env.RedactSettings(f.Values)
	return &cp
}

// Marshal encodes f as YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResultsPath joins name onto the results directory.
func (f *File) ResultsPath(name string) string {
	return filepath.Join(f.ResultsDir, name)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
