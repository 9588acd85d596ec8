package task

import "sort"

// ConfigValues is the mutable input used to build a Config.
type ConfigValues struct {
	// ToolsRoot is the install root of portable tools.
	ToolsRoot string `yaml:"tools_root" json:"tools_root"`

	// ConfDir holds configuration files copied onto the
	// machine (fonts, debugger rules, exported settings).
	ConfDir string `yaml:"conf_dir" json:"conf_dir"`

	// UserAutorunDir is the per-user startup folder.
	UserAutorunDir string `yaml:"user_autorun_dir" json:"user_autorun_dir"`

	// SharedAutorunDir is the all-users startup folder.
	SharedAutorunDir string `yaml:"shared_autorun_dir" json:"shared_autorun_dir"`

	// FontsDir is the system fonts folder.
	FontsDir string `yaml:"fonts_dir" json:"fonts_dir"`

	// Values holds free-form settings such as target product
	// versions.
	Values map[string]string `yaml:"values" json:"values"`
}

// Config is the immutable configuration snapshot shared by all
// tasks of a pass. It is built once before the pass and only
// exposes read accessors.
type Config struct {
	v ConfigValues
}

// NewConfig freezes a copy of v.
func NewConfig(v ConfigValues) *Config {
	cp := v
	cp.Values = make(map[string]string, len(v.Values))
	for k, val := range v.Values {
		cp.Values[k] = val
	}
	return &Config{v: cp}
}

// ToolsRoot returns the portable tools install root.
func (c *Config) ToolsRoot() string { return c.v.ToolsRoot }

// ConfDir returns the configuration source directory.
func (c *Config) ConfDir() string { return c.v.ConfDir }

// UserAutorunDir returns the per-user startup folder.
func (c *Config) UserAutorunDir() string { return c.v.UserAutorunDir }

// SharedAutorunDir returns the all-users startup folder.
func (c *Config) SharedAutorunDir() string {
	return c.v.SharedAutorunDir
}

// AutorunDirs returns the user and shared startup folders that
// are set.
func (c *Config) AutorunDirs() []string {
	var out []string
	for _, d := range []string{
		c.v.UserAutorunDir, c.v.SharedAutorunDir,
	} {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// FontsDir returns the system fonts folder.
func (c *Config) FontsDir() string { return c.v.FontsDir }

// Value returns a free-form setting.
func (c *Config) Value(key string) (string, bool) {
	v, ok := c.v.Values[key]
	return v, ok
}

// ValueOr returns a free-form setting or fallback.
func (c *Config) ValueOr(key, fallback string) string {
	if v, ok := c.v.Values[key]; ok {
		return v
	}
	return fallback
}

// Keys returns the free-form setting names, sorted.
func (c *Config) Keys() []string {
	out := make([]string, 0, len(c.v.Values))
	for k := range c.v.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the underlying values.
func (c *Config) Snapshot() ConfigValues {
	cp := c.v
	cp.Values = make(map[string]string, len(c.v.Values))
	for k, v := range c.v.Values {
		cp.Values[k] = v
	}
	return cp
}
