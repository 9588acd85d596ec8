// Package env loads .env files and resolves environment
// overrides. Values from the process environment always take
// precedence over values read from a file.
package env

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Loader resolves configuration overrides from a .env file and
// the process environment.
type Loader interface {
	// Load reads environment variables from a .env file.
	Load(filepath string) error
	// Lookup retrieves an environment variable and reports
	// whether it is set anywhere.
	Lookup(key string) (string, bool)
	// WithPrefix returns every variable whose name starts with
	// prefix, keyed by the remainder of the name.
	WithPrefix(prefix string) map[string]string
}

// DefaultLoader implements Loader with .env file support.
type DefaultLoader struct {
	mu      sync.RWMutex
	vars    map[string]string
	environ func() []string
}

// NewLoader creates a new DefaultLoader backed by the process
// environment.
func NewLoader() *DefaultLoader {
	return &DefaultLoader{
		vars:    make(map[string]string),
		environ: os.Environ,
	}
}

func (l *DefaultLoader) Load(filepath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", filepath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		// Remove surrounding quotes
		value = strings.Trim(value, `"'`)
		l.vars[key] = value
	}

	return scanner.Err()
}

func (l *DefaultLoader) Lookup(key string) (string, bool) {
	// OS env takes precedence
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vars[key]
	return v, ok
}

func (l *DefaultLoader) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	l.mu.RLock()
	for k, v := range l.vars {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	l.mu.RUnlock()

	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
