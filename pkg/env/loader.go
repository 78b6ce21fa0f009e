// Package env resolves SALAMOONDER_* settings from the process
// environment and optional .env files, and redacts the secrets among
// them for display.
package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Variable names understood by the salamoonder tooling.
const (
	APIKeyVar       = "SALAMOONDER_API_KEY"
	BaseURLVar      = "SALAMOONDER_BASE_URL"
	IntegrityURLVar = "SALAMOONDER_INTEGRITY_URL"
	ClientIDVar     = "SALAMOONDER_CLIENT_ID"
	MaxRetriesVar   = "SALAMOONDER_MAX_RETRIES"
	PollIntervalVar = "SALAMOONDER_POLL_INTERVAL"
	TimeoutVar      = "SALAMOONDER_TIMEOUT"
)

// Prefix is shared by every variable above.
const Prefix = "SALAMOONDER_"

// Loader is the read side config.ApplyEnv needs.
type Loader interface {
	Get(key string) string
	GetAPIKey(service string) string
}

// FileLoader layers .env files under the process environment: a
// non-empty OS value always wins. Among files, the first one loaded
// that defines a key wins, matching godotenv.Load.
type FileLoader struct {
	mu    sync.RWMutex
	vars  map[string]string
	files []string
}

func NewLoader() *FileLoader {
	return &FileLoader{vars: make(map[string]string)}
}

// Load reads each path in order. It stops at the first file that
// cannot be read; the error wraps the underlying fs error.
func (l *FileLoader) Load(paths ...string) error {
	for _, path := range paths {
		vars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("read env file %s: %w", path, err)
		}
		l.mu.Lock()
		for k, v := range vars {
			if _, seen := l.vars[k]; !seen {
				l.vars[k] = v
			}
		}
		l.files = append(l.files, path)
		l.mu.Unlock()
	}
	return nil
}

// Files lists the paths loaded so far.
func (l *FileLoader) Files() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.files...)
}

func (l *FileLoader) Get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vars[key]
}

// GetAPIKey returns the key for service: SALAMOONDER_API_KEY for
// "salamoonder", otherwise <SERVICE>_API_KEY.
func (l *FileLoader) GetAPIKey(service string) string {
	if strings.EqualFold(service, "salamoonder") {
		return l.Get(APIKeyVar)
	}
	return l.Get(strings.ToUpper(service) + "_API_KEY")
}

// Set overrides a file value. It does not touch the process
// environment, so an OS value still wins.
func (l *FileLoader) Set(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vars[key] = value
}

// Settings returns every SALAMOONDER_* variable visible through l,
// sorted by name, with secrets redacted.
func (l *FileLoader) Settings() []Setting {
	keys := make(map[string]struct{})
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, Prefix) {
			keys[k] = struct{}{}
		}
	}
	l.mu.RLock()
	for k := range l.vars {
		if strings.HasPrefix(k, Prefix) {
			keys[k] = struct{}{}
		}
	}
	l.mu.RUnlock()

	out := make([]Setting, 0, len(keys))
	for k := range keys {
		v := l.Get(k)
		if v == "" {
			continue
		}
		out = append(out, Setting{Name: k, Value: RedactValue(k, v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Setting is one resolved variable, safe to print.
type Setting struct {
	Name  string
	Value string
}
