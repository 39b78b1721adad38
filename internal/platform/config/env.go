package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "STOREFRONT_"

// source reads STOREFRONT_* settings in precedence order: explicit map, process
// environment, then the dotenv file. Malformed values fall back to the default and are
// recorded so Load can reject them.
type source struct {
	explicit map[string]string
	system   bool
	dotEnv   map[string]string
	invalid  []string
}

func newSource(options loaderOptions) (*source, error) {
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	return &source{explicit: options.envMap, system: options.useSystemEnv, dotEnv: dotEnv}, nil
}

// raw returns the trimmed value for STOREFRONT_<name>, or "" when unset or blank.
func (s *source) raw(name string) string {
	key := envPrefix + name
	if v, ok := s.explicit[key]; ok {
		return strings.TrimSpace(v)
	}
	if s.system {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(s.dotEnv[key])
}

func (s *source) reject(name string) {
	s.invalid = append(s.invalid, envPrefix+name)
}

func (s *source) str(name, fallback string) string {
	if v := s.raw(name); v != "" {
		return v
	}
	return fallback
}

func (s *source) lower(name, fallback string) string {
	return strings.ToLower(s.str(name, fallback))
}

func (s *source) url(name, fallback string) string {
	return strings.TrimRight(s.str(name, fallback), "/")
}

func (s *source) duration(name string, fallback time.Duration) time.Duration {
	v := s.raw(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.reject(name)
		return fallback
	}
	return d
}

func (s *source) int(name string, fallback int) int {
	v := s.raw(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.reject(name)
		return fallback
	}
	return n
}

func (s *source) bool(name string, fallback bool) bool {
	switch strings.ToLower(s.raw(name)) {
	case "":
		return fallback
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	s.reject(name)
	return fallback
}

func (s *source) list(name string, fallback ...string) []string {
	v := s.raw(name)
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDotEnv parses KEY=VALUE lines. A missing file is not an error.
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
