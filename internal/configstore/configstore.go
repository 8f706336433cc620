// Package configstore persists the small set of server settings an
// admin can change at runtime (maintenance mode, the turn timer length)
// to a JSON file, replacing a process-global mutable dict with a
// file-backed store an operator can inspect and edit directly.
package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is the mutable server configuration surface the admin control
// plane reads and writes.
type Config struct {
	MaintenanceMode  bool  `json:"maintenance_mode"`
	TurnTimerSeconds int   `json:"turn_timer_seconds"`
	UpdatedAtUnixMs  int64 `json:"updated_at_ms"`
}

const defaultTurnTimerSeconds = 20

func defaultConfig() Config {
	return Config{
		MaintenanceMode:  false,
		TurnTimerSeconds: defaultTurnTimerSeconds,
	}
}

// Store is a JSON-file-backed Config with last-write-wins semantics: each
// Set call reads, mutates in memory, and rewrites the whole file under a
// mutex, so concurrent admin requests never interleave partial writes.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

// Open loads path if it exists, or seeds it with defaults (turn timer
// from TURN_TIMER_SECONDS / MAINTENANCE_MODE env vars, mirroring
// auth/factory.go's env-driven defaults) if it does not.
func Open(path string) (*Store, error) {
	s := &Store{path: path, cfg: configFromEnv()}

	data, err := os.ReadFile(path)
	if err == nil {
		var cfg Config
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr == nil {
			s.cfg = cfg
			return s, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func configFromEnv() Config {
	cfg := defaultConfig()
	if raw := strings.TrimSpace(os.Getenv("TURN_TIMER_SECONDS")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.TurnTimerSeconds = n
		}
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("MAINTENANCE_MODE"))); raw == "1" || raw == "true" {
		cfg.MaintenanceMode = true
	}
	return cfg
}

// Get returns the current configuration.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetMaintenanceMode updates and persists the maintenance flag.
func (s *Store) SetMaintenanceMode(enabled bool) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MaintenanceMode = enabled
	s.cfg.UpdatedAtUnixMs = time.Now().UTC().UnixMilli()
	if err := s.persistLocked(); err != nil {
		return s.cfg, err
	}
	return s.cfg, nil
}

// SetTurnTimerSeconds updates and persists the turn timer length.
func (s *Store) SetTurnTimerSeconds(seconds int) (Config, error) {
	if seconds <= 0 {
		seconds = defaultTurnTimerSeconds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.TurnTimerSeconds = seconds
	s.cfg.UpdatedAtUnixMs = time.Now().UTC().UnixMilli()
	if err := s.persistLocked(); err != nil {
		return s.cfg, err
	}
	return s.cfg, nil
}

func (s *Store) persistLocked() error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
