package auth

import (
	"fmt"
	"os"
	"strings"
)

// Mode constants for AUTH_MODE and the per-service overrides
// (WALLET_MODE, and internal/history's own cascade) that fall back to
// whatever this process resolved AUTH_MODE to. internal/wallet and
// internal/history both import these rather than keeping their own
// string literals, so a mode can't mean one thing for auth and another
// for the services that share its backend choice.
const (
	AuthModeMemory = "memory"
	AuthModeDB     = "db"
	AuthModeLocal  = "local"
)

func authModeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	switch raw {
	case "", AuthModeDB, "postgres", "postgresql":
		return AuthModeDB
	case AuthModeLocal, "sqlite":
		return AuthModeLocal
	case AuthModeMemory, "mem":
		return AuthModeMemory
	default:
		return raw
	}
}

func NewServiceFromEnv() (Service, string, error) {
	mode := authModeFromEnv()

	switch mode {
	case AuthModeDB:
		manager, err := NewPostgresManagerFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return manager, mode, nil
	case AuthModeLocal:
		manager, err := NewSQLiteManagerFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return manager, mode, nil
	case AuthModeMemory:
		return NewManager(), mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid AUTH_MODE %q (supported: %s, %s, %s)", mode, AuthModeMemory, AuthModeDB, AuthModeLocal)
	}
}
