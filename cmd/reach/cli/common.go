package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/reach/internal/solver"
	"github.com/felixgeelhaar/reach/internal/store"
)

// homeEnv overrides the data directory, ~/.reach by default.
const homeEnv = "REACH_HOME"

const (
	keyLevelDefault   = "level.default"
	keyLimitDefault   = "limit.default"
	keyTimeoutDefault = "timeout.default"
)

// defaultLimit is how many solutions solve prints when neither a flag nor
// the configuration says otherwise.
const defaultLimit = 10

// defaultTimeout bounds a solve when neither --timeout nor the configuration
// sets a budget. Five numbers at level 2 or 3 can search for many minutes.
const defaultTimeout = 2 * time.Minute

func dataDir() (string, error) {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".reach"), nil
}

func openStore() (*store.SQLiteStore, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(
		filepath.Join(dir, "metadata.db"),
		filepath.Join(dir, "artifacts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	return s, nil
}

// parseNumbers accepts numbers as separate arguments or comma separated.
func parseNumbers(args []string) ([]float64, error) {
	var numbers []float64
	for _, arg := range args {
		for _, f := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", f)
			}
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}

// configInt reads an integer setting. Missing or malformed values yield
// fallback.
func configInt(s store.Storage, key string, fallback int) int {
	if s == nil {
		return fallback
	}
	v, err := s.GetConfig(key)
	if err != nil || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// resolveLevel picks the flag value when set (>= 0), else the configured
// default.
func resolveLevel(s store.Storage, flag int) (solver.Level, error) {
	if flag < 0 {
		flag = configInt(s, keyLevelDefault, int(solver.LevelBasic))
	}
	return solver.ParseLevel(flag)
}

func resolveLimit(s store.Storage, flag int) int {
	if flag < 0 {
		return configInt(s, keyLimitDefault, defaultLimit)
	}
	return flag
}

// resolveTimeout returns the time budget for a solve: the flag when it was
// given, else the configured default, else defaultTimeout. Zero means no
// limit.
func resolveTimeout(s store.Storage, flag time.Duration, changed bool) time.Duration {
	if changed {
		return flag
	}
	if s != nil {
		if v, err := s.GetConfig(keyTimeoutDefault); err == nil && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				return d
			}
		}
	}
	return defaultTimeout
}

// withBudget bounds ctx by timeout; zero leaves it unbounded.
func withBudget(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// budgetError replaces a deadline error with one naming the budget.
func budgetError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no answer within %s (raise --timeout or %s)", timeout, keyTimeoutDefault)
	}
	return err
}

// validateSetting checks a configuration value before it is stored.
func validateSetting(key, value string) error {
	n, err := strconv.Atoi(value)
	switch key {
	case keyLevelDefault:
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		_, err = solver.ParseLevel(n)
		return err
	case keyLimitDefault:
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		return nil
	case keyTimeoutDefault:
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("%s must be a non-negative duration such as 90s or 5m", key)
		}
		return nil
	default:
		return errors.New("unknown key " + key + " (known: " + keyLevelDefault + ", " + keyLimitDefault + ", " + keyTimeoutDefault + ")")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
