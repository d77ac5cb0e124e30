// Package fflags is a simple env backed feature flag registry. It will need
// a proper backend once flags have to differ per caller, for partial
// rollouts or admin-only features.
package fflags

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

type FFlags struct {
	logger *zap.SugaredLogger
	Flags  map[string]func() bool
}

func NewFFlags(logger *zap.SugaredLogger) *FFlags {
	return &FFlags{
		logger: logger,
		Flags:  map[string]func() bool{},
	}
}

// RegisterFlag registers a computed flag.
func (f *FFlags) RegisterFlag(name string, value func() bool) {
	f.Flags[name] = value
}

// RegisterEnvFlag registers a flag whose value is read from the given
// environment variable on every evaluation, falling back to defaultValue.
func (f *FFlags) RegisterEnvFlag(name string, env string, defaultValue bool) {
	f.RegisterFlag(name, func() bool {
		if envValue, err := strconv.ParseBool(os.Getenv(env)); err == nil {
			return envValue
		}
		return defaultValue
	})
}

// ListFlags returns a map of all currently defined feature flags and
// whether those features are enabled (true) or not (false).
func (f *FFlags) ListFlags() map[string]bool {
	result := map[string]bool{}
	for name, value := range f.Flags {
		result[name] = value()
	}
	return result
}

// GetFlag returns whether the feature named by the string parameter
// flag is enabled (true) or not (false). An error is returned if
// the flag name is invalid.
func (f *FFlags) GetFlag(flag string) (bool, error) {
	value, ok := f.Flags[flag]
	if !ok {
		f.logger.Errorf("invalid feature flag name: %s", flag)
		return false, fmt.Errorf("invalid feature flag name: %s", flag)
	}
	return value(), nil
}
