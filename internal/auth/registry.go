package auth

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// Factory builds a provider from the suite configuration.
type Factory func(cfg *config.Config, deps Deps) (Provider, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
)

func init() {
	for mode, f := range map[string]Factory{
		"interactive": newSocialLogin,
		"password":    newPasswordLogin,
		"token":       newTokenLogin,
		"state":       newStateFileLogin,
	} {
		if err := Register(mode, f); err != nil {
			panic(err)
		}
	}
}

// Register adds a login mode selectable with auth.mode.
func Register(mode string, f Factory) error {
	if mode == "" {
		return errors.New("auth mode name required")
	}
	if f == nil {
		return errors.New("auth mode factory required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := factories[mode]; exists {
		return errors.Errorf("auth mode %q already registered", mode)
	}
	factories[mode] = f
	return nil
}

// Modes returns the registered auth modes, sorted.
func Modes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupFactory(mode string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[mode]
	return f, ok
}
