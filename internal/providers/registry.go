// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/curatarr/internal/config"
)

// The registry follows the database/sql driver pattern: client
// integrations register themselves by name from init(), typically
// behind a build tag, and the daemon selects one via configuration.
// Curatarr itself ships no raw HTTP clients; only the interfaces and
// the decorator chain live in this package.

// CatalogFactory builds a raw catalog client from its provider config.
type CatalogFactory func(cfg config.ProviderConfig) (Catalog, error)

// ActivityFactory builds a raw activity client from its provider config.
type ActivityFactory func(cfg config.ProviderConfig) (Activity, error)

var (
	registryMu        sync.RWMutex
	catalogFactories  = map[string]CatalogFactory{}
	activityFactories = map[string]ActivityFactory{}
)

// RegisterCatalog makes a catalog integration available under the given
// name. It panics on duplicate registration, matching database/sql.
func RegisterCatalog(name string, factory CatalogFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("providers: RegisterCatalog factory is nil")
	}
	if _, dup := catalogFactories[name]; dup {
		panic("providers: RegisterCatalog called twice for " + name)
	}
	catalogFactories[name] = factory
}

// RegisterActivity makes an activity integration available under the
// given name.
func RegisterActivity(name string, factory ActivityFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("providers: RegisterActivity factory is nil")
	}
	if _, dup := activityFactories[name]; dup {
		panic("providers: RegisterActivity called twice for " + name)
	}
	activityFactories[name] = factory
}

// NewCatalog builds the configured catalog client and wraps it in the
// standard decorator chain (rate limit, retry, circuit breaker).
func NewCatalog(cfg config.ProviderConfig, retrier *Retrier) (Catalog, error) {
	registryMu.RLock()
	factory, ok := catalogFactories[cfg.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown catalog provider %q (registered: %v)", cfg.Provider, catalogNames())
	}
	client, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build catalog provider %q: %w", cfg.Provider, err)
	}
	return WrapCatalog(client, cfg, retrier), nil
}

// NewActivity builds the configured activity client with the retry
// decorator applied.
func NewActivity(cfg config.ProviderConfig, retrier *Retrier) (Activity, error) {
	registryMu.RLock()
	factory, ok := activityFactories[cfg.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown activity provider %q (registered: %v)", cfg.Provider, activityNames())
	}
	client, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build activity provider %q: %w", cfg.Provider, err)
	}
	return WrapActivity(client, cfg, retrier), nil
}

func catalogNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(catalogFactories))
	for name := range catalogFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func activityNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(activityFactories))
	for name := range activityFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
