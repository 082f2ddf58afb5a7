// Package di provides dependency injection configuration for the
// identity registry.
package di

import (
	"github.com/samber/do/v2"

	"github.com/GRead-Development/Server-sub000/internal/config"
	"github.com/GRead-Development/Server-sub000/internal/di/providers"
	"github.com/GRead-Development/Server-sub000/internal/logger"
	"github.com/GRead-Development/Server-sub000/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideEventBus)

	// Persistence
	do.Provide(injector, providers.ProvideStore)

	// Search
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideIdentityService)
	do.Provide(injector, providers.ProvideEditionService)
	do.Provide(injector, providers.ProvideAuthorService)
	do.Provide(injector, providers.ProvideMergeService)
	do.Provide(injector, providers.ProvideResolverService)

	return injector
}

// Bootstrap initializes all services and returns once the registry is
// ready. This triggers lazy initialization of the full graph.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*service.IdentityService](injector)
	_ = do.MustInvoke[*service.EditionService](injector)
	_ = do.MustInvoke[*service.AuthorService](injector)
	_ = do.MustInvoke[*service.MergeService](injector)
	_ = do.MustInvoke[*service.ResolverService](injector)

	cfg := do.MustInvoke[*config.Config](injector)
	if cfg.Search.Enabled {
		_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
		_ = do.MustInvoke[*service.SearchService](injector)
		providers.TriggerSearchReindexIfNeeded(injector)
	}

	return nil
}
