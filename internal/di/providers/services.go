package providers

import (
	"github.com/samber/do/v2"

	"github.com/GRead-Development/Server-sub000/internal/config"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/logger"
	"github.com/GRead-Development/Server-sub000/internal/service"
	"github.com/GRead-Development/Server-sub000/internal/validation"
)

// ProvideIdentityService provides the GID group service.
func ProvideIdentityService(i do.Injector) (*service.IdentityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIdentityService(storeHandle.Store, bus, log.Logger), nil
}

// ProvideEditionService provides the edition ledger service.
func ProvideEditionService(i do.Injector) (*service.EditionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEditionService(storeHandle.Store, v, log.Logger), nil
}

// ProvideAuthorService provides the author registry service.
func ProvideAuthorService(i do.Injector) (*service.AuthorService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthorService(storeHandle.Store, bus, log.Logger), nil
}

// ProvideMergeService provides the merge engine service.
func ProvideMergeService(i do.Injector) (*service.MergeService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	var searchSvc *service.SearchService
	if cfg.Search.Enabled {
		searchSvc = do.MustInvoke[*service.SearchService](i)
	}

	return service.NewMergeService(storeHandle.Store, v, bus, searchSvc, log.Logger), nil
}

// ProvideResolverService provides the read-path resolver service.
func ProvideResolverService(i do.Injector) (*service.ResolverService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewResolverService(storeHandle.Store, log.Logger), nil
}
