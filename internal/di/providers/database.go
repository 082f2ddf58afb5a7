package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/GRead-Development/Server-sub000/internal/config"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/logger"
	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the registry database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Database.BasePath, 0o755); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.DatabaseFile(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Registry database initialized", "path", cfg.DatabaseFile())

	return &StoreHandle{Store: db}, nil
}

// ProvideEventBus provides the in-process event bus.
func ProvideEventBus(i do.Injector) (*events.Bus, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return events.NewBus(log.Logger), nil
}
