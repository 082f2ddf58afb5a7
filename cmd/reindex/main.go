// Package main rebuilds the search index from the registry.
//
// Usage:
//
//	go run ./cmd/reindex -data-path ~/GRead/registry
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/GRead-Development/Server-sub000/internal/di"
	"github.com/GRead-Development/Server-sub000/internal/di/providers"
	"github.com/GRead-Development/Server-sub000/internal/logger"
	"github.com/GRead-Development/Server-sub000/internal/service"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	searchService := do.MustInvoke[*service.SearchService](injector)

	if err := searchService.ReindexAll(context.Background()); err != nil {
		log.Error("Reindex failed", "error", err)
		os.Exit(1)
	}

	count, _ := searchService.DocumentCount()
	log.Info("Reindex complete", "documents", count)

	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		_ = storeHandle.Shutdown()
	}
	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		_ = searchHandle.Shutdown()
	}
}
