// Package main provides a tool to seed the registry with sample data.
//
// It creates a handful of book records with editions and authors,
// including two variants of the same book and a duplicated author, then
// runs the merges so the resulting database exercises the whole engine.
//
// Usage:
//
//	DATA_PATH=~/GRead/registry go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/service"
	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
	"github.com/GRead-Development/Server-sub000/internal/validation"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/GRead/registry")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	dbFile := filepath.Join(dataPath, "registry.db")
	fmt.Printf("Opening registry at: %s\n", dbFile)

	s, err := sqlite.Open(dbFile, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	logger := newStderrLogger()
	v := validation.New()

	authors := service.NewAuthorService(s, events.NoopEmitter{}, logger)
	editions := service.NewEditionService(s, v, logger)
	merges := service.NewMergeService(s, v, events.NoopEmitter{}, nil, logger)
	resolver := service.NewResolverService(s, logger)

	// Two records for the same book, entered twice by different users.
	hobbit := mustCreateRecord(ctx, s, &domain.Record{
		ID: 101, Type: domain.RecordTypeBook,
		Title: "The Hobbit", AuthorText: "J.R.R. Tolkien", ISBNText: "978-0-261-10221-7",
	})
	hobbitDupe := mustCreateRecord(ctx, s, &domain.Record{
		ID: 102, Type: domain.RecordTypeBook,
		Title: "The Hobbit, or There and Back Again", AuthorText: "J. R. R. Tolkien",
		ISBNText: "978-0-547-92822-7",
	})
	leftHand := mustCreateRecord(ctx, s, &domain.Record{
		ID: 103, Type: domain.RecordTypeBook,
		Title: "The Left Hand of Darkness", AuthorText: "Ursula K. Le Guin",
	})

	// Resolve legacy author strings into the registry. The two Tolkien
	// spellings slugify identically, so the second record reuses the row.
	for _, rec := range []*domain.Record{hobbit, hobbitDupe, leftHand} {
		if _, err := authors.ProcessFreeTextAuthors(ctx, rec.ID, rec.AuthorText); err != nil {
			log.Fatalf("Failed to process authors for %d: %v", rec.ID, err)
		}
		if err := editions.EnsureMigrated(ctx, rec.ID); err != nil {
			log.Fatalf("Failed to migrate editions for %d: %v", rec.ID, err)
		}
	}

	if _, err := editions.AddEdition(ctx, service.AddEditionRequest{
		RecordID: hobbit.ID, ISBN: "978-0-618-00221-4",
		Label: "Houghton Mifflin hardcover", PublicationYear: 1997, IsPrimary: true,
	}); err != nil {
		log.Fatalf("Failed to add edition: %v", err)
	}

	merge, err := merges.MergeBooks(ctx, service.MergeBooksRequest{
		FromID: hobbitDupe.ID, ToID: hobbit.ID,
		SyncMetadata: true, Actor: "seed", Reason: "duplicate entry",
	})
	if err != nil {
		log.Fatalf("Failed to merge books: %v", err)
	}
	fmt.Printf("Merged record %d into %d (gid %d)\n", merge.FromID, merge.ToID, merge.GID)

	view, err := resolver.CanonicalView(ctx, hobbitDupe.ID)
	if err != nil {
		log.Fatalf("Failed to resolve merged record: %v", err)
	}
	fmt.Printf("Record %d now resolves to canonical %d with %d edition(s)\n",
		hobbitDupe.ID, view.RecordID, len(view.Editions))

	fmt.Println("Seed complete.")
}

func newStderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func mustCreateRecord(ctx context.Context, s *sqlite.Store, r *domain.Record) *domain.Record {
	if err := s.CreateRecord(ctx, r); err != nil {
		log.Fatalf("Failed to create record %d: %v", r.ID, err)
	}
	return r
}
