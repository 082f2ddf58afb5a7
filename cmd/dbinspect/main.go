// Package main provides a read-mostly inspection tool for the identity
// registry: group membership, canonicals, edition ledgers, and merge
// history for a record, or a whole-registry summary.
//
// Usage:
//
//	DATA_PATH=~/GRead/registry go run ./cmd/dbinspect
//	DATA_PATH=~/GRead/registry go run ./cmd/dbinspect -record 102
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
)

var recordID = flag.Int64("record", 0, "Inspect a single record's group instead of the summary")

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/GRead/registry")
	}
	dbFile := filepath.Join(dataPath, "registry.db")

	s, err := sqlite.Open(dbFile, nil)
	if err != nil {
		log.Fatalf("Failed to open registry: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *recordID != 0 {
		inspectRecord(ctx, s, *recordID)
		return
	}
	summarize(ctx, s)
}

func inspectRecord(ctx context.Context, s *sqlite.Store, recordID int64) {
	view, err := s.CanonicalView(ctx, recordID)
	if err != nil {
		log.Fatalf("Failed to resolve record %d: %v", recordID, err)
	}

	rec, err := s.GetRecord(ctx, view.RecordID)
	if err != nil {
		log.Fatalf("Failed to load canonical record: %v", err)
	}

	fmt.Printf("Record %d\n", recordID)
	fmt.Printf("  gid:       %d\n", view.GID)
	fmt.Printf("  canonical: %d (%q)\n", view.RecordID, rec.Title)
	if len(view.Aliases) > 0 {
		fmt.Printf("  aliases:   %v\n", view.Aliases)
	}

	fmt.Printf("  editions:  %d\n", len(view.Editions))
	for _, e := range view.Editions {
		marker := " "
		if e.IsPrimary {
			marker = "*"
		}
		fmt.Printf("   %s %s", marker, e.ISBN)
		if e.Label != "" {
			fmt.Printf("  %s", e.Label)
		}
		if e.PublicationYear > 0 {
			fmt.Printf("  (%d)", e.PublicationYear)
		}
		fmt.Println()
	}

	merges, err := s.BookMergeHistory(ctx, recordID)
	if err != nil {
		log.Fatalf("Failed to load merge history: %v", err)
	}
	if len(merges) > 0 {
		fmt.Printf("  merges:    %d\n", len(merges))
		for _, m := range merges {
			fmt.Printf("    %s  %d -> %d  by %s", m.CreatedAt.Format("2006-01-02"), m.FromID, m.ToID, m.MergedBy)
			if m.Reason != "" {
				fmt.Printf("  (%s)", m.Reason)
			}
			fmt.Println()
		}
	}

	reports, err := s.ReportsForRecord(ctx, recordID)
	if err != nil {
		log.Fatalf("Failed to load reports: %v", err)
	}
	for _, r := range reports {
		fmt.Printf("  report %s: %s by %s\n", r.ID, r.Status, r.ReportedBy)
	}
}

func summarize(ctx context.Context, s *sqlite.Store) {
	fmt.Println("=== Registry Inspection ===")

	ids, err := s.ListBookRecordIDs(ctx)
	if err != nil {
		log.Fatalf("Failed to list records: %v", err)
	}

	groups := make(map[int64][]int64)
	unassigned := 0
	for _, recordID := range ids {
		gid, err := s.GetGID(ctx, recordID)
		if err != nil {
			unassigned++
			continue
		}
		groups[gid] = append(groups[gid], recordID)
	}

	merged := 0
	for gid, members := range groups {
		if len(members) > 1 {
			merged++
			canonical, err := s.CanonicalRecord(ctx, gid)
			if err != nil {
				log.Fatalf("Failed to resolve canonical of group %d: %v", gid, err)
			}
			fmt.Printf("group %d: %d members, canonical %d\n", gid, len(members), canonical)
		}
	}

	authors, err := s.ListAuthors(ctx)
	if err != nil {
		log.Fatalf("Failed to list authors: %v", err)
	}

	fmt.Println()
	fmt.Printf("records:        %d\n", len(ids))
	fmt.Printf("groups:         %d (%d with merges)\n", len(groups), merged)
	fmt.Printf("no identity:    %d\n", unassigned)
	fmt.Printf("authors:        %d\n", len(authors))

	for _, a := range authors {
		aliases, err := s.AliasesForAuthor(ctx, a.ID)
		if err != nil {
			log.Fatalf("Failed to load aliases: %v", err)
		}
		books, err := s.BooksForAuthor(ctx, a.ID)
		if err != nil {
			log.Fatalf("Failed to load author books: %v", err)
		}
		fmt.Printf("  %-30s slug=%s books=%d aliases=%d\n", a.DisplayName, a.Slug, len(books), len(aliases))
	}
}
