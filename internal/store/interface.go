// Package store defines the persistence interface for the identity and
// merge engine.
package store

import (
	"context"
	"database/sql"

	"github.com/GRead-Development/Server-sub000/internal/domain"
)

// BookMergeRequest carries the parameters of a book merge.
type BookMergeRequest struct {
	FromID       int64
	ToID         int64
	SyncMetadata bool
	Actor        string
	Reason       string
}

// AuthorMergeRequest carries the parameters of an author merge.
type AuthorMergeRequest struct {
	FromID string
	ToID   string
	Actor  string
	Reason string
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetMetadataSyncer(syncer MetadataSyncer)

	// Records
	CreateRecord(ctx context.Context, r *domain.Record) error
	GetRecord(ctx context.Context, id int64) (*domain.Record, error)
	UpdateRecord(ctx context.Context, r *domain.Record) error
	RecordExists(ctx context.Context, id int64, typ domain.RecordType) (bool, error)
	ListBookRecordIDs(ctx context.Context) ([]int64, error)

	// Identity groups
	GetOrCreateGID(ctx context.Context, recordID int64) (int64, error)
	GetGID(ctx context.Context, recordID int64) (int64, error)
	GetGroupMember(ctx context.Context, recordID int64) (*domain.GroupMember, error)
	RecordsInGroup(ctx context.Context, gid int64) ([]int64, error)
	GroupMembers(ctx context.Context, gid int64) ([]*domain.GroupMember, error)
	CanonicalRecord(ctx context.Context, gid int64) (int64, error)
	SetCanonical(ctx context.Context, gid, recordID int64) error

	// Editions
	AddEdition(ctx context.Context, e *domain.Edition) error
	GetEdition(ctx context.Context, isbn string) (*domain.Edition, error)
	RemoveEdition(ctx context.Context, isbn string) error
	SetPrimaryEdition(ctx context.Context, gid int64, isbn string) error
	EditionsForGroup(ctx context.Context, gid int64) ([]*domain.Edition, error)
	EnsureMigrated(ctx context.Context, recordID int64) error
	SetEditionPreference(ctx context.Context, pref *domain.EditionPreference) error
	ResolveForUser(ctx context.Context, userID string, gid int64) (*domain.Edition, error)

	// Authors
	CreateAuthor(ctx context.Context, a *domain.Author) error
	GetAuthor(ctx context.Context, id string) (*domain.Author, error)
	FindAuthor(ctx context.Context, nameOrSlug string) (*domain.Author, error)
	SlugInUse(ctx context.Context, slug string) (bool, error)
	UpdateAuthor(ctx context.Context, a *domain.Author) error
	DeleteAuthor(ctx context.Context, id string) error
	CreateAlias(ctx context.Context, al *domain.AuthorAlias) error
	AliasesForAuthor(ctx context.Context, authorID string) ([]*domain.AuthorAlias, error)
	ListAuthors(ctx context.Context) ([]*domain.Author, error)

	// Book/author links
	LinkBookAuthor(ctx context.Context, bookID int64, authorID string, position int) error
	UnlinkBookAuthor(ctx context.Context, bookID int64, authorID string) error
	AuthorsForBook(ctx context.Context, bookID int64) ([]*domain.BookAuthor, error)
	BooksForAuthor(ctx context.Context, authorID string) ([]int64, error)

	// Merges
	MergeBooks(ctx context.Context, req BookMergeRequest) (*domain.BookMerge, error)
	MergeAuthors(ctx context.Context, req AuthorMergeRequest) (*domain.AuthorMerge, error)
	BookMergeHistory(ctx context.Context, recordID int64) ([]*domain.BookMerge, error)
	AuthorMergeHistory(ctx context.Context, authorID string) ([]*domain.AuthorMerge, error)

	// Duplicate reports
	FileDuplicateReport(ctx context.Context, r *domain.DuplicateReport) error
	OpenDuplicateReports(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error)
	ReportsForRecord(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error)

	// Resolution
	CanonicalView(ctx context.Context, recordID int64) (*domain.CanonicalView, error)
	SearchCandidates(ctx context.Context, query string, limit int) ([]*domain.SearchMatch, error)
}

// MetadataSyncer copies display metadata from a surviving canonical record
// onto a merged-away record, so external views addressing the old id keep
// showing consistent data. It runs inside the merge transaction: a returned
// error aborts and rolls back the whole merge.
//
// The default implementation writes the records table in the same database;
// deployments where record content lives elsewhere supply their own.
type MetadataSyncer interface {
	SyncMetadata(ctx context.Context, tx *sql.Tx, canonicalID, mergedID int64) error
}

// MetadataSyncerFunc adapts a function to the MetadataSyncer interface.
type MetadataSyncerFunc func(ctx context.Context, tx *sql.Tx, canonicalID, mergedID int64) error

// SyncMetadata implements MetadataSyncer.
func (f MetadataSyncerFunc) SyncMetadata(ctx context.Context, tx *sql.Tx, canonicalID, mergedID int64) error {
	return f(ctx, tx, canonicalID, mergedID)
}
