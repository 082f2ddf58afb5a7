package sqlite

import (
	"context"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// CanonicalView resolves any record identifier to its live canonical view.
// A record that was never assigned an identity row is its own implicit
// group (gid = record id, no aliases); the record itself must exist.
func (s *Store) CanonicalView(ctx context.Context, recordID int64) (*domain.CanonicalView, error) {
	exists, err := s.RecordExists(ctx, recordID, domain.RecordTypeBook)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	gid, err := s.GetGID(ctx, recordID)
	if err == store.ErrNotFound {
		return &domain.CanonicalView{RecordID: recordID, GID: recordID}, nil
	}
	if err != nil {
		return nil, err
	}

	canonical, err := s.CanonicalRecord(ctx, gid)
	if err != nil {
		return nil, err
	}

	editions, err := s.EditionsForGroup(ctx, gid)
	if err != nil {
		return nil, err
	}

	members, err := s.RecordsInGroup(ctx, gid)
	if err != nil {
		return nil, err
	}
	aliases := make([]int64, 0, len(members))
	for _, m := range members {
		if m != canonical {
			aliases = append(aliases, m)
		}
	}

	return &domain.CanonicalView{
		RecordID: canonical,
		GID:      gid,
		Editions: editions,
		Aliases:  aliases,
	}, nil
}

// SearchCandidates matches a query substring against canonical titles,
// author names, and alias names. Merged-away records never appear directly;
// their canonical representative is substituted and results de-duplicate
// per group or author.
func (s *Store) SearchCandidates(ctx context.Context, query string, limit int) ([]*domain.SearchMatch, error) {
	if limit <= 0 {
		limit = 25
	}
	pattern := "%" + escapeLike(query) + "%"

	matches, err := s.searchBookCandidates(ctx, pattern, limit)
	if err != nil {
		return nil, err
	}

	authorMatches, err := s.searchAuthorCandidates(ctx, pattern, limit)
	if err != nil {
		return nil, err
	}
	return append(matches, authorMatches...), nil
}

// searchBookCandidates matches book titles. A title hit on any group member
// substitutes the group's canonical record; records without an identity row
// stand for themselves.
func (s *Store) searchBookCandidates(ctx context.Context, pattern string, limit int) ([]*domain.SearchMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, bi.gid, bi.is_canonical
		FROM records r
		LEFT JOIN book_identities bi ON bi.record_id = r.id
		WHERE r.record_type = ? AND r.title LIKE ? ESCAPE '\'
		ORDER BY r.title ASC, r.id ASC
		LIMIT ?`, string(domain.RecordTypeBook), pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type bookHit struct {
		id          int64
		title       string
		gid         int64
		hasIdentity bool
		isCanonical bool
	}
	var hits []bookHit
	for rows.Next() {
		var (
			h         bookHit
			gid       *int64
			canonical *int64
		)
		if err := rows.Scan(&h.id, &h.title, &gid, &canonical); err != nil {
			return nil, err
		}
		if gid != nil {
			h.hasIdentity = true
			h.gid = *gid
			h.isCanonical = canonical != nil && *canonical != 0
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var matches []*domain.SearchMatch
	seenGroups := make(map[int64]bool)
	for _, h := range hits {
		if !h.hasIdentity {
			matches = append(matches, &domain.SearchMatch{
				Kind: domain.MatchBook, BookID: h.id, Name: h.title})
			continue
		}
		if seenGroups[h.gid] {
			continue
		}
		seenGroups[h.gid] = true

		canonical := h.id
		title := h.title
		if !h.isCanonical {
			canonical, err = s.CanonicalRecord(ctx, h.gid)
			if err != nil {
				return nil, err
			}
			if rec, err := s.GetRecord(ctx, canonical); err == nil {
				title = rec.Title
			}
		}
		matches = append(matches, &domain.SearchMatch{
			Kind: domain.MatchBook, BookID: canonical, Name: title})
	}
	return matches, nil
}

// searchAuthorCandidates matches author names, including hits through alias
// names. Aliases already point at their live author, so no substitution is
// needed beyond the join.
func (s *Store) searchAuthorCandidates(ctx context.Context, pattern string, limit int) ([]*domain.SearchMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a.id, a.display_name
		FROM authors a
		LEFT JOIN author_aliases al ON al.author_id = a.id
		WHERE a.display_name LIKE ?1 ESCAPE '\'
		   OR a.canonical_name LIKE ?1 ESCAPE '\'
		   OR al.name LIKE ?1 ESCAPE '\'
		ORDER BY a.display_name ASC, a.id ASC
		LIMIT ?2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.SearchMatch
	for rows.Next() {
		var (
			id   string
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		matches = append(matches, &domain.SearchMatch{
			Kind: domain.MatchAuthor, AuthorID: id, Name: name})
	}
	return matches, rows.Err()
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
