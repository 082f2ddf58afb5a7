package domain

import "time"

// GroupMember is one physical book record's membership in a GID group.
//
// A record is born as its own group: gid == record_id and is_canonical set.
// Merging moves every member of the source group into the target group and
// flags the merged-away record non-canonical, stamped with provenance.
type GroupMember struct {
	RecordID    int64      `json:"record_id"`
	GID         int64      `json:"gid"`
	IsCanonical bool       `json:"is_canonical"`
	MergedBy    string     `json:"merged_by,omitempty"`
	MergeReason string     `json:"merge_reason,omitempty"`
	MergedAt    *time.Time `json:"merged_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BookMerge is an append-only provenance row for a book merge.
// Never deleted; supports audit and manual reversal tooling.
type BookMerge struct {
	ID        string    `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	GID       int64     `json:"gid"` // surviving group
	MergedBy  string    `json:"merged_by"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateReportStatus is the lifecycle state of a duplicate report.
type DuplicateReportStatus string

const (
	ReportOpen     DuplicateReportStatus = "open"
	ReportResolved DuplicateReportStatus = "resolved"
)

// DuplicateReport is an operator-filed claim that a record duplicates another.
// Open reports against a merged-away record are resolved by the merge itself.
type DuplicateReport struct {
	ID               string                `json:"id"`
	RecordID         int64                 `json:"record_id"`
	ReportedBy       string                `json:"reported_by"`
	Note             string                `json:"note,omitempty"`
	Status           DuplicateReportStatus `json:"status"`
	ResolvedRecordID int64                 `json:"resolved_record_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	ResolvedAt       *time.Time            `json:"resolved_at,omitempty"`
}
