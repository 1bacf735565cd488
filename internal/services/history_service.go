// Package services – HistoryService
//
// This file implements the HistoryService, which derives a paged,
// human-readable log of connection changes for one main entity. The log
// is not stored: operation tags are computed on read from the rows' own
// timestamps and soft-delete markers. Paging is stable under the
// caller's accumulator: ids listed in prevEntities are never re-emitted,
// so repeated calls walk the history without duplicates even while rows
// keep changing underneath.
package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/repo"
	"github.com/vrk-kpa/ptv-registry/internal/resolve"
	"github.com/vrk-kpa/ptv-registry/internal/translate"
)

// Connection history operation tags.
const (
	OperationAdded     = "Added"
	OperationDeleted   = "Deleted"
	OperationModified  = "Modified"
	OperationUnchanged = "Unchanged"
	OperationDetached  = "Detached"
)

// HistoryPageSize is the number of entries returned per history page.
const HistoryPageSize = 10

// HistoryEntry is one row of the connection history view.
type HistoryEntry struct {
	// ID is the synthetic connection id (main root + connected root).
	ID string `json:"id"`
	// OperationType is one of Added, Deleted, Modified, Unchanged,
	// Detached.
	OperationType string    `json:"operationType" example:"Added"`
	Editor        string    `json:"editor"`
	EditedAt      time.Time `json:"editedAt"`
	// LanguagesAvailabilities and Name come from the connected entity's
	// resolved version; both are empty for Detached entries.
	LanguagesAvailabilities []translate.LanguageAvailabilityModel `json:"languagesAvailabilities"`
	Name                    map[string]string                     `json:"name"`
}

// HistoryPage is one page of history entries plus the paging state the
// caller feeds back into the next request.
type HistoryPage struct {
	Entries []HistoryEntry `json:"entries"`
	// PageNumber echoes the requested page, incremented.
	PageNumber int `json:"pageNumber"`
	// MoreAvailable reports whether entries remain beyond this page.
	MoreAvailable bool `json:"moreAvailable"`
	// PrevEntities is the accumulated id set: the caller's input plus
	// the ids emitted on this page.
	PrevEntities []string `json:"prevEntities"`
}

// HistoryService projects the connection change history of a main
// entity. Safe for concurrent use; caches are immutable per work unit.
type HistoryService struct {
	DB        *gorm.DB
	Types     *cache.TypeCache
	Languages *cache.LanguageCache
	Resolver  *resolve.Resolver
}

// NewHistoryService constructs a HistoryService over the given caches.
func NewHistoryService(db *gorm.DB, tc *cache.TypeCache, lc *cache.LanguageCache) *HistoryService {
	return &HistoryService{
		DB:        db,
		Types:     tc,
		Languages: lc,
		Resolver:  resolve.NewResolver(tc),
	}
}

// Page computes one page of history entries for mainRootID. Ids present
// in prevIDs are skipped, so a caller holding the accumulator never sees
// the same entry twice across pages.
//
// Operation tags, derived per row:
//   - Deleted:   the row is soft-deleted.
//   - Detached:  the connected entity no longer resolves to any version.
//   - Added:     the row has never been modified since creation.
//   - Modified:  the row has been modified after creation.
//   - Unchanged: fallback for rows with no usable timestamps.
func (s *HistoryService) Page(ctx context.Context, mainRootID string, pageNumber int, prevIDs []string) (*HistoryPage, error) {
	ctx, span := tracer.Start(ctx, "HistoryService.Page")
	span.SetAttributes(
		attribute.String("main_root_id", mainRootID),
		attribute.Int("page_number", pageNumber),
	)
	defer span.End()

	if mainRootID == "" {
		return nil, ErrMainRootRequired
	}
	if pageNumber < 1 {
		pageNumber = 1
	}

	rows, err := repo.ListConnectionsByMainUnscoped(ctx, s.DB, mainRootID)
	if err != nil {
		return nil, err
	}

	connectedIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		connectedIDs = append(connectedIDs, r.ConnectedUnificRootID)
	}
	versions, err := repo.ListVersionsByRoots(ctx, s.DB, connectedIDs)
	if err != nil {
		return nil, err
	}
	byRoot := repo.GroupVersionsByRoot(versions)

	skip := make(map[string]struct{}, len(prevIDs))
	for _, id := range prevIDs {
		skip[id] = struct{}{}
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		id := row.ConnectionID()
		if _, done := skip[id]; done {
			continue
		}

		entry := HistoryEntry{
			ID:       id,
			Editor:   row.ModifiedBy,
			EditedAt: row.Modified,
			Name:     map[string]string{},
		}

		resolved := s.Resolver.Resolve(byRoot[row.ConnectedUnificRootID])
		if resolved != nil {
			view := translate.ToConnectionView(s.Types, s.Languages, row, resolved)
			entry.LanguagesAvailabilities = view.LanguagesAvailabilities
			entry.Name = view.Name
		}

		switch {
		case row.DeletedAt.Valid:
			entry.OperationType = OperationDeleted
			entry.EditedAt = row.DeletedAt.Time
		case resolved == nil:
			entry.OperationType = OperationDetached
		case row.Modified.After(row.Created):
			entry.OperationType = OperationModified
		case !row.Created.IsZero():
			entry.OperationType = OperationAdded
		default:
			entry.OperationType = OperationUnchanged
		}

		entries = append(entries, entry)
	}

	// Newest edits first; id as the stable tie-break.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EditedAt.Equal(entries[j].EditedAt) {
			return entries[i].EditedAt.After(entries[j].EditedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	page := &HistoryPage{
		PageNumber:   pageNumber + 1,
		PrevEntities: append([]string{}, prevIDs...),
	}
	if len(entries) > HistoryPageSize {
		page.MoreAvailable = true
		entries = entries[:HistoryPageSize]
	}
	page.Entries = entries
	for _, e := range entries {
		page.PrevEntities = append(page.PrevEntities, e.ID)
	}
	return page, nil
}
