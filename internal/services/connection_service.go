// Package services – ConnectionService
//
// This file implements the ConnectionService, which owns the
// service↔channel connection rows of a main entity. Saving reconciles
// the caller's desired set against storage inside one transaction:
// create rows for new pairs, update rows present in both sets, revive
// soft-deleted pairs instead of duplicating them, soft-delete rows
// absent from the desired set (except ASTI-imported rows, which this
// side may never touch), then renumber both order directions. Reading
// resolves each connected entity's applicable version through the
// publishing-status fallback and projects the result into the read
// model; unresolvable entities are omitted, never surfaced as errors.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/domain"
	"github.com/vrk-kpa/ptv-registry/internal/ordering"
	"github.com/vrk-kpa/ptv-registry/internal/repo"
	"github.com/vrk-kpa/ptv-registry/internal/resolve"
	"github.com/vrk-kpa/ptv-registry/internal/translate"
)

// tracer instruments the connection use-cases.
var tracer = otel.Tracer("github.com/vrk-kpa/ptv-registry/internal/services")

var (
	// saveOutcomes counts connection saves by outcome (ok / error).
	saveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptv",
			Name:      "connection_saves_total",
			Help:      "Total number of connection save requests by outcome.",
		},
		[]string{"outcome"},
	)

	// reconcileOps counts individual reconciliation operations applied
	// during saves: created, updated, restored, removed, skipped_asti.
	reconcileOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptv",
			Name:      "connection_reconcile_operations_total",
			Help:      "Total reconciliation operations applied by connection saves.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(saveOutcomes, reconcileOps)
}

// ConnectionService implements the connection use-cases of one work
// unit. The caches are loaded once per unit and treated as immutable;
// the service is safe for concurrent use. Each save or read runs inside
// its own database transaction; concurrent saves for the same main
// entity are not coordinated here; the surrounding system serializes
// such writes at a higher layer (optimistic concurrency on the main
// entity's modified timestamp).
type ConnectionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Types resolves type codes to ids and back.
	Types *cache.TypeCache
	// Languages resolves language codes and ordering weights.
	Languages *cache.LanguageCache
	// Resolver picks the applicable version of a connected entity.
	Resolver *resolve.Resolver
}

// NewConnectionService constructs a ConnectionService over the given
// work-unit caches.
func NewConnectionService(db *gorm.DB, tc *cache.TypeCache, lc *cache.LanguageCache) *ConnectionService {
	return &ConnectionService{
		DB:        db,
		Types:     tc,
		Languages: lc,
		Resolver:  resolve.NewResolver(tc),
	}
}

// Save reconciles the desired connection set of mainRootID against
// storage atomically.
//
// Semantics:
//   - Pairs only in desired are created; pairs in both are updated with
//     a full attribute replace (descriptions, authorizations, charge
//     type); pairs only in storage are soft-deleted.
//   - A previously removed pair reappearing in desired revives the
//     existing row; the composite key stays unique.
//   - ASTI-imported rows are immutable from this side: their absence
//     from desired is silently ignored and desired entries matching an
//     ASTI row are skipped, not applied.
//   - After reconciliation both directions are renumbered 1..N: the
//     manual bucket follows the desired list order, the ASTI bucket
//     keeps its own relative order, and every affected channel's
//     service list is renumbered as well.
//   - A duplicate composite key in desired aborts the save before any
//     row is touched (ErrDuplicatePair).
func (s *ConnectionService) Save(ctx context.Context, editor, mainRootID string, desired []translate.ConnectionWriteModel) error {
	ctx, span := tracer.Start(ctx, "ConnectionService.Save")
	span.SetAttributes(
		attribute.String("main_root_id", mainRootID),
		attribute.Int("desired_count", len(desired)),
	)
	defer span.End()

	if mainRootID == "" {
		return ErrMainRootRequired
	}

	now := time.Now().UTC()

	// Translate and validate everything up front so a bad write model
	// aborts before the transaction opens.
	rows := make([]*domain.ServiceChannelConnection, 0, len(desired))
	seen := make(map[string]struct{}, len(desired))
	for _, in := range desired {
		if _, dup := seen[in.ConnectedEntityID]; dup {
			return ErrDuplicatePair
		}
		seen[in.ConnectedEntityID] = struct{}{}

		row, err := translate.ToConnectionRow(s.Types, s.Languages, mainRootID, in, now, editor)
		if err != nil {
			switch {
			case errors.Is(err, translate.ErrUnknownChargeType):
				return ErrUnknownChargeType
			case errors.Is(err, translate.ErrUnknownLanguage):
				return ErrUnknownLanguage
			}
			return err
		}
		rows = append(rows, row)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.ListConnectionsByMain(ctx, tx, mainRootID)
		if err != nil {
			return err
		}
		live := make(map[string]*domain.ServiceChannelConnection, len(existing))
		for i := range existing {
			live[existing[i].ConnectedUnificRootID] = &existing[i]
		}

		// Channels whose service lists need renumbering afterwards.
		affected := make(map[string]struct{})

		manual := make([]*domain.ServiceChannelConnection, 0, len(rows))
		for _, row := range rows {
			cur, exists := live[row.ConnectedUnificRootID]
			switch {
			case exists && cur.IsASTIConnection:
				// Immutable from this side; the desired change is dropped.
				reconcileOps.WithLabelValues("skipped_asti").Inc()
				continue
			case exists:
				if err := s.applyUpdate(ctx, tx, row); err != nil {
					return err
				}
				reconcileOps.WithLabelValues("updated").Inc()
			default:
				created, err := s.createOrRevive(ctx, tx, row)
				if err != nil {
					return err
				}
				reconcileOps.WithLabelValues(created).Inc()
				affected[row.ConnectedUnificRootID] = struct{}{}
			}
			manual = append(manual, row)
		}

		// Pairs present in storage but absent from desired are removed,
		// except ASTI rows which are left untouched.
		asti := make([]*domain.ServiceChannelConnection, 0)
		for connectedID, cur := range live {
			if _, keep := seen[connectedID]; keep && !cur.IsASTIConnection {
				continue
			}
			if cur.IsASTIConnection {
				asti = append(asti, cur)
				continue
			}
			if err := repo.SoftDeleteConnection(ctx, tx, mainRootID, connectedID); err != nil {
				return err
			}
			reconcileOps.WithLabelValues("removed").Inc()
			affected[connectedID] = struct{}{}
		}

		// Main-direction renumbering: the manual bucket follows the
		// desired list order, the ASTI bucket keeps its stored order.
		ordering.ReassignMainOrder(manual)
		ordering.SortByMainOrder(asti)
		ordering.ReassignMainOrder(asti)
		for _, row := range append(manual, asti...) {
			if err := repo.UpdateMainOrderNumber(ctx, tx, mainRootID, row.ConnectedUnificRootID, row.OrderNumber); err != nil {
				return err
			}
		}

		// Channel-direction renumbering for every channel touched by
		// this save: each channel keeps its own independent ordering of
		// the services connected to it.
		for connectedID := range affected {
			if err := s.renumberChannel(ctx, tx, connectedID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		saveOutcomes.WithLabelValues("error").Inc()
		return err
	}
	saveOutcomes.WithLabelValues("ok").Inc()
	return nil
}

// applyUpdate replaces the attributes and child rows of an existing live
// pair with the translated desired row.
func (s *ConnectionService) applyUpdate(ctx context.Context, tx *gorm.DB, row *domain.ServiceChannelConnection) error {
	if err := repo.UpdateConnectionAttrs(ctx, tx, row); err != nil {
		return err
	}
	return s.replaceChildren(ctx, tx, row)
}

// createOrRevive inserts the pair's row, or revives and rewrites the
// soft-deleted row when the pair existed before. Returns the metric op
// label that was applied.
func (s *ConnectionService) createOrRevive(ctx context.Context, tx *gorm.DB, row *domain.ServiceChannelConnection) (string, error) {
	_, err := repo.GetConnectionPairUnscoped(ctx, tx, row.MainUnificRootID, row.ConnectedUnificRootID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return "created", repo.CreateConnection(ctx, tx, row)
	case err != nil:
		return "", err
	}
	// The pair exists but is soft-deleted (live rows were handled by the
	// caller): revive it and replace its state with the desired one.
	if err := repo.UpdateConnectionAttrs(ctx, tx, row); err != nil {
		return "", err
	}
	return "restored", s.replaceChildren(ctx, tx, row)
}

// replaceChildren reconciles description and authorization child rows.
func (s *ConnectionService) replaceChildren(ctx context.Context, tx *gorm.DB, row *domain.ServiceChannelConnection) error {
	if err := repo.UpsertConnectionDescriptions(ctx, tx, row.MainUnificRootID, row.ConnectedUnificRootID, row.Descriptions); err != nil {
		return err
	}
	return repo.ReplaceConnectionAuthorizations(ctx, tx, row.MainUnificRootID, row.ConnectedUnificRootID, row.DigitalAuthorizations)
}

// renumberChannel renumbers the channel-direction order of one channel's
// live rows 1..N by their current (channel order, created) sequence.
func (s *ConnectionService) renumberChannel(ctx context.Context, tx *gorm.DB, connectedRootID string) error {
	rows, err := repo.ListConnectionsByConnectedOne(ctx, tx, connectedRootID)
	if err != nil {
		return err
	}
	ptrs := make([]*domain.ServiceChannelConnection, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	ordering.SortByChannelOrder(ptrs)
	ordering.ReassignChannelOrder(ptrs)
	for _, r := range ptrs {
		if err := repo.UpdateChannelOrderNumber(ctx, tx, r.MainUnificRootID, r.ConnectedUnificRootID, r.ChannelOrderNumber); err != nil {
			return err
		}
	}
	return nil
}

// List returns the read models of a main entity's live connections,
// ordered by (orderNumber, created). Connections
// whose connected entity has no resolvable version are omitted; the
// entity may be mid-deletion and that is not an error.
func (s *ConnectionService) List(ctx context.Context, mainRootID string) ([]translate.ConnectionReadModel, error) {
	ctx, span := tracer.Start(ctx, "ConnectionService.List")
	span.SetAttributes(attribute.String("main_root_id", mainRootID))
	defer span.End()

	if mainRootID == "" {
		return nil, ErrMainRootRequired
	}

	rows, err := repo.ListConnectionsByMain(ctx, s.DB, mainRootID)
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

	out := make([]translate.ConnectionReadModel, 0, len(rows))
	for _, row := range rows {
		resolved := s.Resolver.Resolve(byRoot[row.ConnectedUnificRootID])
		if resolved == nil {
			continue
		}
		out = append(out, translate.ToConnectionView(s.Types, s.Languages, row, resolved))
	}
	return out, nil
}

// ServiceChannelRelations returns, for every requested channel root id,
// the live join rows whose service side currently resolves to an
// accepted publishing status (everything except Deleted and
// OldPublished). The result never contains a key outside rootIDs, and a
// requested root with no passing rows is absent from the map.
func (s *ConnectionService) ServiceChannelRelations(ctx context.Context, rootIDs []string) (map[string][]translate.ConnectionReadModel, error) {
	ctx, span := tracer.Start(ctx, "ConnectionService.ServiceChannelRelations")
	span.SetAttributes(attribute.Int("root_count", len(rootIDs)))
	defer span.End()

	// Hard filter at the query: rows outside the requested set never
	// reach grouping.
	rows, err := repo.ListConnectionsByConnected(ctx, s.DB, rootIDs)
	if err != nil {
		return nil, err
	}

	mainIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		mainIDs = append(mainIDs, r.MainUnificRootID)
	}
	versions, err := repo.ListVersionsByRoots(ctx, s.DB, mainIDs)
	if err != nil {
		return nil, err
	}
	byRoot := repo.GroupVersionsByRoot(versions)

	out := make(map[string][]translate.ConnectionReadModel)
	for _, row := range rows {
		resolved := s.Resolver.Resolve(byRoot[row.MainUnificRootID])
		if !s.Resolver.AcceptedVersion(resolved) {
			continue
		}
		view := translate.ToConnectionView(s.Types, s.Languages, row, resolved)
		// This direction orders by the channel's own list of services.
		view.OrderNumber = row.ChannelOrderNumber
		out[row.ConnectedUnificRootID] = append(out[row.ConnectedUnificRootID], view)
	}
	return out, nil
}
