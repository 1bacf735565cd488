package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func pair(main, connected string, order int, created time.Time) *domain.ServiceChannelConnection {
	return &domain.ServiceChannelConnection{
		MainUnificRootID:      main,
		ConnectedUnificRootID: connected,
		OrderNumber:           order,
		Created:               created,
		Modified:              created,
		ModifiedBy:            "tester",
	}
}

func TestConnectionLifecycle(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	for i, connected := range []string{"c1", "c2", "c3"} {
		if err := CreateConnection(ctx, db, pair("s1", connected, i+1, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create %s: %v", connected, err)
		}
	}

	rows, err := ListConnectionsByMain(ctx, db, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.OrderNumber != i+1 {
			t.Fatalf("row %d out of order: %d", i, r.OrderNumber)
		}
	}

	if err := SoftDeleteConnection(ctx, db, "s1", "c2"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	rows, err = ListConnectionsByMain(ctx, db, "s1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected soft-deleted row hidden, got %d rows", len(rows))
	}

	all, err := ListConnectionsByMainUnscoped(ctx, db, "s1")
	if err != nil {
		t.Fatalf("list unscoped: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected unscoped list to keep deleted row, got %d rows", len(all))
	}
	var deleted int
	for _, r := range all {
		if r.DeletedAt.Valid {
			deleted++
		}
	}
	if deleted != 1 {
		t.Fatalf("expected exactly one deleted row, got %d", deleted)
	}
}

func TestGetConnectionPairUnscoped(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := GetConnectionPairUnscoped(ctx, db, "s1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := CreateConnection(ctx, db, pair("s1", "c1", 1, now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := SoftDeleteConnection(ctx, db, "s1", "c1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	row, err := GetConnectionPairUnscoped(ctx, db, "s1", "c1")
	if err != nil {
		t.Fatalf("get unscoped: %v", err)
	}
	if !row.DeletedAt.Valid {
		t.Fatal("expected the soft-deleted row to be visible unscoped")
	}
}

func TestUpdateConnectionAttrs_RevivesDeletedRow(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateConnection(ctx, db, pair("s1", "c1", 1, now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := SoftDeleteConnection(ctx, db, "s1", "c1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	chargeID := uuid.NewString()
	updated := pair("s1", "c1", 1, now)
	updated.ChargeTypeID = &chargeID
	updated.Modified = now.Add(time.Hour)
	updated.ModifiedBy = "editor-2"
	if err := UpdateConnectionAttrs(ctx, db, updated); err != nil {
		t.Fatalf("update attrs: %v", err)
	}

	rows, err := ListConnectionsByMain(ctx, db, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected revived row to be live again, got %d rows", len(rows))
	}
	if rows[0].ChargeTypeID == nil || *rows[0].ChargeTypeID != chargeID {
		t.Fatal("charge type not written")
	}
	if rows[0].ModifiedBy != "editor-2" {
		t.Fatalf("modified_by not written: %q", rows[0].ModifiedBy)
	}
}

func TestUpdateOrderNumbers(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateConnection(ctx, db, pair("s1", "c1", 5, now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := UpdateMainOrderNumber(ctx, db, "s1", "c1", 1); err != nil {
		t.Fatalf("update main order: %v", err)
	}
	if err := UpdateChannelOrderNumber(ctx, db, "s1", "c1", 2); err != nil {
		t.Fatalf("update channel order: %v", err)
	}

	rows, err := ListConnectionsByMain(ctx, db, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rows[0].OrderNumber != 1 || rows[0].ChannelOrderNumber != 2 {
		t.Fatalf("order numbers not written: %+v", rows[0])
	}
}

func TestListConnectionsByConnected_OnlyRequestedRoots(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, p := range []struct{ main, connected string }{
		{"s1", "ch1"}, {"s2", "ch1"}, {"s3", "ch2"},
	} {
		if err := CreateConnection(ctx, db, pair(p.main, p.connected, 1, now)); err != nil {
			t.Fatalf("create %s/%s: %v", p.main, p.connected, err)
		}
	}

	rows, err := ListConnectionsByConnected(ctx, db, []string{"ch1"})
	if err != nil {
		t.Fatalf("list by connected: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows for ch1, got %d", len(rows))
	}
	for _, r := range rows {
		if r.ConnectedUnificRootID != "ch1" {
			t.Fatalf("row outside requested set leaked: %+v", r)
		}
	}

	rows, err = ListConnectionsByConnected(ctx, db, nil)
	if err != nil {
		t.Fatalf("list with empty set: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result for empty root set, got %d", len(rows))
	}
}

func TestUpsertConnectionDescriptions_Diff(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateConnection(ctx, db, pair("s1", "c1", 1, now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	typeID, fiID, svID := uuid.NewString(), uuid.NewString(), uuid.NewString()
	desc := func(locID, text string) domain.ConnectionDescription {
		return domain.ConnectionDescription{
			OwnerReferenceID:  "s1",
			OwnerReferenceID2: "c1",
			TypeID:            typeID,
			LocalizationID:    locID,
			Description:       text,
		}
	}

	if err := UpsertConnectionDescriptions(ctx, db, "s1", "c1", []domain.ConnectionDescription{
		desc(fiID, "alkuperäinen"), desc(svID, "ursprunglig"),
	}); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	// Change fi, drop sv.
	if err := UpsertConnectionDescriptions(ctx, db, "s1", "c1", []domain.ConnectionDescription{
		desc(fiID, "muokattu"),
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var rows []domain.ConnectionDescription
	if err := db.Where("owner_reference_id = ? AND owner_reference_id2 = ?", "s1", "c1").Find(&rows).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected absent language removed, got %d rows", len(rows))
	}
	if rows[0].LocalizationID != fiID || rows[0].Description != "muokattu" {
		t.Fatalf("expected fi updated in place, got %+v", rows[0])
	}
}

func TestReplaceConnectionAuthorizations(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateConnection(ctx, db, pair("s1", "c1", 1, now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	auth := func(id string) domain.ConnectionDigitalAuthorization {
		return domain.ConnectionDigitalAuthorization{
			OwnerReferenceID:  "s1",
			OwnerReferenceID2: "c1",
			AuthorizationID:   id,
		}
	}

	if err := ReplaceConnectionAuthorizations(ctx, db, "s1", "c1", []domain.ConnectionDigitalAuthorization{
		auth("a1"), auth("a2"),
	}); err != nil {
		t.Fatalf("initial replace: %v", err)
	}
	if err := ReplaceConnectionAuthorizations(ctx, db, "s1", "c1", []domain.ConnectionDigitalAuthorization{
		auth("a3"),
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	var rows []domain.ConnectionDigitalAuthorization
	if err := db.Where("owner_reference_id = ? AND owner_reference_id2 = ?", "s1", "c1").Find(&rows).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0].AuthorizationID != "a3" {
		t.Fatalf("expected authorization set replaced, got %+v", rows)
	}

	if err := ReplaceConnectionAuthorizations(ctx, db, "s1", "c1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := db.Where("owner_reference_id = ?", "s1").Find(&rows).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected cleared set, got %d rows", len(rows))
	}
}

func TestVersionsByRoots(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	statusID := uuid.NewString()
	mk := func(root string) *domain.EntityVersion {
		return &domain.EntityVersion{
			ID:                 uuid.NewString(),
			UnificRootID:       root,
			Kind:               domain.KindService,
			PublishingStatusID: statusID,
			Created:            now,
			Modified:           now,
		}
	}
	for _, root := range []string{"r1", "r1", "r2"} {
		if err := CreateVersion(ctx, db, mk(root)); err != nil {
			t.Fatalf("create version: %v", err)
		}
	}

	versions, err := ListVersionsByRoots(ctx, db, []string{"r1", "r2"})
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	grouped := GroupVersionsByRoot(versions)
	if len(grouped["r1"]) != 2 || len(grouped["r2"]) != 1 {
		t.Fatalf("unexpected grouping: r1=%d r2=%d", len(grouped["r1"]), len(grouped["r2"]))
	}

	versions, err = ListVersionsByRoots(ctx, db, nil)
	if err != nil {
		t.Fatalf("list with empty roots: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("expected empty result, got %d", len(versions))
	}
}

func TestIdempotencyRecords(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := GetIdempotency(ctx, db, "u1", "s1", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "s1", "k1", 204, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "s1", "k1", 204, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	rec, err := GetIdempotency(ctx, db, "u1", "s1", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != 204 {
		t.Fatalf("expected recorded status 204, got %d", rec.Status)
	}

	// Same key under another main root is a distinct record.
	if _, err := CreateIdempotency(ctx, db, "u1", "s2", "k1", 204, time.Hour); err != nil {
		t.Fatalf("create for second root: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "u1", "", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank root id: expected ErrNotFound, got %v", err)
	}
}
