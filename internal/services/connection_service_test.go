package services

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

	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/domain"
	"github.com/vrk-kpa/ptv-registry/internal/repo"
	"github.com/vrk-kpa/ptv-registry/internal/translate"
)

type testEnv struct {
	db      *gorm.DB
	types   *cache.TypeCache
	langs   *cache.LanguageCache
	conns   *ConnectionService
	history *HistoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
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

	ctx := context.Background()
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedTypes(ctx, db); err != nil {
		t.Fatalf("seed types: %v", err)
	}
	tc, err := cache.LoadTypeCache(ctx, db)
	if err != nil {
		t.Fatalf("load type cache: %v", err)
	}
	lc, err := cache.LoadLanguageCache(ctx, db)
	if err != nil {
		t.Fatalf("load language cache: %v", err)
	}
	return &testEnv{
		db:      db,
		types:   tc,
		langs:   lc,
		conns:   NewConnectionService(db, tc, lc),
		history: NewHistoryService(db, tc, lc),
	}
}

// addVersion stores one version of rootID in the given status, with a
// Finnish display name so projections have something to show.
func (e *testEnv) addVersion(t *testing.T, rootID, kind, statusCode string) {
	t.Helper()

	statusID, ok := e.types.PublishingStatusID(statusCode)
	if !ok {
		t.Fatalf("status %q missing", statusCode)
	}
	nameTypeID, _ := e.types.NameTypeID(domain.NameTypeName)
	fiID, _ := e.langs.ID("fi")

	now := time.Now().UTC()
	v := &domain.EntityVersion{
		ID:                 uuid.NewString(),
		UnificRootID:       rootID,
		Kind:               kind,
		PublishingStatusID: statusID,
		OrganizationID:     "org-1",
		Created:            now,
		Modified:           now,
		ModifiedBy:         "seeder",
		LanguageAvailabilities: []domain.LanguageAvailability{
			{LanguageID: fiID, StatusID: statusID},
		},
		Names: []domain.EntityName{
			{TypeID: nameTypeID, LocalizationID: fiID, Name: "Nimi " + rootID},
		},
	}
	if kind == domain.KindServiceChannel {
		channelTypeID, _ := e.types.ChannelTypeID(domain.ChannelTypeEChannel)
		v.ChannelTypeID = &channelTypeID
	}
	if err := repo.CreateVersion(context.Background(), e.db, v); err != nil {
		t.Fatalf("create version for %s: %v", rootID, err)
	}
}

// addASTIRow inserts an imported connection row directly, bypassing Save.
func (e *testEnv) addASTIRow(t *testing.T, main, connected string, order int) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.CreateConnection(context.Background(), e.db, &domain.ServiceChannelConnection{
		MainUnificRootID:      main,
		ConnectedUnificRootID: connected,
		OrderNumber:           order,
		ChannelOrderNumber:    1,
		IsASTIConnection:      true,
		Created:               now,
		Modified:              now,
		ModifiedBy:            "asti-import",
	})
	if err != nil {
		t.Fatalf("create asti row %s/%s: %v", main, connected, err)
	}
}

func want(connected string, order int) translate.ConnectionWriteModel {
	return translate.ConnectionWriteModel{ConnectedEntityID: connected, OrderNumber: order}
}

func TestSaveAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	for _, ch := range []string{"ch1", "ch2"} {
		env.addVersion(t, ch, domain.KindServiceChannel, domain.StatusPublished)
	}

	desired := []translate.ConnectionWriteModel{
		{
			ConnectedEntityID: "ch2",
			ChargeType:        domain.ChargeTypeFree,
			Description:       map[string]string{"fi": "kuvaus"},
		},
		{ConnectedEntityID: "ch1"},
	}
	if err := env.conns.Save(ctx, "editor-1", "s1", desired); err != nil {
		t.Fatalf("save: %v", err)
	}

	views, err := env.conns.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(views))
	}
	// Desired list order becomes the main-direction order.
	if views[0].UnificRootID != "ch2" || views[0].OrderNumber != 1 {
		t.Fatalf("first view: %+v", views[0])
	}
	if views[1].UnificRootID != "ch1" || views[1].OrderNumber != 2 {
		t.Fatalf("second view: %+v", views[1])
	}
	if views[0].ChargeType != domain.ChargeTypeFree {
		t.Fatalf("charge type lost: %q", views[0].ChargeType)
	}
	if views[0].Description["fi"] != "kuvaus" {
		t.Fatalf("description lost: %v", views[0].Description)
	}
	if views[0].ChannelType != domain.ChannelTypeEChannel {
		t.Fatalf("channel type not resolved: %q", views[0].ChannelType)
	}
	if views[0].Name["fi"] != "Nimi ch2" {
		t.Fatalf("name not resolved: %v", views[0].Name)
	}
	if views[0].ConnectionID != "s1ch2" {
		t.Fatalf("unexpected connection id %q", views[0].ConnectionID)
	}
}

func TestSave_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	for _, ch := range []string{"ch1", "ch2"} {
		env.addVersion(t, ch, domain.KindServiceChannel, domain.StatusPublished)
	}

	desired := []translate.ConnectionWriteModel{
		{ConnectedEntityID: "ch1", Description: map[string]string{"fi": "a"}},
		{ConnectedEntityID: "ch2", DigitalAuthorizations: []string{"auth-1"}},
	}
	for i := 0; i < 2; i++ {
		if err := env.conns.Save(ctx, "editor-1", "s1", desired); err != nil {
			t.Fatalf("save %d: %v", i+1, err)
		}
	}

	all, err := repo.ListConnectionsByMainUnscoped(ctx, env.db, "s1")
	if err != nil {
		t.Fatalf("list unscoped: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("repeated save drifted: expected 2 rows, got %d", len(all))
	}
	for i, r := range all {
		if r.DeletedAt.Valid {
			t.Fatalf("row %d unexpectedly deleted", i)
		}
		if r.OrderNumber != i+1 {
			t.Fatalf("row %d order drifted: %d", i, r.OrderNumber)
		}
	}

	views, err := env.conns.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Description["fi"] != "a" {
		t.Fatalf("description drifted: %v", views[0].Description)
	}
	if len(views[1].DigitalAuthorizations) != 1 || views[1].DigitalAuthorizations[0] != "auth-1" {
		t.Fatalf("authorizations drifted: %v", views[1].DigitalAuthorizations)
	}
}

func TestSave_ASTIRowsAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	for _, ch := range []string{"c1", "c2", "c3"} {
		env.addVersion(t, ch, domain.KindServiceChannel, domain.StatusPublished)
	}

	// c1 manual, c2 ASTI-imported.
	if err := env.conns.Save(ctx, "editor-1", "s1", []translate.ConnectionWriteModel{want("c1", 1)}); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	env.addASTIRow(t, "s1", "c2", 1)

	// Desired replaces everything with c3: c1 goes, c2 must survive.
	if err := env.conns.Save(ctx, "editor-1", "s1", []translate.ConnectionWriteModel{want("c3", 1)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows, err := repo.ListConnectionsByMain(ctx, env.db, "s1")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	live := make(map[string]domain.ServiceChannelConnection, len(rows))
	for _, r := range rows {
		live[r.ConnectedUnificRootID] = r
	}

	if _, gone := live["c1"]; gone {
		t.Fatal("expected c1 removed")
	}
	c2, ok := live["c2"]
	if !ok {
		t.Fatal("expected ASTI row c2 untouched by the save")
	}
	if !c2.IsASTIConnection || c2.ModifiedBy != "asti-import" {
		t.Fatalf("ASTI row was modified: %+v", c2)
	}
	c3, ok := live["c3"]
	if !ok {
		t.Fatal("expected c3 created")
	}
	// Manual and ASTI buckets number independently, both starting at 1.
	if c3.OrderNumber != 1 {
		t.Fatalf("manual bucket: expected order 1, got %d", c3.OrderNumber)
	}
	if c2.OrderNumber != 1 {
		t.Fatalf("asti bucket: expected order 1, got %d", c2.OrderNumber)
	}
}

func TestSave_DesiredChangeToASTIRowIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	env.addVersion(t, "c1", domain.KindServiceChannel, domain.StatusPublished)
	env.addASTIRow(t, "s1", "c1", 1)

	desired := []translate.ConnectionWriteModel{
		{ConnectedEntityID: "c1", ChargeType: domain.ChargeTypeCharged},
	}
	if err := env.conns.Save(ctx, "editor-1", "s1", desired); err != nil {
		t.Fatalf("save: %v", err)
	}

	row, err := repo.GetConnectionPairUnscoped(ctx, env.db, "s1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.ChargeTypeID != nil {
		t.Fatal("expected desired change to the ASTI row to be dropped")
	}
	if row.ModifiedBy != "asti-import" {
		t.Fatalf("ASTI row was touched: %+v", row)
	}
}

func TestSave_RevivesRemovedPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	env.addVersion(t, "c1", domain.KindServiceChannel, domain.StatusPublished)

	if err := env.conns.Save(ctx, "editor-1", "s1", []translate.ConnectionWriteModel{want("c1", 1)}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := env.conns.Save(ctx, "editor-1", "s1", nil); err != nil {
		t.Fatalf("removal save: %v", err)
	}
	if err := env.conns.Save(ctx, "editor-2", "s1", []translate.ConnectionWriteModel{want("c1", 1)}); err != nil {
		t.Fatalf("re-add save: %v", err)
	}

	all, err := repo.ListConnectionsByMainUnscoped(ctx, env.db, "s1")
	if err != nil {
		t.Fatalf("list unscoped: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the removed pair revived, not duplicated: %d rows", len(all))
	}
	if all[0].DeletedAt.Valid {
		t.Fatal("expected revived row to be live")
	}
	if all[0].ModifiedBy != "editor-2" {
		t.Fatalf("revived row not restamped: %q", all[0].ModifiedBy)
	}
}

func TestSave_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.conns.Save(ctx, "editor-1", "", nil); !errors.Is(err, ErrMainRootRequired) {
		t.Fatalf("expected ErrMainRootRequired, got %v", err)
	}

	dup := []translate.ConnectionWriteModel{want("c1", 1), want("c1", 2)}
	if err := env.conns.Save(ctx, "editor-1", "s1", dup); !errors.Is(err, ErrDuplicatePair) {
		t.Fatalf("expected ErrDuplicatePair, got %v", err)
	}

	bad := []translate.ConnectionWriteModel{{ConnectedEntityID: "c1", ChargeType: "Gratis"}}
	if err := env.conns.Save(ctx, "editor-1", "s1", bad); !errors.Is(err, ErrUnknownChargeType) {
		t.Fatalf("expected ErrUnknownChargeType, got %v", err)
	}

	badLang := []translate.ConnectionWriteModel{{
		ConnectedEntityID: "c1",
		Description:       map[string]string{"de": "text"},
	}}
	if err := env.conns.Save(ctx, "editor-1", "s1", badLang); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}

	// A failed save leaves no rows behind.
	rows, err := repo.ListConnectionsByMainUnscoped(ctx, env.db, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("failed saves wrote rows: %d", len(rows))
	}
}

func TestList_OmitsUnresolvableEntities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s1", domain.KindService, domain.StatusPublished)
	env.addVersion(t, "ch-ok", domain.KindServiceChannel, domain.StatusPublished)
	env.addVersion(t, "ch-gone", domain.KindServiceChannel, domain.StatusRemoved)

	desired := []translate.ConnectionWriteModel{want("ch-ok", 1), want("ch-gone", 2)}
	if err := env.conns.Save(ctx, "editor-1", "s1", desired); err != nil {
		t.Fatalf("save: %v", err)
	}

	views, err := env.conns.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].UnificRootID != "ch-ok" {
		t.Fatalf("expected the unresolvable channel omitted, got %+v", views)
	}
}

func TestServiceChannelRelations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addVersion(t, "s-live", domain.KindService, domain.StatusPublished)
	env.addVersion(t, "s-deleted", domain.KindService, domain.StatusDeleted)
	env.addVersion(t, "s-other", domain.KindService, domain.StatusPublished)
	for _, ch := range []string{"ch1", "ch2"} {
		env.addVersion(t, ch, domain.KindServiceChannel, domain.StatusPublished)
	}

	for _, p := range []struct{ main, connected string }{
		{"s-live", "ch1"}, {"s-deleted", "ch1"}, {"s-other", "ch2"},
	} {
		if err := env.conns.Save(ctx, "editor-1", p.main, []translate.ConnectionWriteModel{want(p.connected, 1)}); err != nil {
			t.Fatalf("save %s: %v", p.main, err)
		}
	}

	out, err := env.conns.ServiceChannelRelations(ctx, []string{"ch1"})
	if err != nil {
		t.Fatalf("relations: %v", err)
	}

	// Only requested roots may appear as keys.
	if _, leaked := out["ch2"]; leaked {
		t.Fatal("unrequested root leaked into the result")
	}
	views, ok := out["ch1"]
	if !ok {
		t.Fatal("expected ch1 in the result")
	}
	// The deleted service side is filtered out.
	if len(views) != 1 || views[0].UnificRootID != "s-live" {
		t.Fatalf("expected only the live service, got %+v", views)
	}
	// This direction uses the channel's own ordering.
	if views[0].OrderNumber < 1 {
		t.Fatalf("expected a channel-direction order number, got %d", views[0].OrderNumber)
	}

	out, err = env.conns.ServiceChannelRelations(ctx, nil)
	if err != nil {
		t.Fatalf("relations with empty set: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty map, got %d keys", len(out))
	}
}
