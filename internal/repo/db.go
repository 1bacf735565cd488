// Package repo implements the data persistence layer for the registry,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migration, and code-table seeding.
package repo

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs, and
// installs the GORM OpenTelemetry plugin so queries show up as spans.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all registry models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.PublishingStatusType{},
		&domain.DescriptionType{},
		&domain.ServiceChargeType{},
		&domain.NameType{},
		&domain.ChannelType{},
		&domain.Language{},
		&domain.EntityVersion{},
		&domain.LanguageAvailability{},
		&domain.EntityName{},
		&domain.ServiceChannelConnection{},
		&domain.ConnectionDescription{},
		&domain.ConnectionDigitalAuthorization{},
		&domain.Idempotency{},
	)
}

// SeedTypes inserts the code-table rows the application expects when
// they are missing. Existing rows (matched by code) are left untouched,
// so ids stay stable across restarts of the same database.
func SeedTypes(ctx context.Context, db *gorm.DB) error {
	statuses := []struct {
		code     string
		priority int
	}{
		{domain.StatusPublished, 1},
		{domain.StatusDraft, 2},
		{domain.StatusModified, 3},
		{domain.StatusOldPublished, 4},
		{domain.StatusDeleted, 9},
		{domain.StatusRemoved, 10},
	}
	for _, s := range statuses {
		row := domain.PublishingStatusType{ID: uuid.NewString(), Code: s.code, PriorityFallback: s.priority}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", s.code).Error; err != nil {
			return err
		}
	}

	for _, code := range []string{domain.DescriptionTypeDescription, domain.DescriptionTypeChargeAdditionalInfo} {
		row := domain.DescriptionType{ID: uuid.NewString(), Code: code}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", code).Error; err != nil {
			return err
		}
	}

	for _, code := range []string{domain.ChargeTypeCharged, domain.ChargeTypeFree, domain.ChargeTypeOther} {
		row := domain.ServiceChargeType{ID: uuid.NewString(), Code: code}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", code).Error; err != nil {
			return err
		}
	}

	for _, code := range []string{domain.NameTypeName, domain.NameTypeAlternate} {
		row := domain.NameType{ID: uuid.NewString(), Code: code}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", code).Error; err != nil {
			return err
		}
	}

	for _, code := range []string{
		domain.ChannelTypeEChannel,
		domain.ChannelTypeWebPage,
		domain.ChannelTypePrintableForm,
		domain.ChannelTypePhone,
		domain.ChannelTypeServiceLocation,
	} {
		row := domain.ChannelType{ID: uuid.NewString(), Code: code}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", code).Error; err != nil {
			return err
		}
	}

	langs := []struct {
		code  string
		order int
	}{
		{"fi", 1}, {"sv", 2}, {"en", 3}, {"se", 4},
	}
	for _, l := range langs {
		row := domain.Language{ID: uuid.NewString(), Code: l.code, OrderNumber: l.order}
		if err := db.WithContext(ctx).FirstOrCreate(&row, "code = ?", l.code).Error; err != nil {
			return err
		}
	}

	return nil
}
