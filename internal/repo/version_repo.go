// Package repo implements the data persistence layer for the registry,
// backed by GORM. This file provides repository functions for entity
// versions and their per-language child rows.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is with
// either sentinel.
var ErrNotFound = gorm.ErrRecordNotFound

// ListVersionsByRoots returns every stored version of the given unific
// roots, with language availabilities and names preloaded. The result is
// flat; callers group by UnificRootID before resolving.
func ListVersionsByRoots(ctx context.Context, db *gorm.DB, rootIDs []string) ([]domain.EntityVersion, error) {
	if len(rootIDs) == 0 {
		return []domain.EntityVersion{}, nil
	}
	var out []domain.EntityVersion
	err := db.WithContext(ctx).
		Preload("LanguageAvailabilities").
		Preload("Names").
		Where("unific_root_id IN ?", rootIDs).
		Order("unific_root_id ASC, modified DESC").
		Find(&out).Error
	return out, err
}

// GroupVersionsByRoot buckets a flat version list by unific root id.
func GroupVersionsByRoot(versions []domain.EntityVersion) map[string][]domain.EntityVersion {
	out := make(map[string][]domain.EntityVersion)
	for _, v := range versions {
		out[v.UnificRootID] = append(out[v.UnificRootID], v)
	}
	return out
}

// CreateVersion inserts one entity version together with its child rows.
func CreateVersion(ctx context.Context, db *gorm.DB, v *domain.EntityVersion) error {
	return db.WithContext(ctx).Create(v).Error
}
