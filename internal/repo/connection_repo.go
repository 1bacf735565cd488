// Package repo implements the data persistence layer for the registry,
// backed by GORM. This file provides repository functions for the
// service↔channel connection rows and their description/authorization
// children.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// ListConnectionsByMain returns the live connection rows of one main
// entity with children preloaded, ordered by (order_number, created)
// rather than trusting strict contiguity.
func ListConnectionsByMain(ctx context.Context, db *gorm.DB, mainRootID string) ([]domain.ServiceChannelConnection, error) {
	var out []domain.ServiceChannelConnection
	err := db.WithContext(ctx).
		Preload("Descriptions").
		Preload("DigitalAuthorizations").
		Where("main_unific_root_id = ?", mainRootID).
		Order("order_number ASC, created ASC").
		Find(&out).Error
	return out, err
}

// ListConnectionsByMainUnscoped returns all connection rows of one main
// entity including soft-deleted ones. The history projector derives its
// operation tags from these rows.
func ListConnectionsByMainUnscoped(ctx context.Context, db *gorm.DB, mainRootID string) ([]domain.ServiceChannelConnection, error) {
	var out []domain.ServiceChannelConnection
	err := db.WithContext(ctx).Unscoped().
		Where("main_unific_root_id = ?", mainRootID).
		Order("order_number ASC, created ASC").
		Find(&out).Error
	return out, err
}

// ListConnectionsByConnected returns the live rows whose connected root
// id is in rootIDs, children preloaded. Rows outside the requested set
// never appear.
func ListConnectionsByConnected(ctx context.Context, db *gorm.DB, rootIDs []string) ([]domain.ServiceChannelConnection, error) {
	if len(rootIDs) == 0 {
		return []domain.ServiceChannelConnection{}, nil
	}
	var out []domain.ServiceChannelConnection
	err := db.WithContext(ctx).
		Preload("Descriptions").
		Preload("DigitalAuthorizations").
		Where("connected_unific_root_id IN ?", rootIDs).
		Order("channel_order_number ASC, created ASC").
		Find(&out).Error
	return out, err
}

// ListConnectionsByConnectedOne returns the live rows of one connected
// channel, ordered by the channel-direction order number.
func ListConnectionsByConnectedOne(ctx context.Context, db *gorm.DB, connectedRootID string) ([]domain.ServiceChannelConnection, error) {
	var out []domain.ServiceChannelConnection
	err := db.WithContext(ctx).
		Where("connected_unific_root_id = ?", connectedRootID).
		Order("channel_order_number ASC, created ASC").
		Find(&out).Error
	return out, err
}

// GetConnectionPairUnscoped fetches the row for a composite pair
// including soft-deleted rows, or ErrNotFound. Re-adding a previously
// removed pair must revive this row rather than create a duplicate.
func GetConnectionPairUnscoped(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string) (*domain.ServiceChannelConnection, error) {
	var row domain.ServiceChannelConnection
	err := db.WithContext(ctx).Unscoped().
		Where("main_unific_root_id = ? AND connected_unific_root_id = ?", mainRootID, connectedRootID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateConnection inserts a connection row together with its child rows.
func CreateConnection(ctx context.Context, db *gorm.DB, row *domain.ServiceChannelConnection) error {
	return db.WithContext(ctx).Create(row).Error
}

// UpdateConnectionAttrs replaces the scalar attributes of the pair's row
// (charge type, modified stamp) and revives it when soft-deleted. Order
// numbers are written separately by UpdateMainOrderNumber and
// UpdateChannelOrderNumber after renumbering.
func UpdateConnectionAttrs(ctx context.Context, db *gorm.DB, row *domain.ServiceChannelConnection) error {
	return db.WithContext(ctx).Unscoped().
		Model(&domain.ServiceChannelConnection{}).
		Where("main_unific_root_id = ? AND connected_unific_root_id = ?", row.MainUnificRootID, row.ConnectedUnificRootID).
		Updates(map[string]any{
			"charge_type_id": row.ChargeTypeID,
			"modified":       row.Modified,
			"modified_by":    row.ModifiedBy,
			"deleted_at":     nil,
		}).Error
}

// UpdateMainOrderNumber writes the main-direction order number of one
// pair.
func UpdateMainOrderNumber(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string, orderNumber int) error {
	return db.WithContext(ctx).
		Model(&domain.ServiceChannelConnection{}).
		Where("main_unific_root_id = ? AND connected_unific_root_id = ?", mainRootID, connectedRootID).
		Update("order_number", orderNumber).Error
}

// UpdateChannelOrderNumber writes the channel-direction order number of
// one pair.
func UpdateChannelOrderNumber(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string, channelOrderNumber int) error {
	return db.WithContext(ctx).
		Model(&domain.ServiceChannelConnection{}).
		Where("main_unific_root_id = ? AND connected_unific_root_id = ?", mainRootID, connectedRootID).
		Update("channel_order_number", channelOrderNumber).Error
}

// SoftDeleteConnection marks the pair's row deleted. The row and its
// children stay in storage for the history projector and for later
// revival.
func SoftDeleteConnection(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string) error {
	return db.WithContext(ctx).
		Where("main_unific_root_id = ? AND connected_unific_root_id = ?", mainRootID, connectedRootID).
		Delete(&domain.ServiceChannelConnection{}).Error
}

// UpsertConnectionDescriptions reconciles the description child rows of
// one pair against desired: rows matched by (owner key, type, language)
// are updated in place, new ones created, absent ones deleted.
func UpsertConnectionDescriptions(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string, desired []domain.ConnectionDescription) error {
	var existing []domain.ConnectionDescription
	if err := db.WithContext(ctx).
		Where("owner_reference_id = ? AND owner_reference_id2 = ?", mainRootID, connectedRootID).
		Find(&existing).Error; err != nil {
		return err
	}

	type key struct{ typeID, localizationID string }
	current := make(map[key]domain.ConnectionDescription, len(existing))
	for _, d := range existing {
		current[key{d.TypeID, d.LocalizationID}] = d
	}

	wanted := make(map[key]struct{}, len(desired))
	for _, d := range desired {
		k := key{d.TypeID, d.LocalizationID}
		wanted[k] = struct{}{}
		if cur, ok := current[k]; ok {
			if cur.Description == d.Description {
				continue
			}
			if err := db.WithContext(ctx).
				Model(&domain.ConnectionDescription{}).
				Where("owner_reference_id = ? AND owner_reference_id2 = ? AND type_id = ? AND localization_id = ?",
					mainRootID, connectedRootID, d.TypeID, d.LocalizationID).
				Update("description", d.Description).Error; err != nil {
				return err
			}
			continue
		}
		if err := db.WithContext(ctx).Create(&d).Error; err != nil {
			return err
		}
	}

	for k := range current {
		if _, keep := wanted[k]; keep {
			continue
		}
		if err := db.WithContext(ctx).
			Where("owner_reference_id = ? AND owner_reference_id2 = ? AND type_id = ? AND localization_id = ?",
				mainRootID, connectedRootID, k.typeID, k.localizationID).
			Delete(&domain.ConnectionDescription{}).Error; err != nil {
			return err
		}
	}

	return nil
}

// ReplaceConnectionAuthorizations replaces the digital-authorization set
// of one pair with desired.
func ReplaceConnectionAuthorizations(ctx context.Context, db *gorm.DB, mainRootID, connectedRootID string, desired []domain.ConnectionDigitalAuthorization) error {
	if err := db.WithContext(ctx).
		Where("owner_reference_id = ? AND owner_reference_id2 = ?", mainRootID, connectedRootID).
		Delete(&domain.ConnectionDigitalAuthorization{}).Error; err != nil {
		return err
	}
	if len(desired) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&desired).Error
}

