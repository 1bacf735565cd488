package domain

import (
	"time"

	"gorm.io/gorm"
)

// ServiceChannelConnection is the join row linking a "main" unific root
// (service or general description) to a connected service channel root.
//
// The composite natural key is (MainUnificRootID, ConnectedUnificRootID):
// at most one live row per pair. Removal is a soft delete so that the
// history projector can still see the row and so that re-adding a
// previously removed pair revives the existing row instead of creating
// a duplicate.
//
// Ordering:
//   - OrderNumber: 1-based position of this row among the main entity's
//     connections. Manual and ASTI rows are numbered in separate buckets.
//   - ChannelOrderNumber: 1-based position among the channel's own list
//     of connected services (the reverse direction).
//
// ASTI rows (IsASTIConnection=true) are imported from an external
// authoritative system and are not editable or deletable through a user
// save; the reconciler skips them.
type ServiceChannelConnection struct {
	MainUnificRootID      string         `json:"mainUnificRootId"      gorm:"type:char(36);primaryKey"`
	ConnectedUnificRootID string         `json:"connectedUnificRootId" gorm:"type:char(36);primaryKey;index:idx_connected_root"`
	OrderNumber           int            `json:"orderNumber"`
	ChannelOrderNumber    int            `json:"channelOrderNumber"`
	ChargeTypeID          *string        `json:"chargeTypeId,omitempty" gorm:"type:char(36)"`
	IsASTIConnection      bool           `json:"isASTIConnection" gorm:"not null;default:false"`
	Created               time.Time      `json:"created"`
	Modified              time.Time      `json:"modified"`
	ModifiedBy            string         `json:"modifiedBy" gorm:"type:varchar(128)"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`

	// Descriptions are the per-language free texts of the connection,
	// keyed by description type and language.
	Descriptions []ConnectionDescription `json:"descriptions" gorm:"foreignKey:OwnerReferenceID,OwnerReferenceID2;references:MainUnificRootID,ConnectedUnificRootID"`

	// DigitalAuthorizations are the external authorization ids attached
	// to the connection.
	DigitalAuthorizations []ConnectionDigitalAuthorization `json:"digitalAuthorizations" gorm:"foreignKey:OwnerReferenceID,OwnerReferenceID2;references:MainUnificRootID,ConnectedUnificRootID"`
}

// TableName returns the database table name for ServiceChannelConnection.
func (ServiceChannelConnection) TableName() string { return "service_channel_connections" }

// ConnectionID is the synthetic row key exposed to callers: the
// concatenation of the two unific-root ids' string forms. It gives the
// UI a stable identifier and carries no storage meaning.
func (c ServiceChannelConnection) ConnectionID() string {
	return c.MainUnificRootID + c.ConnectedUnificRootID
}

// ConnectionDescription is one per-language free text of a connection
// (general description or charge additional info). The owner composite
// key (OwnerReferenceID, OwnerReferenceID2) stamps the row with the
// connection pair it belongs to so it can be round-tripped with an
// upsert discriminated by owner key + type + language.
type ConnectionDescription struct {
	OwnerReferenceID  string `json:"-" gorm:"type:char(36);primaryKey"`
	OwnerReferenceID2 string `json:"-" gorm:"type:char(36);primaryKey"`
	TypeID            string `json:"typeId" gorm:"type:char(36);primaryKey"`
	LocalizationID    string `json:"localizationId" gorm:"type:char(36);primaryKey"`
	Description       string `json:"description" gorm:"type:text;not null"`
}

// TableName returns the database table name for ConnectionDescription.
func (ConnectionDescription) TableName() string { return "connection_descriptions" }

// ConnectionDigitalAuthorization links a connection to one external
// digital-authorization id.
type ConnectionDigitalAuthorization struct {
	OwnerReferenceID  string `json:"-" gorm:"type:char(36);primaryKey"`
	OwnerReferenceID2 string `json:"-" gorm:"type:char(36);primaryKey"`
	AuthorizationID   string `json:"authorizationId" gorm:"type:char(36);primaryKey"`
}

// TableName returns the database table name for ConnectionDigitalAuthorization.
func (ConnectionDigitalAuthorization) TableName() string { return "connection_digital_authorizations" }
