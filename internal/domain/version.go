package domain

import "time"

// EntityVersion is one concrete revision of a unific root (the stable
// identity of a service, channel, general description, or organization).
// A root accumulates versions over its lifetime; publishing statuses are
// mutually exclusive per version, and the resolver picks the applicable
// one through the status fallback order.
//
// Fields:
//   - ID: version identity, distinct from the root id (char(36)).
//   - UnificRootID: the stable logical identity this version belongs to.
//   - Kind: entity kind discriminator (Service, ServiceChannel, …).
//   - PublishingStatusID: FK into the publishing-status code table.
//   - OrganizationID: owning organization's root id.
//   - ChannelTypeID: FK into channel_types; set on channel versions only.
//   - Created / Modified / ModifiedBy: audit trail.
type EntityVersion struct {
	ID                 string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UnificRootID       string    `json:"unificRootId" gorm:"type:char(36);not null;index:idx_root_versions"`
	Kind               string    `json:"kind"         gorm:"type:varchar(32);not null"`
	PublishingStatusID string    `json:"publishingStatusId" gorm:"type:char(36);not null"`
	OrganizationID     string    `json:"organizationId"     gorm:"type:char(36)"`
	ChannelTypeID      *string   `json:"channelTypeId,omitempty" gorm:"type:char(36)"`
	Created            time.Time `json:"created"`
	Modified           time.Time `json:"modified"`
	ModifiedBy         string    `json:"modifiedBy" gorm:"type:varchar(128)"`

	// LanguageAvailabilities carries the per-language publication state
	// of this version; cascade-deleted with the version.
	LanguageAvailabilities []LanguageAvailability `json:"languagesAvailabilities" gorm:"foreignKey:EntityVersionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Names are the localized display names of this version.
	Names []EntityName `json:"names" gorm:"foreignKey:EntityVersionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for EntityVersion.
func (EntityVersion) TableName() string { return "entity_versions" }

// LanguageAvailability is the per-language publication state of one
// entity version. A version has at most one row per language; the row
// carries its own sub-status and an optional scheduled publish time.
type LanguageAvailability struct {
	EntityVersionID  string     `json:"-"          gorm:"type:char(36);primaryKey"`
	LanguageID       string     `json:"languageId" gorm:"type:char(36);primaryKey"`
	StatusID         string     `json:"statusId"   gorm:"type:char(36);not null"`
	ScheduledPublish *time.Time `json:"scheduledPublish,omitempty"`
}

// TableName returns the database table name for LanguageAvailability.
func (LanguageAvailability) TableName() string { return "language_availabilities" }

// EntityName is one localized name of an entity version, keyed by name
// type (Name, AlternateName) and language.
type EntityName struct {
	EntityVersionID string `json:"-"    gorm:"type:char(36);primaryKey"`
	TypeID          string `json:"typeId" gorm:"type:char(36);primaryKey"`
	LocalizationID  string `json:"localizationId" gorm:"type:char(36);primaryKey"`
	Name            string `json:"name" gorm:"type:varchar(512);not null"`
}

// TableName returns the database table name for EntityName.
func (EntityName) TableName() string { return "entity_names" }
