// Package domain defines the persistence models for the public-service
// registry: versioned entities, service↔channel connections, and the
// finite code tables (publishing statuses, languages, charge types, …)
// they reference. These types are mapped with GORM and form the core
// data layer of the application.
package domain

// Publishing status codes. Within one unific root every version carries
// exactly one of these; the resolver's fallback order decides which
// version is "the" current one for display and linking.
const (
	StatusDraft        = "Draft"
	StatusPublished    = "Published"
	StatusModified     = "Modified"
	StatusOldPublished = "OldPublished"
	StatusDeleted      = "Deleted"
	StatusRemoved      = "Removed"
)

// Entity kinds stored in EntityVersion.Kind.
const (
	KindService            = "Service"
	KindServiceChannel     = "ServiceChannel"
	KindGeneralDescription = "GeneralDescription"
	KindOrganization       = "Organization"
)

// Description type codes for per-language connection texts.
const (
	DescriptionTypeDescription          = "Description"
	DescriptionTypeChargeAdditionalInfo = "ChargeTypeAdditionalInfo"
)

// Service charge type codes.
const (
	ChargeTypeCharged = "Charged"
	ChargeTypeFree    = "Free"
	ChargeTypeOther   = "Other"
)

// Name type codes for entity display names.
const (
	NameTypeName      = "Name"
	NameTypeAlternate = "AlternateName"
)

// Service channel type codes.
const (
	ChannelTypeEChannel        = "EChannel"
	ChannelTypeWebPage         = "WebPage"
	ChannelTypePrintableForm   = "PrintableForm"
	ChannelTypePhone           = "Phone"
	ChannelTypeServiceLocation = "ServiceLocation"
)

// PublishingStatusType is a row of the publishing-status code table.
// PriorityFallback orders statuses for version resolution: the lower the
// value, the stronger the claim to be "the" current version.
type PublishingStatusType struct {
	ID               string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code             string `json:"code" gorm:"type:varchar(32);not null;uniqueIndex"`
	PriorityFallback int    `json:"priorityFallback" gorm:"not null"`
}

// TableName returns the database table name for PublishingStatusType.
func (PublishingStatusType) TableName() string { return "publishing_status_types" }

// DescriptionType is a row of the description-type code table.
type DescriptionType struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code string `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
}

// TableName returns the database table name for DescriptionType.
func (DescriptionType) TableName() string { return "description_types" }

// ServiceChargeType is a row of the charge-type code table.
type ServiceChargeType struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code string `json:"code" gorm:"type:varchar(32);not null;uniqueIndex"`
}

// TableName returns the database table name for ServiceChargeType.
func (ServiceChargeType) TableName() string { return "service_charge_types" }

// NameType is a row of the name-type code table.
type NameType struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code string `json:"code" gorm:"type:varchar(32);not null;uniqueIndex"`
}

// TableName returns the database table name for NameType.
func (NameType) TableName() string { return "name_types" }

// ChannelType is a row of the service-channel-type code table.
type ChannelType struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code string `json:"code" gorm:"type:varchar(32);not null;uniqueIndex"`
}

// TableName returns the database table name for ChannelType.
func (ChannelType) TableName() string { return "channel_types" }

// Language is a row of the language code table. OrderNumber is the
// display-priority weight used when ordering per-language collections
// (lower weight sorts first); it is not alphabetical.
type Language struct {
	ID          string `json:"id"   gorm:"type:char(36);primaryKey"`
	Code        string `json:"code" gorm:"type:varchar(8);not null;uniqueIndex"`
	OrderNumber int    `json:"orderNumber" gorm:"not null"`
}

// TableName returns the database table name for Language.
func (Language) TableName() string { return "languages" }
