// Package translate maps between the normalized connection storage rows
// and the denormalized per-language view models consumed by callers.
//
// Translators are intentionally one-directional: the write model used to
// persist a connection differs from the read model callers consume, and
// no translator supports both directions on the same shape. The input
// direction (ToConnectionRow) turns a caller's write model into storage
// rows; the output direction (ToConnectionView) projects storage rows
// plus the resolved connected version into the read model.
package translate

import "time"

// ConnectionWriteModel is the caller's per-connection write shape: one
// desired connection of a main entity, in the position it appears in the
// desired list.
type ConnectionWriteModel struct {
	// ConnectedEntityID is the unific root id of the service channel.
	ConnectedEntityID string `json:"connectedEntityId" binding:"required" example:"7b0e3c42-9454-4d40-b4d4-7c3d24f24f7e"`
	// OrderNumber is the explicit 1-based position in the desired list.
	OrderNumber int `json:"orderNumber" example:"1"`
	// ChargeType is a charge-type code (Charged, Free, Other); empty
	// leaves the charge type unset.
	ChargeType string `json:"chargeType,omitempty" example:"Free"`
	// Description carries localized general-description text per
	// language code.
	Description map[string]string `json:"description,omitempty"`
	// AdditionalInformation carries localized charge additional info per
	// language code.
	AdditionalInformation map[string]string `json:"additionalInformation,omitempty"`
	// DigitalAuthorizations is the set of external authorization ids.
	DigitalAuthorizations []string `json:"digitalAuthorizations,omitempty"`
}

// LanguageAvailabilityModel is the read-side projection of one
// per-language publication state.
type LanguageAvailabilityModel struct {
	Language         string     `json:"language" example:"fi"`
	Status           string     `json:"status" example:"Published"`
	ScheduledPublish *time.Time `json:"scheduledPublish,omitempty"`
}

// ConnectionReadModel is the read shape of one connection: the resolved
// connected version's identity and metadata together with the
// connection's own attributes, localized and ordered.
type ConnectionReadModel struct {
	// ConnectionID is the synthetic stable row key: the concatenation of
	// the two unific-root ids. UI-only; no storage meaning.
	ConnectionID string `json:"connectionId"`
	// ID is the resolved connected version's id.
	ID string `json:"id"`
	// UnificRootID is the connected entity's root id.
	UnificRootID string `json:"unificRootId"`
	// ChannelType is the connected channel's type code.
	ChannelType string `json:"channelType,omitempty" example:"EChannel"`
	// OrganizationID is the connected entity's owning organization.
	OrganizationID string    `json:"organizationId,omitempty"`
	Modified       time.Time `json:"modified"`
	ModifiedBy     string    `json:"modifiedBy"`
	OrderNumber    int       `json:"orderNumber"`
	// ChargeType is the connection's charge-type code, empty when unset.
	ChargeType       string `json:"chargeType,omitempty"`
	IsASTIConnection bool   `json:"isASTIConnection"`
	// LanguagesAvailabilities is ordered by the language priority cache,
	// not alphabetically.
	LanguagesAvailabilities []LanguageAvailabilityModel `json:"languagesAvailabilities"`
	// Name maps language code to the resolved version's display name
	// (rows whose name type is "Name").
	Name                  map[string]string `json:"name"`
	Description           map[string]string `json:"description,omitempty"`
	AdditionalInformation map[string]string `json:"additionalInformation,omitempty"`
	DigitalAuthorizations []string          `json:"digitalAuthorizations,omitempty"`
}
