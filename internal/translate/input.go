package translate

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/language"

	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// ErrUnknownChargeType is returned when a write model names a charge
// type code missing from the type cache.
var ErrUnknownChargeType = fmt.Errorf("unknown charge type")

// ErrUnknownLanguage is returned when a localized text is keyed by a
// language code that is not a well-formed BCP 47 tag or is missing from
// the language cache.
var ErrUnknownLanguage = fmt.Errorf("unknown language")

// ToConnectionRow translates one write model into its storage row plus
// description and authorization child rows. This is the input direction
// only; projecting rows back to a read model is ToConnectionView's job.
//
// Each child row is stamped with the owning composite key
// (OwnerReferenceID, OwnerReferenceID2) = (mainRootID, connected root
// id) so the store can upsert it discriminated by "does a row with this
// owner key + type + language already exist".
func ToConnectionRow(tc *cache.TypeCache, lc *cache.LanguageCache, mainRootID string, in ConnectionWriteModel, now time.Time, editor string) (*domain.ServiceChannelConnection, error) {
	row := &domain.ServiceChannelConnection{
		MainUnificRootID:      mainRootID,
		ConnectedUnificRootID: in.ConnectedEntityID,
		OrderNumber:           in.OrderNumber,
		Created:               now,
		Modified:              now,
		ModifiedBy:            editor,
	}

	if in.ChargeType != "" {
		id, ok := tc.ChargeTypeID(in.ChargeType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChargeType, in.ChargeType)
		}
		row.ChargeTypeID = &id
	}

	descRows, err := descriptionRows(tc, lc, row, domain.DescriptionTypeDescription, in.Description)
	if err != nil {
		return nil, err
	}
	infoRows, err := descriptionRows(tc, lc, row, domain.DescriptionTypeChargeAdditionalInfo, in.AdditionalInformation)
	if err != nil {
		return nil, err
	}
	row.Descriptions = append(descRows, infoRows...)

	seen := make(map[string]struct{}, len(in.DigitalAuthorizations))
	for _, authID := range in.DigitalAuthorizations {
		if _, dup := seen[authID]; dup {
			continue
		}
		seen[authID] = struct{}{}
		row.DigitalAuthorizations = append(row.DigitalAuthorizations, domain.ConnectionDigitalAuthorization{
			OwnerReferenceID:  row.MainUnificRootID,
			OwnerReferenceID2: row.ConnectedUnificRootID,
			AuthorizationID:   authID,
		})
	}

	return row, nil
}

// descriptionRows builds the child rows for one description type from a
// language-keyed text map. Blank texts are dropped; language codes are
// validated against BCP 47 syntax and the language cache. Iteration is
// sorted so row order is deterministic.
func descriptionRows(tc *cache.TypeCache, lc *cache.LanguageCache, owner *domain.ServiceChannelConnection, typeCode string, texts map[string]string) ([]domain.ConnectionDescription, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	typeID, ok := tc.DescriptionTypeID(typeCode)
	if !ok {
		return nil, fmt.Errorf("description type %q missing from type cache", typeCode)
	}

	codes := make([]string, 0, len(texts))
	for code := range texts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []domain.ConnectionDescription
	for _, code := range codes {
		text := texts[code]
		if text == "" {
			continue
		}
		if _, err := language.Parse(code); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
		}
		langID, ok := lc.ID(code)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
		}
		out = append(out, domain.ConnectionDescription{
			OwnerReferenceID:  owner.MainUnificRootID,
			OwnerReferenceID2: owner.ConnectedUnificRootID,
			TypeID:            typeID,
			LocalizationID:    langID,
			Description:       text,
		})
	}
	return out, nil
}
