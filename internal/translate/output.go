package translate

import (
	"sort"

	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// ToConnectionView projects one stored connection row and the resolved
// version of its connected entity into the read model. This is the
// output direction only.
//
// resolved must be the version picked by the resolver for the connected
// root; callers exclude rows whose connected entity did not resolve
// before projecting, so resolved is never nil here.
func ToConnectionView(tc *cache.TypeCache, lc *cache.LanguageCache, row domain.ServiceChannelConnection, resolved *domain.EntityVersion) ConnectionReadModel {
	out := ConnectionReadModel{
		ConnectionID:            row.ConnectionID(),
		ID:                      resolved.ID,
		UnificRootID:            resolved.UnificRootID,
		OrganizationID:          resolved.OrganizationID,
		Modified:                resolved.Modified,
		ModifiedBy:              resolved.ModifiedBy,
		OrderNumber:             row.OrderNumber,
		IsASTIConnection:        row.IsASTIConnection,
		LanguagesAvailabilities: availabilityModels(tc, lc, resolved.LanguageAvailabilities),
		Name:                    nameMap(tc, lc, resolved.Names),
	}
	if resolved.ChannelTypeID != nil {
		out.ChannelType = tc.ChannelTypeCode(*resolved.ChannelTypeID)
	}
	if row.ChargeTypeID != nil {
		out.ChargeType = tc.ChargeTypeCode(*row.ChargeTypeID)
	}

	for _, d := range row.Descriptions {
		switch tc.DescriptionTypeCode(d.TypeID) {
		case domain.DescriptionTypeDescription:
			if out.Description == nil {
				out.Description = make(map[string]string)
			}
			out.Description[lc.Code(d.LocalizationID)] = d.Description
		case domain.DescriptionTypeChargeAdditionalInfo:
			if out.AdditionalInformation == nil {
				out.AdditionalInformation = make(map[string]string)
			}
			out.AdditionalInformation[lc.Code(d.LocalizationID)] = d.Description
		}
	}

	if len(row.DigitalAuthorizations) > 0 {
		out.DigitalAuthorizations = make([]string, 0, len(row.DigitalAuthorizations))
		for _, a := range row.DigitalAuthorizations {
			out.DigitalAuthorizations = append(out.DigitalAuthorizations, a.AuthorizationID)
		}
		sort.Strings(out.DigitalAuthorizations)
	}

	return out
}

// availabilityModels projects language availabilities ordered by the
// language priority cache, not alphabetically.
func availabilityModels(tc *cache.TypeCache, lc *cache.LanguageCache, rows []domain.LanguageAvailability) []LanguageAvailabilityModel {
	out := make([]LanguageAvailabilityModel, 0, len(rows))
	for _, la := range rows {
		out = append(out, LanguageAvailabilityModel{
			Language:         lc.Code(la.LanguageID),
			Status:           tc.PublishingStatusCode(la.StatusID),
			ScheduledPublish: la.ScheduledPublish,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lc.OrderOf(out[i].Language) < lc.OrderOf(out[j].Language)
	})
	return out
}

// nameMap picks display names: the rows whose type matches the "Name"
// name type, keyed by language code.
func nameMap(tc *cache.TypeCache, lc *cache.LanguageCache, rows []domain.EntityName) map[string]string {
	nameTypeID, ok := tc.NameTypeID(domain.NameTypeName)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(rows))
	for _, n := range rows {
		if n.TypeID != nameTypeID {
			continue
		}
		out[lc.Code(n.LocalizationID)] = n.Name
	}
	return out
}
