// Package cache provides the process-scoped, read-only lookup tables for
// the registry's code tables: publishing statuses, description types,
// charge types, name types, channel types, and languages.
//
// A cache is loaded once per work-unit scope and treated as an immutable
// value object for the remainder of that unit; it is never mutated after
// Load returns, so it may be shared across goroutines without locking.
// Higher components consult the cache instead of querying the underlying
// tables.
package cache

import (
	"context"

	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// codeMap is a bidirectional code↔id index over one code table.
type codeMap struct {
	byCode map[string]string
	byID   map[string]string
}

func newCodeMap(size int) codeMap {
	return codeMap{
		byCode: make(map[string]string, size),
		byID:   make(map[string]string, size),
	}
}

func (m codeMap) add(id, code string) {
	m.byCode[code] = id
	m.byID[id] = code
}

// id returns the identifier for code; ok is false for unknown codes.
func (m codeMap) id(code string) (string, bool) {
	v, ok := m.byCode[code]
	return v, ok
}

// code returns the code for id, or "" when the id is unknown.
func (m codeMap) code(id string) string { return m.byID[id] }

// TypeCache maps type codes (publishing status, description type, charge
// type, name type, channel type) to stable identifiers and back.
type TypeCache struct {
	statuses     codeMap
	descriptions codeMap
	charges      codeMap
	names        codeMap
	channels     codeMap
}

// LoadTypeCache reads all type tables once and builds an immutable cache.
func LoadTypeCache(ctx context.Context, db *gorm.DB) (*TypeCache, error) {
	tc := &TypeCache{
		statuses:     newCodeMap(8),
		descriptions: newCodeMap(4),
		charges:      newCodeMap(4),
		names:        newCodeMap(4),
		channels:     newCodeMap(8),
	}

	var statuses []domain.PublishingStatusType
	if err := db.WithContext(ctx).Find(&statuses).Error; err != nil {
		return nil, err
	}
	for _, s := range statuses {
		tc.statuses.add(s.ID, s.Code)
	}

	var descs []domain.DescriptionType
	if err := db.WithContext(ctx).Find(&descs).Error; err != nil {
		return nil, err
	}
	for _, d := range descs {
		tc.descriptions.add(d.ID, d.Code)
	}

	var charges []domain.ServiceChargeType
	if err := db.WithContext(ctx).Find(&charges).Error; err != nil {
		return nil, err
	}
	for _, c := range charges {
		tc.charges.add(c.ID, c.Code)
	}

	var names []domain.NameType
	if err := db.WithContext(ctx).Find(&names).Error; err != nil {
		return nil, err
	}
	for _, n := range names {
		tc.names.add(n.ID, n.Code)
	}

	var channels []domain.ChannelType
	if err := db.WithContext(ctx).Find(&channels).Error; err != nil {
		return nil, err
	}
	for _, c := range channels {
		tc.channels.add(c.ID, c.Code)
	}

	return tc, nil
}

// PublishingStatusID returns the id for a publishing-status code.
func (t *TypeCache) PublishingStatusID(code string) (string, bool) { return t.statuses.id(code) }

// PublishingStatusCode returns the code for a publishing-status id.
func (t *TypeCache) PublishingStatusCode(id string) string { return t.statuses.code(id) }

// DescriptionTypeID returns the id for a description-type code.
func (t *TypeCache) DescriptionTypeID(code string) (string, bool) { return t.descriptions.id(code) }

// DescriptionTypeCode returns the code for a description-type id.
func (t *TypeCache) DescriptionTypeCode(id string) string { return t.descriptions.code(id) }

// ChargeTypeID returns the id for a charge-type code.
func (t *TypeCache) ChargeTypeID(code string) (string, bool) { return t.charges.id(code) }

// ChargeTypeCode returns the code for a charge-type id.
func (t *TypeCache) ChargeTypeCode(id string) string { return t.charges.code(id) }

// NameTypeID returns the id for a name-type code.
func (t *TypeCache) NameTypeID(code string) (string, bool) { return t.names.id(code) }

// ChannelTypeCode returns the code for a channel-type id.
func (t *TypeCache) ChannelTypeCode(id string) string { return t.channels.code(id) }

// ChannelTypeID returns the id for a channel-type code.
func (t *TypeCache) ChannelTypeID(code string) (string, bool) { return t.channels.id(code) }

// LanguageCache maps language codes to stable identifiers and carries the
// per-language ordering weight used to sort localized collections.
type LanguageCache struct {
	langs codeMap
	order map[string]int // code -> OrderNumber
}

// unknownLanguageOrder sorts languages missing from the cache last.
const unknownLanguageOrder = 1 << 30

// LoadLanguageCache reads the language table once and builds an immutable
// cache.
func LoadLanguageCache(ctx context.Context, db *gorm.DB) (*LanguageCache, error) {
	var rows []domain.Language
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	lc := &LanguageCache{
		langs: newCodeMap(len(rows)),
		order: make(map[string]int, len(rows)),
	}
	for _, l := range rows {
		lc.langs.add(l.ID, l.Code)
		lc.order[l.Code] = l.OrderNumber
	}
	return lc, nil
}

// ID returns the identifier for a language code.
func (l *LanguageCache) ID(code string) (string, bool) { return l.langs.id(code) }

// Code returns the code for a language id.
func (l *LanguageCache) Code(id string) string { return l.langs.code(id) }

// OrderOf returns the ordering weight for a language code. Codes missing
// from the cache sort last.
func (l *LanguageCache) OrderOf(code string) int {
	if w, ok := l.order[code]; ok {
		return w
	}
	return unknownLanguageOrder
}
