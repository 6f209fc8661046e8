package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemType distinguishes material price lists from labor-function price lists.
type ItemType string

const (
	ItemMaterial ItemType = "MATERIAL"
	ItemLabor    ItemType = "LABOR"
)

// ParseItemType accepts the canonical names case-insensitively.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(strings.ToUpper(strings.TrimSpace(s))) {
	case ItemMaterial:
		return ItemMaterial, nil
	case ItemLabor:
		return ItemLabor, nil
	}
	return "", &ValidationError{Field: "item_type", Message: fmt.Sprintf("unknown item type %q (want MATERIAL or LABOR)", s)}
}

// ItemRef identifies a material or a labor function.
type ItemRef struct {
	Type ItemType `json:"type"`
	ID   int      `json:"id"`
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s#%d", r.Type, r.ID)
}

// Pricebook is a scoped, time-bounded price list.
// A nil CompanyID or RegionID means the pricebook is not restricted on that axis.
type Pricebook struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Type      ItemType   `json:"type"`
	CompanyID *int       `json:"company_id,omitempty"`
	RegionID  *int       `json:"region_id,omitempty"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	Priority  int        `json:"priority"` // lower wins among equal-specificity scopes
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// PriceListEntry is one priced item inside a pricebook. Its own window may narrow
// the pricebook's window. A nil ManufacturerID is a wildcard entry.
type PriceListEntry struct {
	ID             int             `json:"id"`
	PricebookID    int             `json:"pricebook_id"`
	Item           ItemRef         `json:"item"`
	ManufacturerID *int            `json:"manufacturer_id,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	ValidFrom      *time.Time      `json:"valid_from,omitempty"`
	ValidTo        *time.Time      `json:"valid_to,omitempty"`
	Source         string          `json:"source"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PriceCandidate is an entry joined with its parent pricebook, as returned by the catalog.
type PriceCandidate struct {
	Entry     PriceListEntry `json:"entry"`
	Pricebook Pricebook      `json:"pricebook"`
}

// ResolutionContext is built per lookup and never persisted.
type ResolutionContext struct {
	CompanyID      *int      `json:"company_id,omitempty"`
	RegionID       *int      `json:"region_id,omitempty"`
	ManufacturerID *int      `json:"manufacturer_id,omitempty"` // materials only
	AsOf           time.Time `json:"as_of"`
}

// EffectivePrice is the outcome of a successful resolution. It is recomputed on demand.
type EffectivePrice struct {
	Item                  ItemRef         `json:"item"`
	Price                 decimal.Decimal `json:"price"`
	Currency              string          `json:"currency"`
	PricebookID           int             `json:"pricebook_id"`
	PricebookName         string          `json:"pricebook_name"`
	EntryID               int             `json:"entry_id"`
	Origin                PriceOrigin     `json:"origin"`
	MatchedManufacturerID *int            `json:"matched_manufacturer_id,omitempty"`
	Source                string          `json:"source,omitempty"`
}

// PriceOrigin is the specificity class of the pricebook that supplied a price.
// The numeric order is the specificity order: a larger value is more specific.
type PriceOrigin int

const (
	OriginGlobal PriceOrigin = iota + 1
	OriginRegion
	OriginCompany
	OriginCompanyRegion
)

// AllOrigins lists the origins from most to least specific.
var AllOrigins = []PriceOrigin{OriginCompanyRegion, OriginCompany, OriginRegion, OriginGlobal}

func (o PriceOrigin) String() string {
	switch o {
	case OriginCompanyRegion:
		return "EMPRESA_REGIAO"
	case OriginCompany:
		return "EMPRESA"
	case OriginRegion:
		return "REGIAO"
	case OriginGlobal:
		return "GLOBAL"
	}
	return fmt.Sprintf("PriceOrigin(%d)", int(o))
}

// MoreSpecificThan reports whether o outranks other.
func (o PriceOrigin) MoreSpecificThan(other PriceOrigin) bool {
	return o > other
}

func (o PriceOrigin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *PriceOrigin) UnmarshalText(b []byte) error {
	for _, v := range AllOrigins {
		if v.String() == string(b) {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown price origin %q", string(b))
}
