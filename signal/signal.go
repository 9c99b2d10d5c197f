// Package signal defines the normalized data model produced by the
// extraction pipeline: commercial signals (promotions, financing, CTAs,
// hero banners) and catalog records (products, variants).
//
// All signal types are value types: created once by an extractor pass and
// never mutated after being handed to persistence.
package signal

// Kind is the unified taxonomy of commercial signals.
type Kind string

// Signal kinds.
const (
	KindPromo          Kind = "PROMO"
	KindFinancing      Kind = "FINANCING"
	KindShipping       Kind = "SHIPPING"
	KindUrgency        Kind = "URGENCY"
	KindCTA            Kind = "CTA"
	KindBrandHighlight Kind = "BRAND_HIGHLIGHT"
)

// DiscountType classifies a detected promotion.
type DiscountType string

// Discount classifications.
const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
	DiscountCombo      DiscountType = "COMBO"
	Discount2x1        DiscountType = "2X1"
)

// Promo is a promotion detected on a page or email.
type Promo struct {
	RawText       string       `json:"raw_text"`
	DiscountType  DiscountType `json:"discount_type,omitempty"`
	DiscountValue float64      `json:"discount_value,omitempty"`
	Brand         string       `json:"brand,omitempty"`
	Category      string       `json:"category,omitempty"`
	Confidence    float64      `json:"confidence"` // always in [0,1]
}

// Financing is a financing offer detected on a page or email.
type Financing struct {
	RawText      string  `json:"raw_text"`
	Installments int     `json:"installments,omitempty"`
	Bank         string  `json:"bank,omitempty"`
	CardBrand    string  `json:"card_brand,omitempty"`
	InterestFree bool    `json:"interest_free"`
	Confidence   float64 `json:"confidence"`
}

// HeroBanner is the main hero/banner section of a page.
type HeroBanner struct {
	ImageURL      string `json:"image_url,omitempty"`
	AltText       string `json:"alt_text,omitempty"`
	Headline      string `json:"headline,omitempty"`
	LinkURL       string `json:"link_url,omitempty"`
	SemanticFocus string `json:"semantic_focus,omitempty"`
}

// CallToAction is a prominent button or link detected on a page.
type CallToAction struct {
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
	Position string `json:"position,omitempty"` // hero, sidebar, footer, popup
}
