package signal

// Product is the normalized catalog unit produced by product extraction.
// Prices are in the page's currency (ARS unless stated otherwise).
//
// SalePrice may exceed ListPrice on broken pages; extractors record what
// they see and leave filtering to downstream consumers.
type Product struct {
	SKU          string            `json:"sku,omitempty"`
	Title        string            `json:"title,omitempty"`
	URL          string            `json:"url,omitempty"`
	Brand        string            `json:"brand,omitempty"`
	CategoryPath string            `json:"category_path,omitempty"`
	CategoryTree []string          `json:"category_tree,omitempty"` // root to leaf
	Description  string            `json:"description,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Images       []string          `json:"images,omitempty"`
	ListPrice    float64           `json:"list_price,omitempty"`
	SalePrice    float64           `json:"sale_price,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	InStock      bool              `json:"in_stock"`
	Variants     []Variant         `json:"variants,omitempty"`
	Installments string            `json:"installments,omitempty"`
	Rating       float64           `json:"rating,omitempty"`
	ReviewCount  int               `json:"review_count,omitempty"`
	Badges       []string          `json:"badges,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// DefaultCurrency is assumed when a page states no currency.
const DefaultCurrency = "ARS"

// Variant is a SKU-level configuration of a product (size, color) with its
// own price and stock. It has no lifecycle independent of its parent.
type Variant struct {
	SKU       string            `json:"sku,omitempty"`
	Title     string            `json:"title,omitempty"`
	InStock   bool              `json:"in_stock"`
	ListPrice float64           `json:"list_price,omitempty"`
	SalePrice float64           `json:"sale_price,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
