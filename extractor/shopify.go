package extractor

import (
	"encoding/json"
	"regexp"

	"github.com/centinela-io/centinela/signal"
)

// Shopify themes embed a meta object with product and variant data. Variant
// prices are integer minor units (cents).
var shopifyMetaMarkers = []*regexp.Regexp{
	regexp.MustCompile(`var\s+meta\s*=`),
	regexp.MustCompile(`window\.meta\s*=`),
}

type shopifyMeta struct {
	Product *struct {
		ID     json.Number `json:"id"`
		Vendor string      `json:"vendor"`
		Type   string      `json:"type"`
		Variants []struct {
			ID          json.Number `json:"id"`
			Price       json.Number `json:"price"`
			Name        string      `json:"name"`
			PublicTitle string      `json:"public_title"`
			SKU         string      `json:"sku"`
		} `json:"variants"`
	} `json:"product"`
}

// Shopify layers meta-object product data over the generic pass and
// cross-checks JSON-LD as a secondary source.
type Shopify struct {
	generic *Generic
}

func newShopify(g *Generic) *Shopify {
	return &Shopify{generic: g}
}

// ExtractAll runs the generic pass and enriches its products with the
// meta object's variant-level prices.
func (e *Shopify) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()

	meta := e.parseMeta()
	if meta.IsFailed() {
		e.generic.logger.Warn("Shopify meta object present but unparseable",
			"url", e.generic.pageURL, "reason", meta.Reason())
	}
	if m, ok := meta.Get(); ok && m.Product != nil {
		res.Metadata["shopify_product_id"] = m.Product.ID.String()
		res.Products = e.mergeMeta(res.Products, m)
		e.generic.absolutizeImages(res.Products)
		backfillInstallments(res.Products, res.Financing)
	}

	return res
}

// ExtractProducts merges the meta object into the generic JSON-LD /
// OpenGraph products; either source alone is enough.
func (e *Shopify) ExtractProducts() []signal.Product {
	products := e.generic.ExtractProducts()
	if m, ok := e.parseMeta().Get(); ok && m.Product != nil {
		products = e.mergeMeta(products, m)
	}
	return products
}

// ExtractProduct returns the first extracted product, if any.
func (e *Shopify) ExtractProduct() (signal.Product, bool) {
	products := e.ExtractProducts()
	if len(products) == 0 {
		return signal.Product{}, false
	}
	return products[0], true
}

func (e *Shopify) parseMeta() signal.Extracted[shopifyMeta] {
	var blob string
	for _, marker := range shopifyMetaMarkers {
		if blob = extractAssignedJSON(e.generic.html, marker); blob != "" {
			break
		}
	}
	if blob == "" {
		return signal.Empty[shopifyMeta]()
	}

	var meta shopifyMeta
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return signal.Failed[shopifyMeta](err.Error())
	}
	if meta.Product == nil {
		return signal.Empty[shopifyMeta]()
	}
	return signal.Ok(meta)
}

// mergeMeta folds meta-object data into the first generic product, or
// builds a product from the meta alone when the generic pass found none.
func (e *Shopify) mergeMeta(products []signal.Product, meta shopifyMeta) []signal.Product {
	mp := meta.Product

	var variants []signal.Variant
	minPrice := 0.0
	maxPrice := 0.0
	for _, v := range mp.Variants {
		cents, err := v.Price.Int64()
		if err != nil {
			continue
		}
		price := float64(cents) / 100 // minor units

		title := v.PublicTitle
		if title == "" {
			title = v.Name
		}
		variants = append(variants, signal.Variant{
			SKU:       v.SKU,
			Title:     title,
			SalePrice: price,
			InStock:   true,
		})

		if minPrice == 0 || price < minPrice {
			minPrice = price
		}
		if price > maxPrice {
			maxPrice = price
		}
	}

	if len(products) == 0 {
		p := signal.Product{
			SKU:      mp.ID.String(),
			Brand:    mp.Vendor,
			Currency: signal.DefaultCurrency,
			InStock:  len(variants) > 0,
			Variants: variants,
		}
		if mp.Type != "" {
			p.CategoryPath = mp.Type
			p.CategoryTree = []string{mp.Type}
		}
		p.SalePrice = minPrice
		p.ListPrice = maxPrice
		if p.SKU == "" && len(variants) == 0 {
			return products
		}
		return []signal.Product{p}
	}

	p := &products[0]
	if p.SKU == "" {
		p.SKU = mp.ID.String()
	}
	if p.Brand == "" {
		p.Brand = mp.Vendor
	}
	if len(p.Variants) == 0 {
		p.Variants = variants
	}
	if minPrice > 0 {
		p.SalePrice = minPrice
	}
	if maxPrice > 0 && p.ListPrice == 0 {
		p.ListPrice = maxPrice
	}
	if p.SalePrice > 0 && p.ListPrice == 0 {
		p.ListPrice = p.SalePrice
	}

	return products
}
