package extractor

import (
	"github.com/centinela-io/centinela/signal"
)

// The remaining platforms layer selector-based metadata enrichment on top
// of the generic pass and rely on the generic JSON-LD / OpenGraph path for
// product extraction.

// Magento reads the price box and installment block of Magento 2 themes.
type Magento struct {
	generic *Generic
}

func newMagento(g *Generic) *Magento { return &Magento{generic: g} }

// ExtractAll runs the generic pass and attaches Magento UI metadata.
func (e *Magento) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()
	e.generic.enrichMetadata(res, map[string]string{
		"price_ui":        ".price-box .price, .price-box .price-wrapper",
		"special_price":   ".price-box .special-price .price",
		"installments_ui": ".installment-block, [class*='installment']",
	})
	return res
}

// ExtractProducts delegates to the generic path.
func (e *Magento) ExtractProducts() []signal.Product { return e.generic.ExtractProducts() }

// ExtractProduct delegates to the generic path.
func (e *Magento) ExtractProduct() (signal.Product, bool) { return e.generic.ExtractProduct() }

// PrestaShop reads the product price block of PrestaShop themes.
type PrestaShop struct {
	generic *Generic
}

func newPrestaShop(g *Generic) *PrestaShop { return &PrestaShop{generic: g} }

// ExtractAll runs the generic pass and attaches PrestaShop UI metadata.
func (e *PrestaShop) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()
	e.generic.enrichMetadata(res, map[string]string{
		"price_ui":        ".product-prices .current-price, .current-price",
		"regular_price":   ".product-prices .regular-price, .regular-price",
		"installments_ui": ".payment-block, [class*='payment']",
	})
	return res
}

// ExtractProducts delegates to the generic path.
func (e *PrestaShop) ExtractProducts() []signal.Product { return e.generic.ExtractProducts() }

// ExtractProduct delegates to the generic path.
func (e *PrestaShop) ExtractProduct() (signal.Product, bool) { return e.generic.ExtractProduct() }

// TiendaNube reads the price and installment widgets of TiendaNube /
// Nuvemshop storefronts.
type TiendaNube struct {
	generic *Generic
}

func newTiendaNube(g *Generic) *TiendaNube { return &TiendaNube{generic: g} }

// ExtractAll runs the generic pass and attaches TiendaNube UI metadata.
func (e *TiendaNube) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()
	e.generic.enrichMetadata(res, map[string]string{
		"price_ui":        ".price-item, .js-price-display",
		"installments_ui": ".js-installments, [class*='installment']",
	})
	return res
}

// ExtractProducts delegates to the generic path.
func (e *TiendaNube) ExtractProducts() []signal.Product { return e.generic.ExtractProducts() }

// ExtractProduct delegates to the generic path.
func (e *TiendaNube) ExtractProduct() (signal.Product, bool) { return e.generic.ExtractProduct() }

// WooCommerce reads the rendered amount and on-sale badge of WooCommerce
// themes.
type WooCommerce struct {
	generic *Generic
}

func newWooCommerce(g *Generic) *WooCommerce { return &WooCommerce{generic: g} }

// ExtractAll runs the generic pass and attaches WooCommerce UI metadata.
func (e *WooCommerce) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()
	e.generic.enrichMetadata(res, map[string]string{
		"price_ui": ".woocommerce-Price-amount, .price ins .amount",
		"promo_ui": ".onsale, .woo-variation-price",
	})
	return res
}

// ExtractProducts delegates to the generic path.
func (e *WooCommerce) ExtractProducts() []signal.Product { return e.generic.ExtractProducts() }

// ExtractProduct delegates to the generic path.
func (e *WooCommerce) ExtractProduct() (signal.Product, bool) { return e.generic.ExtractProduct() }

// enrichMetadata records the first match of each selector as free-form
// result metadata. Missing selectors leave no entry.
func (g *Generic) enrichMetadata(res *signal.Result, selectors map[string]string) {
	if g.doc == nil {
		return
	}
	for key, sel := range selectors {
		if el := g.doc.Find(sel).First(); el.Length() > 0 {
			if text := normalizedText(el); text != "" {
				res.Metadata[key] = text
			}
		}
	}
}
