package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/centinela-io/centinela/signal"
)

// Salesforce Commerce Cloud (Demandware) storefronts render product-tile
// grids on listing pages and a single product-detail container on detail
// pages. Unlike most platforms, a listing page yields multiple products.
type Salesforce struct {
	generic *Generic
}

func newSalesforce(g *Generic) *Salesforce {
	return &Salesforce{generic: g}
}

// ExtractAll runs the generic pass and replaces its products with the
// tile/detail-derived list when one resolves.
func (e *Salesforce) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()

	if products := e.platformProducts(); len(products) > 0 {
		res.Products = products
		e.generic.absolutizeImages(res.Products)
		backfillInstallments(res.Products, res.Financing)
	}

	return res
}

// ExtractProducts returns tile-grid products on listing pages, the detail
// container's product on detail pages, or the generic products otherwise.
func (e *Salesforce) ExtractProducts() []signal.Product {
	if products := e.platformProducts(); len(products) > 0 {
		return products
	}
	return e.generic.ExtractProducts()
}

// ExtractProduct returns the first extracted product, if any.
func (e *Salesforce) ExtractProduct() (signal.Product, bool) {
	products := e.ExtractProducts()
	if len(products) == 0 {
		return signal.Product{}, false
	}
	return products[0], true
}

func (e *Salesforce) platformProducts() []signal.Product {
	if e.generic.doc == nil {
		return nil
	}

	// Listing page: one product per tile.
	tiles := e.generic.doc.Find(".product-tile, .product[data-pid]")
	if tiles.Length() > 1 {
		var products []signal.Product
		tiles.Each(func(_ int, tile *goquery.Selection) {
			if p, ok := e.productFromContainer(tile).Get(); ok {
				products = append(products, p)
			}
		})
		if len(products) > 0 {
			return products
		}
	}

	// Detail page: a single container.
	detail := e.generic.doc.Find(".product-detail, .product-wrapper, [data-pid]").First()
	if detail.Length() > 0 {
		if p, ok := e.productFromContainer(detail).Get(); ok {
			return []signal.Product{p}
		}
	}

	return nil
}

// productFromContainer reads one tile or detail container.
func (e *Salesforce) productFromContainer(c *goquery.Selection) signal.Extracted[signal.Product] {
	p := signal.Product{
		Currency: signal.DefaultCurrency,
		InStock:  true, // SFCC hides add-to-cart when out of stock
	}

	p.SKU, _ = c.Attr("data-pid")
	if p.SKU == "" {
		p.SKU, _ = c.Find("[data-pid]").First().Attr("data-pid")
	}

	if name := c.Find(".product-name, .pdp-title, .pdp-link a, .tile-body .link").First(); name.Length() > 0 {
		p.Title = normalizedText(name)
	}

	if sales := c.Find(".price .sales .value, .price .sales").First(); sales.Length() > 0 {
		if price, ok := priceFromElement(sales); ok {
			p.SalePrice = price
		}
	}
	if list := c.Find(".price .strike-through .value, .price .list .value").First(); list.Length() > 0 {
		if price, ok := priceFromElement(list); ok {
			p.ListPrice = price
		}
	}
	if p.SalePrice == 0 && p.ListPrice == 0 {
		if v := c.Find(".price .value").First(); v.Length() > 0 {
			if price, ok := priceFromElement(v); ok {
				p.ListPrice = price
			}
		}
	}

	if img := c.Find("img.tile-image, .product-image img, img").First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src != "" {
			p.ImageURL = src
			p.Images = []string{src}
		}
	}

	p.Variants = e.variantsFromSwatches(c)

	if p.SKU == "" && p.Title == "" {
		return signal.Empty[signal.Product]()
	}
	return signal.Ok(p)
}

// variantsFromSwatches reads size/variant swatches; a "disabled" class
// marks the configuration as out of stock.
func (e *Salesforce) variantsFromSwatches(c *goquery.Selection) []signal.Variant {
	var variants []signal.Variant
	c.Find(".size-swatch, .swatch, .attribute .swatchable").Each(func(_ int, sw *goquery.Selection) {
		label := normalizedText(sw)
		if label == "" {
			return
		}
		sku, _ := sw.Attr("data-attr-value")
		variants = append(variants, signal.Variant{
			SKU:     sku,
			Title:   label,
			InStock: !sw.HasClass("disabled"),
		})
	})
	return variants
}

// priceFromElement prefers the machine-readable content attribute over the
// rendered text.
func priceFromElement(el *goquery.Selection) (float64, bool) {
	if content, ok := el.Attr("content"); ok && strings.TrimSpace(content) != "" {
		if price, ok := CleanPrice(content); ok {
			return price, true
		}
	}
	return CleanPrice(normalizedText(el))
}
