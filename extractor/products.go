package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/centinela-io/centinela/signal"
)

// breadcrumbSelectors are tried in priority order when building the
// category tree.
var breadcrumbSelectors = []string{
	"nav[aria-label='breadcrumb']",
	".breadcrumb", ".breadcrumbs", "[class*='breadcrumb']",
	"ul.breadcrumb", "ol.breadcrumb",
	"[itemtype*='BreadcrumbList']",
}

// breadcrumbNoise lists tokens dropped from category trees.
var breadcrumbNoise = map[string]struct{}{
	"home":   {},
	"inicio": {},
}

// ExtractProducts runs the generic product pipeline: JSON-LD first,
// OpenGraph second. The returned slice is empty, never nil.
func (g *Generic) ExtractProducts() []signal.Product {
	products := []signal.Product{}
	if g.doc == nil {
		return products
	}

	if extracted := g.productsFromJSONLD(); len(extracted) > 0 {
		products = extracted
	} else if p, ok := g.productFromOpenGraph().Get(); ok {
		products = append(products, p)
	}

	// Pages rarely carry the category inside the product markup; the
	// breadcrumb trail is the usual source.
	tree := g.categoryTree()
	for i := range products {
		if len(products[i].CategoryTree) == 0 {
			products[i].CategoryTree = tree
		}
		if products[i].CategoryPath == "" && len(products[i].CategoryTree) > 0 {
			products[i].CategoryPath = strings.Join(products[i].CategoryTree, " > ")
		}
		if products[i].Currency == "" {
			products[i].Currency = signal.DefaultCurrency
		}
		if products[i].URL == "" {
			products[i].URL = g.pageURL
		}
	}

	return products
}

// ExtractProduct returns the first product found by ExtractProducts.
func (g *Generic) ExtractProduct() (signal.Product, bool) {
	products := g.ExtractProducts()
	if len(products) == 0 {
		return signal.Product{}, false
	}
	return products[0], true
}

// productsFromJSONLD scans application/ld+json scripts for schema.org
// Product objects, including @graph arrays. Broken scripts are skipped.
func (g *Generic) productsFromJSONLD() []signal.Product {
	var products []signal.Product

	g.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			g.logger.Debug("skipping malformed JSON-LD block", "url", g.pageURL, "error", err)
			return
		}

		for _, item := range flattenJSONLD(data) {
			if p, ok := parseSchemaProduct(item).Get(); ok {
				products = append(products, p)
			}
		}
	})

	return products
}

// flattenJSONLD yields candidate objects from a JSON-LD document: a bare
// object, a top-level array, or the objects inside an @graph array.
func flattenJSONLD(data any) []map[string]any {
	var items []map[string]any

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			items = append(items, t)
			if graph, ok := t["@graph"].([]any); ok {
				for _, e := range graph {
					walk(e)
				}
			}
		}
	}
	walk(data)

	return items
}

// parseSchemaProduct converts one schema.org object into a Product, or
// Empty when the object is not a Product.
func parseSchemaProduct(item map[string]any) signal.Extracted[signal.Product] {
	if jsonString(item["@type"]) != "Product" {
		return signal.Empty[signal.Product]()
	}

	p := signal.Product{
		SKU:         jsonString(item["sku"]),
		Title:       jsonString(item["name"]),
		Description: jsonString(item["description"]),
		URL:         jsonString(item["url"]),
		Currency:    signal.DefaultCurrency,
		InStock:     true,
	}
	if p.SKU == "" {
		p.SKU = jsonString(item["mpn"])
	}

	switch brand := item["brand"].(type) {
	case map[string]any:
		p.Brand = jsonString(brand["name"])
	case string:
		p.Brand = brand
	}

	if cat := jsonString(item["category"]); cat != "" {
		p.CategoryPath = cat
		p.CategoryTree = splitCategoryPath(cat)
	}

	switch img := item["image"].(type) {
	case []any:
		for _, e := range img {
			if s := jsonString(e); s != "" {
				p.Images = append(p.Images, s)
			}
		}
		if len(p.Images) > 0 {
			p.ImageURL = p.Images[0]
		}
	case string:
		p.ImageURL = img
		p.Images = []string{img}
	}

	offers := item["offers"]
	if list, ok := offers.([]any); ok && len(list) > 0 {
		offers = list[0]
	}
	if offer, ok := offers.(map[string]any); ok {
		if price, ok := jsonFloat(offer["price"]); ok {
			p.ListPrice = price
		} else if low, ok := jsonFloat(offer["lowPrice"]); ok {
			p.ListPrice = low
		}
		if cur := jsonString(offer["priceCurrency"]); cur != "" {
			p.Currency = cur
		}
		if avail := jsonString(offer["availability"]); avail != "" {
			p.InStock = strings.Contains(avail, "InStock")
		}
	}

	if rating, ok := item["aggregateRating"].(map[string]any); ok {
		p.Rating, _ = jsonFloat(rating["ratingValue"])
		if count, ok := jsonFloat(rating["reviewCount"]); ok {
			p.ReviewCount = int(count)
		}
	}

	if p.Title == "" && p.SKU == "" {
		return signal.Empty[signal.Product]()
	}
	return signal.Ok(p)
}

// productFromOpenGraph builds a product from og:/product: meta hints. It
// only fires when the page declares og:type=product or carries a price.
func (g *Generic) productFromOpenGraph() signal.Extracted[signal.Product] {
	meta := func(prop string) string {
		if v, ok := g.doc.Find(`meta[property="` + prop + `"]`).First().Attr("content"); ok {
			return strings.TrimSpace(v)
		}
		v, _ := g.doc.Find(`meta[name="` + prop + `"]`).First().Attr("content")
		return strings.TrimSpace(v)
	}

	title := meta("og:title")
	if title == "" {
		title = strings.TrimSpace(g.doc.Find("title").First().Text())
	}
	if title == "" {
		return signal.Empty[signal.Product]()
	}

	priceRaw := meta("product:price:amount")
	if priceRaw == "" {
		priceRaw = meta("og:price:amount")
	}
	if meta("og:type") != "product" && priceRaw == "" {
		return signal.Empty[signal.Product]()
	}

	currency := meta("product:price:currency")
	if currency == "" {
		currency = meta("og:price:currency")
	}
	if currency == "" {
		currency = signal.DefaultCurrency
	}

	p := signal.Product{
		Title:    title,
		Currency: currency,
		InStock:  true,
	}
	if img := meta("og:image"); img != "" {
		p.ImageURL = img
		p.Images = []string{img}
	}
	if price, ok := CleanPrice(priceRaw); ok {
		p.ListPrice = price
	}

	return signal.Ok(p)
}

// categoryTree walks the breadcrumb selectors in priority order and returns
// the first non-empty trail, root to leaf, noise tokens dropped and
// duplicates removed while preserving order.
func (g *Generic) categoryTree() []string {
	for _, sel := range breadcrumbSelectors {
		container := g.doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}

		var tree []string
		seen := make(map[string]struct{})
		container.Find("a, span, li").Each(func(_ int, el *goquery.Selection) {
			// Skip wrappers whose text is just their children repeated.
			if el.Children().Filter("a, span, li").Length() > 0 {
				return
			}
			text := normalizedText(el)
			if text == "" {
				return
			}
			key := strings.ToLower(text)
			if _, noise := breadcrumbNoise[key]; noise {
				return
			}
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			tree = append(tree, text)
		})

		if len(tree) > 0 {
			return tree
		}
	}
	return nil
}

// splitCategoryPath splits a slash-delimited category path into a tree.
func splitCategoryPath(path string) []string {
	var tree []string
	for _, part := range strings.Split(path, "/") {
		if p := strings.TrimSpace(part); p != "" {
			tree = append(tree, p)
		}
	}
	return tree
}

// jsonString reads a JSON value as a string, tolerating absence.
func jsonString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// jsonFloat reads a JSON value as a float, tolerating string-encoded
// numbers, which retail JSON-LD uses constantly.
func jsonFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		return CleanPrice(t)
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}
