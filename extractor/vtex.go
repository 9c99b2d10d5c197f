package extractor

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/centinela-io/centinela/signal"
)

// VTEX pre-renders page data into a normalized-cache state blob: a flat map
// of "TypeName:id" keys whose objects cross-reference each other by id.
var vtexStateMarkers = []*regexp.Regexp{
	regexp.MustCompile(`window\.__STATE__\s*=`),
	regexp.MustCompile(`\bvtexData\s*=`),
}

// Last-resort price scan over inline scripts when the state graph cannot be
// resolved.
var (
	vtexRawPriceRe     = regexp.MustCompile(`"Price"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)
	vtexRawListPriceRe = regexp.MustCompile(`"ListPrice"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)
)

// VTEX extracts from the window.__STATE__ normalized cache, reconstructing
// Product - SKU - CommertialOffer - Seller relationships by pointer lookup,
// and falls back to the generic paths when the blob is absent or broken.
type VTEX struct {
	generic *Generic
}

func newVTEX(g *Generic) *VTEX {
	return &VTEX{generic: g}
}

// ExtractAll runs the generic pass and replaces its product list with the
// higher-confidence state-derived one when the state graph resolves.
func (e *VTEX) ExtractAll() *signal.Result {
	res := e.generic.ExtractAll()

	state := e.parseState()
	if state.IsFailed() {
		e.generic.logger.Warn("VTEX state blob present but unparseable",
			"url", e.generic.pageURL, "reason", state.Reason())
	}
	if st, ok := state.Get(); ok {
		res.Metadata["vtex_state_keys"] = strconv.Itoa(len(st))
		if products := e.productsFromState(st); len(products) > 0 {
			res.Products = products
			e.generic.absolutizeImages(res.Products)
			backfillInstallments(res.Products, res.Financing)
		}
	}

	return res
}

// ExtractProducts prefers the state graph and falls back to the generic
// JSON-LD / OpenGraph paths.
func (e *VTEX) ExtractProducts() []signal.Product {
	if st, ok := e.parseState().Get(); ok {
		if products := e.productsFromState(st); len(products) > 0 {
			return products
		}
	}
	return e.generic.ExtractProducts()
}

// ExtractProduct returns the first extracted product, if any.
func (e *VTEX) ExtractProduct() (signal.Product, bool) {
	products := e.ExtractProducts()
	if len(products) == 0 {
		return signal.Product{}, false
	}
	return products[0], true
}

// parseState locates and decodes the state blob. Absence is Empty; a blob
// that fails to decode is Failed. Both degrade to generic extraction.
func (e *VTEX) parseState() signal.Extracted[map[string]any] {
	var blob string
	for _, marker := range vtexStateMarkers {
		if blob = extractAssignedJSON(e.generic.html, marker); blob != "" {
			break
		}
	}
	if blob == "" {
		return signal.Empty[map[string]any]()
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return signal.Failed[map[string]any](err.Error())
	}
	return signal.Ok(state)
}

// productsFromState walks every Product entry in the state map in a stable
// order and resolves its variant and offer graph.
func (e *VTEX) productsFromState(state map[string]any) []signal.Product {
	var keys []string
	for key, v := range state {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if strings.HasPrefix(key, "Product:") || jsonString(obj["__typename"]) == "Product" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var products []signal.Product
	for _, key := range keys {
		obj := state[key].(map[string]any)
		if p, ok := e.productFromState(obj, state).Get(); ok {
			products = append(products, p)
		}
	}
	return products
}

func (e *VTEX) productFromState(obj map[string]any, state map[string]any) signal.Extracted[signal.Product] {
	p := signal.Product{
		SKU:         jsonString(obj["productId"]),
		Title:       jsonString(obj["productName"]),
		Brand:       jsonString(obj["brand"]),
		Description: jsonString(obj["description"]),
		Currency:    signal.DefaultCurrency,
	}
	if p.Title == "" {
		p.Title = jsonString(obj["name"])
	}
	if link := jsonString(obj["linkText"]); link != "" {
		p.URL = "/" + link + "/p"
	}

	// Category tree comes from a slash-delimited path.
	if cats, ok := obj["categories"].([]any); ok && len(cats) > 0 {
		p.CategoryPath = jsonString(cats[0])
		p.CategoryTree = splitCategoryPath(p.CategoryPath)
	} else if cat := jsonString(obj["categoryPath"]); cat != "" {
		p.CategoryPath = cat
		p.CategoryTree = splitCategoryPath(cat)
	}

	if items, ok := obj["items"].([]any); ok {
		for _, ref := range items {
			skuObj, skuID := resolveRef(ref, state)
			if skuObj == nil {
				continue
			}
			if v, ok := e.variantFromSKU(skuObj, skuID, state).Get(); ok {
				p.Variants = append(p.Variants, v)
			}
		}
	}

	// Price range: min sale / max list across resolved variants.
	resolved := false
	for _, v := range p.Variants {
		if v.SalePrice > 0 && (p.SalePrice == 0 || v.SalePrice < p.SalePrice) {
			p.SalePrice = v.SalePrice
			resolved = true
		}
		if v.ListPrice > p.ListPrice {
			p.ListPrice = v.ListPrice
			resolved = true
		}
		if v.InStock {
			p.InStock = true
		}
	}

	if !resolved {
		resolved = e.applyPriceRange(&p, obj, state)
	}
	if !resolved {
		e.applyRawPriceScan(&p)
	}

	if img, ok := firstImageFromState(obj, state); ok {
		p.ImageURL = img
		p.Images = []string{img}
	}

	if p.Title == "" && p.SKU == "" && len(p.Variants) == 0 {
		return signal.Empty[signal.Product]()
	}
	return signal.Ok(p)
}

// variantFromSKU resolves one SKU object and its best seller offer.
func (e *VTEX) variantFromSKU(sku map[string]any, skuID string, state map[string]any) signal.Extracted[signal.Variant] {
	v := signal.Variant{
		SKU:   jsonString(sku["itemId"]),
		Title: jsonString(sku["name"]),
	}
	if v.SKU == "" {
		v.SKU = idSuffix(skuID)
	}

	sellers, _ := sku["sellers"].([]any)
	for _, ref := range sellers {
		seller, _ := resolveRef(ref, state)
		if seller == nil {
			continue
		}
		offer, _ := resolveRef(seller["commertialOffer"], state)
		if offer == nil {
			continue
		}

		if price, ok := jsonFloat(offer["Price"]); ok && price > 0 {
			if v.SalePrice == 0 || price < v.SalePrice {
				v.SalePrice = price
			}
		}
		if list, ok := jsonFloat(offer["ListPrice"]); ok && list > v.ListPrice {
			v.ListPrice = list
		}
		if qty, ok := jsonFloat(offer["AvailableQuantity"]); ok && qty > 0 {
			v.InStock = true
		}
	}

	if v.SKU == "" && v.SalePrice == 0 && v.ListPrice == 0 {
		return signal.Empty[signal.Variant]()
	}
	return signal.Ok(v)
}

// applyPriceRange reads the priceRange pointer some catalogs carry on the
// product object itself.
func (e *VTEX) applyPriceRange(p *signal.Product, obj map[string]any, state map[string]any) bool {
	priceRange, _ := resolveRef(obj["priceRange"], state)
	if priceRange == nil {
		return false
	}

	applied := false
	if selling, _ := resolveRef(priceRange["sellingPrice"], state); selling != nil {
		if low, ok := jsonFloat(selling["lowPrice"]); ok && low > 0 {
			p.SalePrice = low
			applied = true
		}
	}
	if list, _ := resolveRef(priceRange["listPrice"], state); list != nil {
		if high, ok := jsonFloat(list["highPrice"]); ok && high > 0 {
			p.ListPrice = high
			applied = true
		}
	}
	return applied
}

// applyRawPriceScan is the last resort: any "Price"/"ListPrice" key pair
// anywhere in the page's inline scripts.
func (e *VTEX) applyRawPriceScan(p *signal.Product) {
	if m := vtexRawPriceRe.FindStringSubmatch(e.generic.html); m != nil {
		if price, ok := CleanPrice(m[1]); ok {
			p.SalePrice = price
		}
	}
	if m := vtexRawListPriceRe.FindStringSubmatch(e.generic.html); m != nil {
		if list, ok := CleanPrice(m[1]); ok {
			p.ListPrice = list
		}
	}
}

// resolveRef resolves a VTEX state pointer: either a plain id string or an
// inline object that may carry an "id" to follow. Returns the resolved
// object (nil when unresolvable) and the id it was reached through.
func resolveRef(ref any, state map[string]any) (map[string]any, string) {
	switch t := ref.(type) {
	case string:
		obj, _ := state[t].(map[string]any)
		return obj, t
	case map[string]any:
		if id := jsonString(t["id"]); id != "" {
			if obj, ok := state[id].(map[string]any); ok {
				return obj, id
			}
			return t, id
		}
		return t, ""
	}
	return nil, ""
}

// firstImageFromState follows the product's first image pointer.
func firstImageFromState(obj map[string]any, state map[string]any) (string, bool) {
	items, _ := obj["items"].([]any)
	for _, ref := range items {
		sku, _ := resolveRef(ref, state)
		if sku == nil {
			continue
		}
		images, _ := sku["images"].([]any)
		for _, imgRef := range images {
			img, _ := resolveRef(imgRef, state)
			if img == nil {
				continue
			}
			if u := jsonString(img["imageUrl"]); u != "" {
				return u, true
			}
		}
	}
	return "", false
}

// idSuffix extracts the id part from a "TypeName:id" state key.
func idSuffix(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}
