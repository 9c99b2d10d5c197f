package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/signal"
)

func salesforceFor(t *testing.T, html string) *Salesforce {
	t.Helper()
	return newSalesforce(newGenericForTest(t, signal.PlatformSalesforce, html))
}

func TestSalesforce_TileGrid(t *testing.T) {
	html := `<body>
	<div class="product-tile" data-pid="SF-100">
		<div class="tile-body"><a class="link">Remera Lisa</a></div>
		<div class="price">
			<span class="sales"><span class="value" content="8999.00">$ 8.999</span></span>
			<span class="strike-through"><span class="value" content="12999.00">$ 12.999</span></span>
		</div>
		<img class="tile-image" src="/images/sf-100.jpg">
	</div>
	<div class="product-tile" data-pid="SF-101">
		<div class="tile-body"><a class="link">Remera Estampada</a></div>
		<div class="price"><span class="sales"><span class="value">$ 9.499</span></span></div>
	</div>
	</body>`

	products := salesforceFor(t, html).ExtractProducts()

	require.Len(t, products, 2)
	assert.Equal(t, "SF-100", products[0].SKU)
	assert.Equal(t, "Remera Lisa", products[0].Title)
	assert.Equal(t, 8999.00, products[0].SalePrice)
	assert.Equal(t, 12999.00, products[0].ListPrice)
	assert.Equal(t, "/images/sf-100.jpg", products[0].ImageURL)

	assert.Equal(t, "SF-101", products[1].SKU)
	assert.Equal(t, 9499.00, products[1].SalePrice)
}

func TestSalesforce_DetailPageSwatches(t *testing.T) {
	html := `<body><div class="product-detail" data-pid="SF-200">
		<h1 class="product-name">Campera Rompeviento</h1>
		<div class="price"><span class="sales"><span class="value" content="45999.00">$ 45.999</span></span></div>
		<div class="attribute">
			<a class="swatchable" data-attr-value="S">S</a>
			<a class="swatchable disabled" data-attr-value="M">M</a>
			<a class="swatchable" data-attr-value="L">L</a>
		</div>
	</div></body>`

	products := salesforceFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "SF-200", p.SKU)
	assert.Equal(t, "Campera Rompeviento", p.Title)
	assert.Equal(t, 45999.00, p.SalePrice)
	require.Len(t, p.Variants, 3)
	assert.True(t, p.Variants[0].InStock)
	assert.False(t, p.Variants[1].InStock, "disabled swatch marks the size out of stock")
	assert.True(t, p.Variants[2].InStock)
	assert.Equal(t, "M", p.Variants[1].SKU)
}

func TestSalesforce_ContentAttributeWins(t *testing.T) {
	html := `<body><div class="product-detail" data-pid="SF-300">
		<h1 class="product-name">Gorra</h1>
		<div class="price"><span class="sales"><span class="value" content="5999.00">precio web</span></span></div>
	</div></body>`

	products := salesforceFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	assert.Equal(t, 5999.00, products[0].SalePrice)
}

func TestSalesforce_NoContainersFallsBackToGeneric(t *testing.T) {
	html := `<script type="application/ld+json">
	{"@type": "Product", "name": "Desde JSON-LD", "sku": "SF-LD"}
	</script>`

	products := salesforceFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	assert.Equal(t, "Desde JSON-LD", products[0].Title)
}

func TestSalesforce_ExtractAllReplacesProducts(t *testing.T) {
	html := `<body>
	<p>2 cuotas sin interés con Visa</p>
	<div class="product-detail" data-pid="SF-400">
		<h1 class="product-name">Mochila</h1>
		<div class="price"><span class="sales"><span class="value" content="19999.00">$ 19.999</span></span></div>
	</div></body>`

	res := salesforceFor(t, html).ExtractAll()

	assert.Equal(t, signal.PlatformSalesforce, res.Platform)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "SF-400", res.Products[0].SKU)
	require.NotEmpty(t, res.Financing)
}
