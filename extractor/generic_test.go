package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/signal"
)

func genericFor(t *testing.T, html string) *Generic {
	t.Helper()
	return NewGeneric(html, nil, "https://tienda.example.com.ar/p/zapas", nil)
}

func TestGeneric_ExtractAll_Promos(t *testing.T) {
	html := `<html><body><main>
		<div>30% OFF en Running</div>
		<div>$ 5.000 de descuento en tu primera compra</div>
		<div>2x1 en remeras</div>
		<div>Combo mate y termo</div>
		<div>Texto sin nada interesante aca</div>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.Promos, 4)
	assert.Equal(t, signal.DiscountPercentage, res.Promos[0].DiscountType)
	assert.Equal(t, 30.0, res.Promos[0].DiscountValue)
	assert.Equal(t, signal.DiscountFixed, res.Promos[1].DiscountType)
	assert.Equal(t, 5000.0, res.Promos[1].DiscountValue)
	assert.Equal(t, signal.Discount2x1, res.Promos[2].DiscountType)
	assert.Equal(t, signal.DiscountCombo, res.Promos[3].DiscountType)

	for _, p := range res.Promos {
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestGeneric_ComboYieldsToPercentage(t *testing.T) {
	// A chunk with both a percentage and a combo keyword records only the
	// percentage signal.
	html := `<html><body><main>
		<div>Combo running con 25% OFF</div>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.Promos, 1)
	assert.Equal(t, signal.DiscountPercentage, res.Promos[0].DiscountType)
}

func TestGeneric_PromoCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><main>")
	for i := 0; i < 35; i++ {
		fmt.Fprintf(&b, "<div>Promo unica numero %d con %d%% OFF</div>", i, i+10)
	}
	b.WriteString("</main></body></html>")

	res := genericFor(t, b.String()).ExtractAll()

	require.Len(t, res.Promos, maxPromoSignals)
	// Earliest discovered first.
	assert.Contains(t, res.Promos[0].RawText, "numero 0")
	assert.Equal(t, 10.0, res.Promos[0].DiscountValue)
}

func TestGeneric_PromoDedupe(t *testing.T) {
	html := `<html><body><main>
		<div>50% OFF en todo</div>
		<div>50% OFF en todo</div>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()
	assert.Len(t, res.Promos, 1)
}

func TestGeneric_Financing(t *testing.T) {
	html := `<html><body><main>
		<div>12 cuotas sin interés con Visa</div>
		<div>6 pagos con interés en Galicia</div>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.Financing, 2)
	assert.Equal(t, 12, res.Financing[0].Installments)
	assert.True(t, res.Financing[0].InterestFree)
	assert.Equal(t, "Visa", res.Financing[0].Bank)
	assert.Equal(t, 6, res.Financing[1].Installments)
	assert.False(t, res.Financing[1].InterestFree)
	assert.Equal(t, "Galicia", res.Financing[1].Bank)
}

func TestGeneric_CTAs(t *testing.T) {
	html := `<html><body><main>
		<a href="/ofertas">Ver oferta</a>
		<a href="/carrito">Comprar ahora</a>
		<a href="/otra">Ver oferta</a>
		<button>Agregar al carrito</button>
		<a href="/nada">Nuestra historia</a>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.CTAs, 3) // "Ver oferta" deduped, non-CTA dropped
	assert.Equal(t, "Ver oferta", res.CTAs[0].Text)
	assert.Equal(t, "/ofertas", res.CTAs[0].URL)
	assert.Equal(t, "Agregar al carrito", res.CTAs[2].Text)
	assert.Empty(t, res.CTAs[2].URL) // buttons carry no href
}

func TestGeneric_Hero(t *testing.T) {
	t.Run("image and headline", func(t *testing.T) {
		html := `<html><body>
			<div class="hero">
				<img src="/banners/sale.jpg" alt="Hot Sale">
				<h2>Hot Sale hasta 50% OFF</h2>
				<a href="/hot-sale">Ver todo</a>
			</div>
		</body></html>`

		res := genericFor(t, html).ExtractAll()

		require.NotNil(t, res.HeroBanner)
		assert.Equal(t, "/banners/sale.jpg", res.HeroBanner.ImageURL)
		assert.Equal(t, "Hot Sale", res.HeroBanner.AltText)
		assert.Equal(t, "Hot Sale hasta 50% OFF", res.HeroBanner.Headline)
		assert.Equal(t, "/hot-sale", res.HeroBanner.LinkURL)
	})

	t.Run("lazy-load image fallback", func(t *testing.T) {
		html := `<html><body>
			<div class="banner"><img data-src="/lazy.jpg"><h3>Promo</h3></div>
		</body></html>`

		res := genericFor(t, html).ExtractAll()

		require.NotNil(t, res.HeroBanner)
		assert.Equal(t, "/lazy.jpg", res.HeroBanner.ImageURL)
	})

	t.Run("nothing found", func(t *testing.T) {
		html := `<html><body><div class="hero"><p>solo texto sin titulo</p></div></body></html>`
		res := genericFor(t, html).ExtractAll()
		assert.Nil(t, res.HeroBanner)
	})
}

func TestGeneric_ExtractProducts_JSONLD(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Product",
		"sku": "ZAP-001",
		"name": "Zapatillas Trail",
		"brand": {"@type": "Brand", "name": "Andina"},
		"category": "Calzado/Running/Trail",
		"image": ["/img/zap1.jpg", "/img/zap2.jpg"],
		"offers": {"@type": "Offer", "price": "45999.90", "priceCurrency": "ARS",
			"availability": "https://schema.org/InStock"},
		"aggregateRating": {"ratingValue": 4.5, "reviewCount": 12}
	}
	</script></head><body></body></html>`

	products := genericFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "ZAP-001", p.SKU)
	assert.Equal(t, "Zapatillas Trail", p.Title)
	assert.Equal(t, "Andina", p.Brand)
	assert.Equal(t, []string{"Calzado", "Running", "Trail"}, p.CategoryTree)
	assert.InDelta(t, 45999.90, p.ListPrice, 0.001)
	assert.True(t, p.InStock)
	assert.Equal(t, 4.5, p.Rating)
	assert.Equal(t, 12, p.ReviewCount)
	assert.Len(t, p.Images, 2)
}

func TestGeneric_ExtractProducts_Graph(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@graph": [
		{"@type": "WebSite", "name": "Tienda"},
		{"@type": "Product", "name": "Campera Puffer", "sku": "CAMP-9"}
	]}
	</script></head><body></body></html>`

	products := genericFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	assert.Equal(t, "Campera Puffer", products[0].Title)
}

func TestGeneric_ExtractProducts_OpenGraphFallback(t *testing.T) {
	html := `<html><head>
		<meta property="og:type" content="product">
		<meta property="og:title" content="Mochila Urbana 25L">
		<meta property="og:image" content="https://cdn.example.com/mochila.jpg">
		<meta property="product:price:amount" content="32.999,00">
		<meta property="product:price:currency" content="ARS">
	</head><body></body></html>`

	products := genericFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	assert.Equal(t, "Mochila Urbana 25L", products[0].Title)
	assert.InDelta(t, 32999.0, products[0].ListPrice, 0.001)
	assert.Equal(t, "ARS", products[0].Currency)
}

func TestGeneric_ExtractProducts_EmptyNeverNil(t *testing.T) {
	products := genericFor(t, "<html><body><p>nada</p></body></html>").ExtractProducts()
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, ok := genericFor(t, "<html></html>").ExtractProduct()
	assert.False(t, ok)
}

func TestGeneric_MalformedJSONLDIsSkipped(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{not json at all</script>
		<script type="application/ld+json">{"@type":"Product","name":"Valida"}</script>
	</head><body></body></html>`

	products := genericFor(t, html).ExtractProducts()
	require.Len(t, products, 1)
	assert.Equal(t, "Valida", products[0].Title)
}

func TestGeneric_ImageAbsolutization(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@type":"Product","name":"Gorra","image":"/img/gorra.jpg"}
	</script></head><body></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.Products, 1)
	assert.Equal(t, "https://tienda.example.com.ar/img/gorra.jpg", res.Products[0].ImageURL)
}

func TestGeneric_InstallmentBackfill(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@type":"Product","name":"Bici Rodado 29","sku":"BICI-29"}
	</script></head><body><main>
		<div>3 cuotas sin interés</div>
		<div>12 cuotas sin interés con Galicia</div>
	</main></body></html>`

	res := genericFor(t, html).ExtractAll()

	require.Len(t, res.Products, 1)
	// The highest-count financing signal wins.
	assert.Contains(t, res.Products[0].Installments, "12 cuotas")
}

func TestGeneric_CategoryTreeFromBreadcrumb(t *testing.T) {
	html := `<html><body>
		<nav class="breadcrumb">
			<a>Inicio</a><a>Deportes</a><a>Running</a><a>Running</a>
		</nav>
		<script type="application/ld+json">{"@type":"Product","name":"Short"}</script>
	</body></html>`

	products := genericFor(t, html).ExtractProducts()

	require.Len(t, products, 1)
	assert.Equal(t, []string{"Deportes", "Running"}, products[0].CategoryTree)
}

func TestGeneric_NoBody(t *testing.T) {
	res := NewGeneric("", nil, "", nil).ExtractAll()
	assert.Empty(t, res.Promos)
	assert.Empty(t, res.Financing)
	assert.Nil(t, res.HeroBanner)
}
