package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/signal"
)

func TestMagento_MetadataEnrichment(t *testing.T) {
	html := `<body>
	<div class="price-box">
		<span class="price">$ 12.999</span>
		<span class="special-price"><span class="price">$ 9.999</span></span>
	</div>
	<div class="installment-block">6 cuotas sin interés</div>
	</body>`

	res := newMagento(newGenericForTest(t, signal.PlatformMagento, html)).ExtractAll()

	assert.Equal(t, signal.PlatformMagento, res.Platform)
	assert.Equal(t, "$ 12.999", res.Metadata["price_ui"])
	assert.Equal(t, "$ 9.999", res.Metadata["special_price"])
	assert.Contains(t, res.Metadata["installments_ui"], "6 cuotas")
}

func TestTiendaNube_MetadataEnrichment(t *testing.T) {
	html := `<body>
	<span class="js-price-display">$ 7.499</span>
	<div class="js-installments">3 cuotas sin interés de $ 2.500</div>
	</body>`

	res := newTiendaNube(newGenericForTest(t, signal.PlatformTiendaNube, html)).ExtractAll()

	assert.Equal(t, "$ 7.499", res.Metadata["price_ui"])
	assert.Contains(t, res.Metadata["installments_ui"], "3 cuotas")
	// The installment text also feeds the generic financing pass.
	require.NotEmpty(t, res.Financing)
	assert.Equal(t, 3, res.Financing[0].Installments)
}

func TestWooCommerce_MetadataEnrichment(t *testing.T) {
	html := `<body>
	<span class="woocommerce-Price-amount">$ 4.999</span>
	<span class="onsale">¡Oferta!</span>
	</body>`

	res := newWooCommerce(newGenericForTest(t, signal.PlatformWooCommerce, html)).ExtractAll()

	assert.Equal(t, "$ 4.999", res.Metadata["price_ui"])
	assert.Equal(t, "¡Oferta!", res.Metadata["promo_ui"])
}

func TestPrestaShop_MissingSelectorsLeaveNoEntries(t *testing.T) {
	res := newPrestaShop(newGenericForTest(t, signal.PlatformPrestaShop, `<body><p>Sin precios en esta página</p></body>`)).ExtractAll()

	_, hasPrice := res.Metadata["price_ui"]
	assert.False(t, hasPrice)
	_, hasRegular := res.Metadata["regular_price"]
	assert.False(t, hasRegular)
}
