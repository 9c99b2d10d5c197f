package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/signal"
)

func TestNew_Routing(t *testing.T) {
	html := "<html><body></body></html>"

	tests := []struct {
		platform signal.Platform
		want     any
	}{
		{signal.PlatformVTEX, &VTEX{}},
		{signal.PlatformShopify, &Shopify{}},
		{signal.PlatformSalesforce, &Salesforce{}},
		{signal.PlatformMagento, &Magento{}},
		{signal.PlatformPrestaShop, &PrestaShop{}},
		{signal.PlatformTiendaNube, &TiendaNube{}},
		{signal.PlatformWooCommerce, &WooCommerce{}},
		{signal.PlatformUnknown, &Generic{}},
		{signal.PlatformCustom, &Generic{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			e := New(tt.platform, html, nil, "", nil)
			assert.IsType(t, tt.want, e)
		})
	}
}

func TestNew_FallbackStampsPlatform(t *testing.T) {
	e := New(signal.PlatformCustom, "<html><body></body></html>", nil, "", nil)
	res := e.ExtractAll()
	assert.Equal(t, signal.PlatformCustom, res.Platform)
}

func TestNew_VTEXWithoutStateStillExtracts(t *testing.T) {
	// A VTEX-classified page with no __STATE__ must fall back to the
	// generic regex / JSON-LD paths without error.
	html := `<html><body><main>
		<div>40% OFF en zapatillas seleccionadas</div>
		<div>6 cuotas sin interés</div>
	</main></body></html>`

	e := New(signal.PlatformVTEX, html, nil, "", nil)
	res := e.ExtractAll()

	assert.Equal(t, signal.PlatformVTEX, res.Platform)
	require.NotEmpty(t, res.Promos)
	assert.NotEmpty(t, res.Financing)
}
