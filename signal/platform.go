package signal

// Platform identifies the e-commerce platform serving a page. It is decided
// exactly once per fetch by the platform detector and never re-derived
// downstream.
type Platform string

// Known platforms, in detection priority order.
const (
	PlatformVTEX        Platform = "VTEX"
	PlatformShopify     Platform = "SHOPIFY"
	PlatformMagento     Platform = "MAGENTO"
	PlatformTiendaNube  Platform = "TIENDANUBE"
	PlatformWooCommerce Platform = "WOOCOMMERCE"
	PlatformPrestaShop  Platform = "PRESTASHOP"
	PlatformSalesforce  Platform = "SALESFORCE"
	PlatformCustom      Platform = "CUSTOM"
	PlatformUnknown     Platform = "UNKNOWN"
)

// String returns the platform tag.
func (p Platform) String() string {
	return string(p)
}

// Known reports whether p is one of the concrete platforms (not CUSTOM or
// UNKNOWN).
func (p Platform) Known() bool {
	switch p {
	case PlatformVTEX, PlatformShopify, PlatformMagento, PlatformTiendaNube,
		PlatformWooCommerce, PlatformPrestaShop, PlatformSalesforce:
		return true
	default:
		return false
	}
}
