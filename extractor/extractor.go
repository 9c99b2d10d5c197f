// Package extractor turns raw page HTML into normalized commercial signals
// and catalog records.
//
// The Generic extractor is the platform-agnostic strategy: embedded JSON-LD
// first, OpenGraph hints second, free-text regex scanning calibrated for
// Spanish-language Argentine retail copy last. Platform extractors wrap a
// Generic instance and layer a higher-confidence path on top, falling back
// to the generic one whenever the platform-specific structure is absent.
//
// Extraction never panics and never returns errors across this boundary: a
// malformed or adversarial page degrades to emptier results with a logged
// warning.
package extractor

import (
	"log/slog"

	"github.com/centinela-io/centinela/signal"
)

// Extractor is the capability every extraction strategy exposes.
type Extractor interface {
	// ExtractAll runs every sub-extractor and returns a consolidated result.
	ExtractAll() *signal.Result

	// ExtractProducts returns all products found on the page. The slice is
	// empty, never nil, when nothing was found.
	ExtractProducts() []signal.Product

	// ExtractProduct returns the first product found, if any.
	ExtractProduct() (signal.Product, bool)
}

// constructor builds a platform extractor around an already-parsed Generic.
type constructor func(g *Generic) Extractor

// registry maps each platform to its extractor constructor. Platforms not
// present here (UNKNOWN, CUSTOM) fall back to the Generic extractor.
var registry = map[signal.Platform]constructor{
	signal.PlatformVTEX:        func(g *Generic) Extractor { return newVTEX(g) },
	signal.PlatformShopify:     func(g *Generic) Extractor { return newShopify(g) },
	signal.PlatformSalesforce:  func(g *Generic) Extractor { return newSalesforce(g) },
	signal.PlatformMagento:     func(g *Generic) Extractor { return newMagento(g) },
	signal.PlatformPrestaShop:  func(g *Generic) Extractor { return newPrestaShop(g) },
	signal.PlatformTiendaNube:  func(g *Generic) Extractor { return newTiendaNube(g) },
	signal.PlatformWooCommerce: func(g *Generic) Extractor { return newWooCommerce(g) },
}

// New returns the extractor for the given platform. This is a pure routing
// decision: no extraction happens here. pageURL may be empty; it is only
// used to absolutize relative asset links. A nil logger falls back to
// slog.Default().
func New(platform signal.Platform, html string, headers map[string]string, pageURL string, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	build, ok := registry[platform]
	if !ok {
		logger.Debug("no platform extractor registered, using generic",
			"platform", platform)
		return newGeneric(platform, html, headers, pageURL, logger)
	}

	return build(newGeneric(platform, html, headers, pageURL, logger))
}
