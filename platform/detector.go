// Package platform detects the e-commerce platform serving a page from its
// raw HTML and response headers.
//
// This is a fast first-pass triage that runs in well under a millisecond and
// routes the page to the right extractor. A full technology fingerprint
// (analytics, payments, CDN) is a separate concern and does not gate
// extraction.
package platform

import (
	"regexp"
	"strings"

	"github.com/centinela-io/centinela/signal"
)

// signatureSource says where a signature pattern is matched.
type signatureSource uint8

const (
	sourceHTML signatureSource = iota
	sourceHeaderKey
	sourceHeaderValue
)

type sig struct {
	source  signatureSource
	pattern *regexp.Regexp
}

func htmlSig(pattern string) sig {
	return sig{source: sourceHTML, pattern: regexp.MustCompile("(?i)" + pattern)}
}

func headerKeySig(pattern string) sig {
	return sig{source: sourceHeaderKey, pattern: regexp.MustCompile("(?i)" + pattern)}
}

func headerValueSig(pattern string) sig {
	return sig{source: sourceHeaderValue, pattern: regexp.MustCompile("(?i)" + pattern)}
}

type platformSigs struct {
	platform   signal.Platform
	signatures []sig
}

// signatureTable lists known signatures per platform. Order is the
// tie-break: the first platform with a matching signature wins, even when a
// later platform's signature would also match.
var signatureTable = []platformSigs{
	{signal.PlatformVTEX, []sig{
		htmlSig(`__STATE__`),
		htmlSig(`vtex\.render-server`),
		htmlSig(`vteximg\.com\.br`),
		headerKeySig(`x-vtex-`),
	}},
	{signal.PlatformShopify, []sig{
		htmlSig(`window\.Shopify`),
		htmlSig(`cdn\.shopify\.com`),
		headerKeySig(`x-shopify`),
		htmlSig(`Shopify\.theme`),
	}},
	{signal.PlatformMagento, []sig{
		htmlSig(`Magento/`),
		htmlSig(`mage-cache-storage`),
		htmlSig(`requirejs/require`),
		htmlSig(`catalog/product/view`),
	}},
	{signal.PlatformTiendaNube, []sig{
		htmlSig(`tiendanube\.com/scripts`),
		htmlSig(`window\.LS\.store`),
		htmlSig(`nuvemshop`),
	}},
	{signal.PlatformWooCommerce, []sig{
		htmlSig(`wp-content/plugins/woocommerce`),
		htmlSig(`woocommerce`),
		htmlSig(`wc-block-`),
	}},
	{signal.PlatformPrestaShop, []sig{
		htmlSig(`var prestashop`),
		htmlSig(`PrestaShop`),
		htmlSig(`prestashop/js`),
	}},
	{signal.PlatformSalesforce, []sig{
		htmlSig(`demandware\.static`),
		htmlSig(`dwanalytics`),
		headerValueSig(`demandware`),
	}},
}

// Detect classifies raw HTML plus response headers into a Platform.
//
// It is a pure function: identical inputs always yield the same platform.
// Absence of any match is a valid terminal state (PlatformUnknown), not an
// error.
func Detect(html string, headers map[string]string) signal.Platform {
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		normalized[strings.ToLower(k)] = v
	}

	for _, entry := range signatureTable {
		for _, s := range entry.signatures {
			switch s.source {
			case sourceHTML:
				if s.pattern.MatchString(html) {
					return entry.platform
				}
			case sourceHeaderKey:
				for key := range normalized {
					if s.pattern.MatchString(key) {
						return entry.platform
					}
				}
			case sourceHeaderValue:
				for _, val := range normalized {
					if s.pattern.MatchString(val) {
						return entry.platform
					}
				}
			}
		}
	}

	return signal.PlatformUnknown
}
