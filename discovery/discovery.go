// Package discovery finds the key pages a competitor site links from its
// header, nav and footer zones. Scanning is restricted to those zones;
// walking the full body picks up far too many irrelevant internal links.
package discovery

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/centinela-io/centinela/signal"
)

// DefaultMaxPages bounds one discovery pass.
const DefaultMaxPages = 30

// PageType classifies a discovered link by commercial intent.
type PageType string

const (
	PagePromo     PageType = "PROMO_PAGE"
	PageFinancing PageType = "FINANCING_PAGE"
	PageShipping  PageType = "SHIPPING_PAGE"
	PageCategory  PageType = "CATEGORY"
)

// Page is one same-domain link discovered in a navigation zone.
type Page struct {
	URL        string   `json:"url"`
	Type       PageType `json:"page_type"`
	AnchorText string   `json:"anchor_text"`
	SourceZone string   `json:"source_zone"`
}

// Classification rules over the combined URL + anchor text, Spanish-first.
var (
	promoPatterns = regexp.MustCompile(`(?i)(promoci[oó]n|promo|oferta|sale|outlet|descuento|liquidaci[oó]n|mega|cyber|hot.?sale|black.?friday|super.?precio|especial|deal)`)
	finPatterns   = regexp.MustCompile(`(?i)(financiaci[oó]n|financiamiento|cuotas?|banco|cr[eé]dito|pago|plan)`)
	shipPatterns  = regexp.MustCompile(`(?i)(env[íi]o|despacho|entrega|retiro|shipping|delivery)`)
)

// Zone selectors per platform, tried before the universal set.
var platformZoneSelectors = map[signal.Platform][]string{
	signal.PlatformVTEX: {
		".vtex-menu", ".vtex-header", ".vtex-footer",
		"[class*='vtex-menu']", "[class*='vtex-footer']",
	},
	signal.PlatformShopify: {
		"#shopify-section-header", "#shopify-section-footer",
		".site-header", ".site-footer",
	},
	signal.PlatformMagento: {
		".nav-sections", ".footer.content", ".page-header",
	},
	signal.PlatformTiendaNube: {
		".js-nav", ".js-footer", ".header-nav",
	},
	signal.PlatformWooCommerce: {
		".site-header", ".site-footer", ".main-navigation", ".secondary-navigation",
	},
	signal.PlatformPrestaShop: {
		"#header", "#footer", ".header-nav",
	},
}

var universalZoneSelectors = []string{
	"header", "nav", "footer",
	"[role='navigation']", "[role='banner']", "[role='contentinfo']",
	".header", ".footer", ".nav", ".navigation",
	"#header", "#footer", "#nav",
}

// Options tunes one discovery pass. The zero value uses DefaultMaxPages,
// no ignore globs and slog.Default().
type Options struct {
	MaxPages int
	// IgnoreGlobs drops links whose URL path matches any doublestar glob,
	// e.g. "/checkout/**" or "/account/**".
	IgnoreGlobs []string
	Logger      *slog.Logger
}

// Discover scans the navigation zones of html for same-domain links and
// classifies each into a page type. Links are normalized (query string and
// trailing slash stripped) and deduped; the pass stops once MaxPages links
// are collected.
func Discover(pageHTML, baseURL string, platform signal.Platform, opts Options) []Page {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		opts.Logger.Warn("failed to parse page HTML", "url", baseURL, "error", err)
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		opts.Logger.Warn("invalid base URL", "url", baseURL, "error", err)
		return nil
	}

	zones := collectZones(doc, platform)
	if len(zones) == 0 {
		opts.Logger.Warn("no header/nav/footer zones found", "url", baseURL)
		return nil
	}

	var discovered []Page
	seen := make(map[string]struct{})
	selfURL := strings.TrimRight(baseURL, "/")

	for _, zone := range zones {
		zoneName := zoneName(zone)

		links := zone.Find("a[href]")
		for i := 0; i < links.Length() && len(discovered) < opts.MaxPages; i++ {
			a := links.Eq(i)
			href := strings.TrimSpace(a.AttrOr("href", ""))
			if skipHref(href) {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			abs := base.ResolveReference(ref)
			if abs.Host != "" && abs.Host != base.Host {
				continue
			}
			if ignored(abs.Path, opts.IgnoreGlobs) {
				continue
			}

			abs.RawQuery = ""
			abs.Fragment = ""
			clean := strings.TrimRight(abs.String(), "/")
			if clean == selfURL {
				continue
			}
			if _, dup := seen[clean]; dup {
				continue
			}
			seen[clean] = struct{}{}

			anchor := truncateRunes(strings.Join(strings.Fields(a.Text()), " "), 200)
			discovered = append(discovered, Page{
				URL:        clean,
				Type:       classify(clean, anchor),
				AnchorText: anchor,
				SourceZone: zoneName,
			})
		}
		if len(discovered) >= opts.MaxPages {
			opts.Logger.Info("discovery reached page limit", "url", baseURL, "max_pages", opts.MaxPages)
			break
		}
	}

	opts.Logger.Info("discovery finished",
		"url", baseURL, "zones", len(zones), "pages", len(discovered))
	return discovered
}

// collectZones returns the navigation zones to scan, platform-specific
// selectors first, deduped by DOM node.
func collectZones(doc *goquery.Document, platform signal.Platform) []*goquery.Selection {
	var zones []*goquery.Selection
	seen := make(map[*html.Node]struct{})

	selectors := append(append([]string{}, platformZoneSelectors[platform]...), universalZoneSelectors...)
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if _, dup := seen[node]; dup {
				return
			}
			seen[node] = struct{}{}
			zones = append(zones, s)
		})
	}
	return zones
}

func zoneName(zone *goquery.Selection) string {
	if name := goquery.NodeName(zone); name != "" && name != "div" && name != "section" {
		return name
	}
	if class := zone.AttrOr("class", ""); class != "" {
		return strings.Fields(class)[0]
	}
	return goquery.NodeName(zone)
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return true
		}
	}
	return false
}

func ignored(path string, globs []string) bool {
	for _, glob := range globs {
		if ok, err := doublestar.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}

func classify(pageURL, anchorText string) PageType {
	combined := strings.ToLower(pageURL + " " + anchorText)
	switch {
	case promoPatterns.MatchString(combined):
		return PagePromo
	case finPatterns.MatchString(combined):
		return PageFinancing
	case shipPatterns.MatchString(combined):
		return PageShipping
	default:
		return PageCategory
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
