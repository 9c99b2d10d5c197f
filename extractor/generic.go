package extractor

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/centinela-io/centinela/signal"
)

// Caps keep a single hostile or enormous page from flooding the pipeline.
const (
	maxTextChunks   = 200
	maxPromoSignals = 20
	maxFinSignals   = 10
	maxCTASignals   = 10
	maxCTAElements  = 100
	dedupePrefixLen = 200
)

// Promo patterns calibrated for Argentine retail copy.
var (
	promoPercentRe = regexp.MustCompile(`(?i)(\d{1,3})\s*%\s*(?:de\s+)?(?:off|desc(?:uento)?|ahorro|dscto\.?)`)
	promo2x1Re     = regexp.MustCompile(`(?i)\b(2\s*[xX×]\s*1|dos\s+por\s+uno|2do\s+(?:al\s+)?(?:\d+\s*%?|gratis))\b`)
	promoComboRe   = regexp.MustCompile(`(?i)\b(combo|pack|kit|bundle|llev[aá]\s*\d+)\b`)
	promoFixedRe   = regexp.MustCompile(`(?i)\$\s*(\d[\d.,]*)\s*(?:de\s+)?(?:descuento|ahorro|off)\b`)
)

/// Financing: "12 cuotas sin interés", "6 cuotas con Visa".
var financingRe = regexp.MustCompile(
	`(?i)(\d{1,2})\s*(?:cuotas?|pagos?|meses?)\s*` +
		`(?:(sin|con)\s+inter[eé]s)?` +
		`(?:\s+(?:con|en)\s+([A-ZÁÉÍÓÚ][a-záéíóú]+(?:\s+[A-ZÁÉÍÓÚ][a-záéíóú]+)?))?`)

// Common Argentine banks and card brands.
var bankRe = regexp.MustCompile(`(?i)\b(Visa|Mastercard|AMEX|American\s+Express|Naranja|Cabal|Galicia|` +
	`Santander|BBVA|HSBC|Itaú|Banco\s+Naci[oó]n|BNA|Macro|Patagonia|` +
	`Mercado\s*Pago|MercadoPago|Ual[aá])\b`)

// CTA action verbs.
var ctaRe = regexp.MustCompile(`(?i)\b(comprar?|ver\s+oferta|ver\s+m[aá]s|aprovech[aá]|quiero|lo\s+quiero|` +
	`agregar|a[ñn]adir|saber\s+m[aá]s|pedir|solicitar|descubr[íi]|` +
	`explorar|ir\s+a\s+tienda|shop\s+now|buy\s+now|order\s+now)\b`)

// promoZoneSelector restricts text scanning to promo-relevant page zones.
const promoZoneSelector = "main, section, article, .banner, .promo, .offer, .hero, " +
	"[class*='offer'], [class*='promo'], [class*='banner'], [class*='slider']"

// heroSelectors are tried in order; the first matching element is the hero.
var heroSelectors = []string{
	".hero", ".banner", ".slider", "[class*='hero']", "[class*='banner']",
	"section:first-of-type", "main > div:first-child",
}

// Generic is the platform-agnostic extraction strategy and the base every
// platform extractor composes with.
type Generic struct {
	html     string
	headers  map[string]string
	pageURL  string
	platform signal.Platform
	doc      *goquery.Document
	logger   *slog.Logger
}

func newGeneric(platform signal.Platform, html string, headers map[string]string, pageURL string, logger *slog.Logger) *Generic {
	g := &Generic{
		html:     html,
		headers:  headers,
		pageURL:  pageURL,
		platform: platform,
		logger:   logger,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable HTML degrades every selector-based path to empty.
		logger.Warn("failed to parse page HTML", "url", pageURL, "error", err)
		return g
	}
	g.doc = doc
	return g
}

// NewGeneric creates a generic extractor for a page of unknown platform.
func NewGeneric(html string, headers map[string]string, pageURL string, logger *slog.Logger) *Generic {
	if logger == nil {
		logger = slog.Default()
	}
	return newGeneric(signal.PlatformUnknown, html, headers, pageURL, logger)
}

// ExtractAll runs promo, financing, CTA, hero and product extraction and
// returns the consolidated result.
func (g *Generic) ExtractAll() *signal.Result {
	res := signal.NewResult(g.platform)

	if g.doc == nil || g.doc.Find("body").Length() == 0 {
		g.logger.Warn("no parseable <body>, returning empty result", "url", g.pageURL)
		return res
	}

	chunks := g.textChunks()
	res.Promos = g.extractPromos(chunks)
	res.Financing = g.extractFinancing(chunks)
	res.CTAs = g.extractCTAs()
	res.HeroBanner = g.extractHero()
	res.Products = g.ExtractProducts()

	g.absolutizeImages(res.Products)
	backfillInstallments(res.Products, res.Financing)

	return res
}

// textChunks collects short text blocks from promo-relevant zones only, or
// from the whole body when no such zone exists.
func (g *Generic) textChunks() []string {
	zones := g.doc.Find(promoZoneSelector)
	if zones.Length() == 0 {
		zones = g.doc.Find("body")
	}

	var chunks []string
	zones.EachWithBreak(func(_ int, zone *goquery.Selection) bool {
		zone.ChildrenFiltered("h1, h2, h3, h4, p, span, div, a, li").
			EachWithBreak(func(_ int, el *goquery.Selection) bool {
				text := normalizedText(el)
				if len(text) > 5 && len(text) < 500 {
					chunks = append(chunks, text)
				}
				return len(chunks) < maxTextChunks
			})
		return len(chunks) < maxTextChunks
	})

	return chunks
}

func (g *Generic) extractPromos(chunks []string) []signal.Promo {
	var promos []signal.Promo
	seen := make(map[string]struct{})

	record := func(raw string, p signal.Promo) {
		if _, dup := seen[raw]; dup || len(promos) >= maxPromoSignals {
			return
		}
		seen[raw] = struct{}{}
		promos = append(promos, p)
	}

	for _, chunk := range chunks {
		raw := truncate(chunk, dedupePrefixLen)

		if m := promoPercentRe.FindStringSubmatch(chunk); m != nil {
			value, _ := strconv.ParseFloat(m[1], 64)
			record(raw, signal.Promo{
				RawText:       raw,
				DiscountType:  signal.DiscountPercentage,
				DiscountValue: value,
				Confidence:    0.90,
			})
		}

		if m := promoFixedRe.FindStringSubmatch(chunk); m != nil {
			if amount, ok := CleanPrice(m[1]); ok {
				record(raw, signal.Promo{
					RawText:       raw,
					DiscountType:  signal.DiscountFixed,
					DiscountValue: amount,
					Confidence:    0.85,
				})
			}
		}

		if promo2x1Re.MatchString(chunk) {
			record(raw, signal.Promo{
				RawText:      raw,
				DiscountType: signal.Discount2x1,
				Confidence:   0.88,
			})
		}

		// Combo only counts when no percentage fired in the same chunk;
		// percentage takes priority.
		if promoComboRe.MatchString(chunk) && !promoPercentRe.MatchString(chunk) {
			record(raw, signal.Promo{
				RawText:      raw,
				DiscountType: signal.DiscountCombo,
				Confidence:   0.70,
			})
		}

		if len(promos) >= maxPromoSignals {
			break
		}
	}

	return promos
}

func (g *Generic) extractFinancing(chunks []string) []signal.Financing {
	var financing []signal.Financing
	seen := make(map[string]struct{})

	for _, chunk := range chunks {
		m := financingRe.FindStringSubmatch(chunk)
		if m == nil {
			continue
		}

		raw := truncate(chunk, dedupePrefixLen)
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		installments, _ := strconv.Atoi(m[1])

		// Prefer a known bank/card mention anywhere in the chunk over the
		// loosely-captured trailing name.
		bank := m[3]
		if bm := bankRe.FindString(chunk); bm != "" {
			bank = bm
		}

		financing = append(financing, signal.Financing{
			RawText:      raw,
			Installments: installments,
			Bank:         bank,
			InterestFree: strings.EqualFold(m[2], "sin"),
			Confidence:   0.85,
		})

		if len(financing) >= maxFinSignals {
			break
		}
	}

	return financing
}

func (g *Generic) extractCTAs() []signal.CallToAction {
	var ctas []signal.CallToAction
	seen := make(map[string]struct{})

	scanned := 0
	g.doc.Find("a, button").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		scanned++
		if scanned > maxCTAElements {
			return false
		}

		text := normalizedText(el)
		if text == "" || len(text) > 100 || !ctaRe.MatchString(text) {
			return true
		}

		normalized := strings.ToLower(strings.TrimSpace(text))
		if _, dup := seen[normalized]; dup {
			return true
		}
		seen[normalized] = struct{}{}

		href := ""
		if goquery.NodeName(el) == "a" {
			href, _ = el.Attr("href")
		}
		ctas = append(ctas, signal.CallToAction{Text: text, URL: href})

		return len(ctas) < maxCTASignals
	})

	return ctas
}

// extractHero finds the first prominent hero/banner zone and pulls its first
// image, heading and link. Returns nil when neither an image nor a headline
// is found.
func (g *Generic) extractHero() *signal.HeroBanner {
	var zone *goquery.Selection
	for _, sel := range heroSelectors {
		if s := g.doc.Find(sel).First(); s.Length() > 0 {
			zone = s
			break
		}
	}
	if zone == nil {
		return nil
	}

	hero := &signal.HeroBanner{}

	if img := zone.Find("img").First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src == "" {
			src, _ = img.Attr("data-lazy-src")
		}
		hero.ImageURL = src
		hero.AltText, _ = img.Attr("alt")
	}

	if h := zone.Find("h1, h2, h3").First(); h.Length() > 0 {
		hero.Headline = normalizedText(h)
	}

	if a := zone.Find("a[href]").First(); a.Length() > 0 {
		hero.LinkURL, _ = a.Attr("href")
	}

	if hero.ImageURL == "" && hero.Headline == "" {
		return nil
	}
	return hero
}

// absolutizeImages resolves product image URLs against the page URL.
func (g *Generic) absolutizeImages(products []signal.Product) {
	if g.pageURL == "" {
		return
	}
	base, err := url.Parse(g.pageURL)
	if err != nil {
		return
	}

	resolve := func(raw string) string {
		if raw == "" {
			return raw
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		return base.ResolveReference(ref).String()
	}

	for i := range products {
		products[i].ImageURL = resolve(products[i].ImageURL)
		for j := range products[i].Images {
			products[i].Images[j] = resolve(products[i].Images[j])
		}
	}
}

// backfillInstallments copies the best (highest-count) financing signal into
// products that did not carry their own installment description.
func backfillInstallments(products []signal.Product, financing []signal.Financing) {
	best := signal.Financing{}
	for _, f := range financing {
		if f.Installments > best.Installments {
			best = f
		}
	}
	if best.Installments == 0 {
		return
	}

	for i := range products {
		if products[i].Installments == "" {
			products[i].Installments = best.RawText
		}
	}
}

// normalizedText returns the selection's text with whitespace collapsed to
// single spaces, matching how visible text reads.
func normalizedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// truncate limits a string to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
