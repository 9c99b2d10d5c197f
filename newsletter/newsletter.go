// Package newsletter extracts commercial signals from retail marketing
// emails. Retail newsletters carry their message in the subject line,
// image alt texts, CTA links and headlines; body paragraphs are mostly
// filler, so only those four sources are scanned.
package newsletter

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/centinela-io/centinela/signal"
)

// Source names where in the email a signal was found.
type Source string

const (
	SourceSubject  Source = "SUBJECT_LINE"
	SourceImgAlt   Source = "IMG_ALT"
	SourceCTALink  Source = "CTA_LINK"
	SourceHeadline Source = "HEADLINE"
)

// Signal is one commercial signal found in an email.
type Signal struct {
	RawText string      `json:"raw_text"`
	Kind    signal.Kind `json:"kind"`
	Source  Source      `json:"source"`
	// Pattern is the matched fragment that triggered the detection.
	Pattern string `json:"pattern"`
}

// Email is one already-delivered message; IMAP handling happens upstream.
type Email struct {
	Subject string
	HTML    string
	// URL is the newsletter's web version, when known. Used to resolve
	// relative links during body conversion.
	URL string
}

// Result is the parsed email: its signals plus a Markdown rendition of
// the readable body for storage and inspection.
type Result struct {
	Signals  []Signal
	Markdown string
}

var promoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,3}%\s*(?:off|desc|descuento|ahorro|dscto)`),
	regexp.MustCompile(`(?i)\d\s*x\s*\d`),
	regexp.MustCompile(`(?i)(?:promo|oferta|liquidaci[oó]n|sale|hot\s*sale)`),
	regexp.MustCompile(`(?i)2do\s+al\s+\d{1,3}%`),
	regexp.MustCompile(`(?i)llev[at]\s*\d\s*pag[at]\s*\d`),
}

var finPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,2}\s*cuotas`),
	regexp.MustCompile(`(?i)sin\s*inter[eé]s`),
	regexp.MustCompile(`(?i)(?:visa|mastercard|amex|naranja|cabal)`),
	regexp.MustCompile(`(?i)ahora\s*\d{1,2}`),
}

var shipPattern = regexp.MustCompile(`(?i)(env[ií]o\s*grat[ií]s|gratis\s*a\s*todo\s*el\s*pa[ií]s|entrega\s*sin\s*cargo)`)

// Parser extracts signals from newsletter emails.
type Parser struct {
	logger    *slog.Logger
	converter *md.Converter
}

// NewParser creates a parser. A nil logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// Parse scans the email for signals and converts its readable body to
// Markdown. Signals are deduped by raw text, first occurrence kept.
func (p *Parser) Parse(email Email) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(email.HTML))
	if err != nil {
		p.logger.Warn("failed to parse email HTML", "subject", email.Subject, "error", err)
		doc = nil
	}

	var signals []Signal
	if subject := strings.TrimSpace(email.Subject); subject != "" {
		signals = appendSignals(signals, subject, SourceSubject)
	}

	if doc != nil {
		doc.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
			alt := strings.TrimSpace(img.AttrOr("alt", ""))
			if len([]rune(alt)) > 5 {
				signals = appendSignals(signals, alt, SourceImgAlt)
			}
		})
		doc.Find("a").Each(func(_ int, a *goquery.Selection) {
			text := normalizedText(a)
			if len([]rune(text)) > 5 {
				signals = appendSignals(signals, text, SourceCTALink)
			}
		})
		doc.Find("h1, h2, strong, b").Each(func(_ int, h *goquery.Selection) {
			text := normalizedText(h)
			if n := len([]rune(text)); n > 10 && n < 150 {
				signals = appendSignals(signals, text, SourceHeadline)
			}
		})
	}

	return &Result{
		Signals:  dedupe(signals),
		Markdown: p.bodyMarkdown(email),
	}, nil
}

// appendSignals runs each detector category over text, adding at most one
// signal per category.
func appendSignals(signals []Signal, text string, source Source) []Signal {
	for _, re := range promoPatterns {
		if m := re.FindString(text); m != "" {
			signals = append(signals, Signal{RawText: text, Kind: signal.KindPromo, Source: source, Pattern: m})
			break
		}
	}
	for _, re := range finPatterns {
		if m := re.FindString(text); m != "" {
			signals = append(signals, Signal{RawText: text, Kind: signal.KindFinancing, Source: source, Pattern: m})
			break
		}
	}
	if m := shipPattern.FindString(text); m != "" {
		signals = append(signals, Signal{RawText: text, Kind: signal.KindShipping, Source: source, Pattern: m})
	}
	return signals
}

// dedupe keeps the first signal per raw text.
func dedupe(signals []Signal) []Signal {
	seen := make(map[string]struct{}, len(signals))
	var unique []Signal
	for _, s := range signals {
		if _, dup := seen[s.RawText]; dup {
			continue
		}
		seen[s.RawText] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

// bodyMarkdown isolates the email's readable content and converts it to
// Markdown. Conversion failures degrade to an empty string; the signals
// are the primary output.
func (p *Parser) bodyMarkdown(email Email) string {
	pageURL, _ := url.Parse(email.URL)

	content := email.HTML
	if article, err := readability.FromReader(strings.NewReader(email.HTML), pageURL); err == nil && article.Content != "" {
		content = article.Content
	}

	markdown, err := p.converter.ConvertString(content)
	if err != nil {
		p.logger.Warn("email body conversion failed", "subject", email.Subject, "error", err)
		return ""
	}
	return strings.TrimSpace(markdown)
}

func normalizedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
