// Package diff detects changes between consecutive snapshots of a
// monitored page. Comparison is purely set-based on trimmed raw text:
// near-duplicate phrasing is deliberately missed rather than risking
// false positives from fuzzy matching.
package diff

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType names one kind of observed change.
type EventType string

const (
	EventNewPromo         EventType = "NEW_PROMO"
	EventRemovedPromo     EventType = "REMOVED_PROMO"
	EventChangedFinancing EventType = "CHANGED_FINANCING"
	EventChangedHero      EventType = "CHANGED_HERO"
	EventFlashSale        EventType = "FLASH_SALE"
)

// Severity ranks how urgently an event should reach a human.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var eventSeverity = map[EventType]Severity{
	EventNewPromo:         SeverityHigh,
	EventRemovedPromo:     SeverityMedium,
	EventChangedFinancing: SeverityHigh,
	EventChangedHero:      SeverityLow,
	EventFlashSale:        SeverityCritical,
}

// SeverityOf returns the fixed severity for an event type.
func SeverityOf(t EventType) Severity {
	return eventSeverity[t]
}

// ChangeEvent is one detected difference between the two most recent
// snapshots of a page. OldValue is set for removals, NewValue for
// additions.
type ChangeEvent struct {
	ID           string    `json:"id"`
	CompetitorID string    `json:"competitor_id"`
	PageID       string    `json:"page_id"`
	Type         EventType `json:"event_type"`
	Severity     Severity  `json:"severity"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

// SnapshotSource provides the signal texts of a page's most recent
// snapshots, newest first.
type SnapshotSource interface {
	SignalTexts(ctx context.Context, pageID string, limit int) ([][]string, error)
}

var percentRe = regexp.MustCompile(`(\d{1,3})\s*%`)

var flashKeywords = []string{"flash", "relámpago", "últimas", "solo hoy", "24h", "48h"}

// Engine computes change events from a snapshot source.
type Engine struct {
	source SnapshotSource
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine builds a diff engine. A nil logger falls back to
// slog.Default().
func NewEngine(source SnapshotSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, logger: logger, now: time.Now}
}

// AnalyzeChanges compares the latest snapshot's signal texts against the
// previous snapshot's. With fewer than two snapshots it returns an empty
// list; that is the steady state for newly added pages, not an error.
func (e *Engine) AnalyzeChanges(ctx context.Context, pageID, competitorID string) ([]ChangeEvent, error) {
	observations, err := e.source.SignalTexts(ctx, pageID, 2)
	if err != nil {
		return nil, fmt.Errorf("loading signal texts for page %s: %w", pageID, err)
	}
	if len(observations) < 2 {
		e.logger.Debug("fewer than two snapshots, skipping diff", "page_id", pageID)
		return []ChangeEvent{}, nil
	}

	current := textSet(observations[0])
	previous := textSet(observations[1])
	detectedAt := e.now().UTC()

	var events []ChangeEvent
	for _, text := range sortedDifference(current, previous) {
		evtType := EventNewPromo
		if isFlashSale(text) {
			evtType = EventFlashSale
		}
		events = append(events, ChangeEvent{
			ID:           uuid.NewString(),
			CompetitorID: competitorID,
			PageID:       pageID,
			Type:         evtType,
			Severity:     eventSeverity[evtType],
			NewValue:     text,
			DetectedAt:   detectedAt,
		})
	}
	for _, text := range sortedDifference(previous, current) {
		events = append(events, ChangeEvent{
			ID:           uuid.NewString(),
			CompetitorID: competitorID,
			PageID:       pageID,
			Type:         EventRemovedPromo,
			Severity:     eventSeverity[EventRemovedPromo],
			OldValue:     text,
			DetectedAt:   detectedAt,
		})
	}

	if len(events) > 0 {
		e.logger.Info("detected changes",
			"page_id", pageID, "competitor_id", competitorID, "events", len(events))
	}
	if events == nil {
		events = []ChangeEvent{}
	}
	return events, nil
}

// textSet builds the comparison set: trimmed, non-empty raw texts.
func textSet(texts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// sortedDifference returns a − b in lexical order for deterministic
// event output.
func sortedDifference(a, b map[string]struct{}) []string {
	var out []string
	for t := range a {
		if _, ok := b[t]; !ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// isFlashSale flags aggressive discounts (40% and up) and time-limited
// language.
func isFlashSale(text string) bool {
	if m := percentRe.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil && pct >= 40 {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range flashKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
