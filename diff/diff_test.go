package diff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	observations [][]string
	err          error
}

func (s *stubSource) SignalTexts(_ context.Context, _ string, limit int) ([][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.observations) > limit {
		return s.observations[:limit], nil
	}
	return s.observations, nil
}

func analyze(t *testing.T, observations [][]string) []ChangeEvent {
	t.Helper()
	engine := NewEngine(&stubSource{observations: observations}, nil)
	events, err := engine.AnalyzeChanges(context.Background(), "page-1", "comp-1")
	require.NoError(t, err)
	return events
}

func TestAnalyzeChanges_SetAlgebra(t *testing.T) {
	events := analyze(t, [][]string{
		{"30% OFF", "Envío gratis"}, // current
		{"10% OFF", "Envío gratis"}, // previous
	})

	require.Len(t, events, 2)

	assert.Equal(t, EventNewPromo, events[0].Type)
	assert.Equal(t, SeverityHigh, events[0].Severity)
	assert.Equal(t, "30% OFF", events[0].NewValue)
	assert.Empty(t, events[0].OldValue)

	assert.Equal(t, EventRemovedPromo, events[1].Type)
	assert.Equal(t, SeverityMedium, events[1].Severity)
	assert.Equal(t, "10% OFF", events[1].OldValue)

	for _, e := range events {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "comp-1", e.CompetitorID)
		assert.Equal(t, "page-1", e.PageID)
		assert.False(t, e.DetectedAt.IsZero())
	}
}

func TestAnalyzeChanges_FlashSaleThreshold(t *testing.T) {
	tests := []struct {
		text string
		want EventType
	}{
		{"45% OFF en toda la tienda", EventFlashSale},
		{"40% OFF", EventFlashSale},
		{"25% OFF", EventNewPromo},
		{"Venta flash de zapatillas", EventFlashSale},
		{"Oferta relámpago", EventFlashSale},
		{"Solo hoy: envío gratis", EventFlashSale},
		{"Últimas unidades", EventFlashSale},
		{"Termina en 48h", EventFlashSale},
		{"Nueva colección de verano", EventNewPromo},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			events := analyze(t, [][]string{{tc.text}, {}})
			require.Len(t, events, 1)
			assert.Equal(t, tc.want, events[0].Type)
			assert.Equal(t, SeverityOf(tc.want), events[0].Severity)
		})
	}
}

func TestAnalyzeChanges_InsufficientHistory(t *testing.T) {
	t.Run("one snapshot", func(t *testing.T) {
		events := analyze(t, [][]string{{"10% OFF"}})
		assert.Empty(t, events)
		assert.NotNil(t, events)
	})
	t.Run("no snapshots", func(t *testing.T) {
		events := analyze(t, nil)
		assert.Empty(t, events)
		assert.NotNil(t, events)
	})
}

func TestAnalyzeChanges_NoChanges(t *testing.T) {
	events := analyze(t, [][]string{
		{"Envío gratis", "3 cuotas sin interés"},
		{"3 cuotas sin interés", "Envío gratis"},
	})
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

func TestAnalyzeChanges_TrimsAndDropsEmpty(t *testing.T) {
	events := analyze(t, [][]string{
		{"  30% OFF  ", "", "   "},
		{"30% OFF"},
	})
	assert.Empty(t, events)
}

func TestAnalyzeChanges_DeterministicOrder(t *testing.T) {
	observations := [][]string{
		{"Zapatillas 2x1", "Abrigos 25% OFF", "Medias 10% OFF"},
		{},
	}
	first := analyze(t, observations)
	second := analyze(t, observations)

	require.Len(t, first, 3)
	assert.Equal(t, "Abrigos 25% OFF", first[0].NewValue)
	assert.Equal(t, "Medias 10% OFF", first[1].NewValue)
	assert.Equal(t, "Zapatillas 2x1", first[2].NewValue)
	for i := range first {
		assert.Equal(t, first[i].NewValue, second[i].NewValue)
		assert.Equal(t, first[i].Type, second[i].Type)
	}
}

func TestAnalyzeChanges_SourceError(t *testing.T) {
	engine := NewEngine(&stubSource{err: errors.New("db down")}, nil)
	_, err := engine.AnalyzeChanges(context.Background(), "page-1", "comp-1")
	assert.ErrorContains(t, err, "db down")
}
