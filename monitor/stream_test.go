package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/store"
)

func TestEnsurePage_RegistersUnknownURL(t *testing.T) {
	st := openTestStore(t)
	w := &StreamWorker{store: st, logger: slog.Default()}

	page, err := w.ensurePage(context.Background(), ScanRequest{
		URL:          "https://tienda.example.com.ar/promos",
		CompetitorID: "comp-9",
		Kind:         "PROMO_PAGE",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, page.ID)
	assert.Equal(t, "comp-9", page.CompetitorID)
	assert.Equal(t, "PROMO_PAGE", page.Kind)
	assert.True(t, page.Active)
}

func TestEnsurePage_KeepsExistingRegistration(t *testing.T) {
	st := openTestStore(t)
	w := &StreamWorker{store: st, logger: slog.Default()}

	existing := store.Page{
		ID:           uuid.NewString(),
		CompetitorID: "comp-1",
		URL:          "https://tienda.example.com.ar/cuotas",
		Kind:         "FINANCING_PAGE",
		Active:       true,
	}
	require.NoError(t, st.UpsertPage(context.Background(), existing))

	page, err := w.ensurePage(context.Background(), ScanRequest{
		URL:          existing.URL,
		CompetitorID: "comp-otro",
		Kind:         "OTHER",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, page.ID)
	assert.Equal(t, "FINANCING_PAGE", page.Kind)
	assert.Equal(t, "comp-1", page.CompetitorID)
}

func TestEnsurePage_DefaultsKind(t *testing.T) {
	st := openTestStore(t)
	w := &StreamWorker{store: st, logger: slog.Default()}

	page, err := w.ensurePage(context.Background(), ScanRequest{
		URL:          "https://tienda.example.com.ar/",
		CompetitorID: "comp-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "OTHER", page.Kind)
}

func TestScanRequest_WireShape(t *testing.T) {
	var req ScanRequest
	require.NoError(t, json.Unmarshal([]byte(
		`{"url":"https://x.example.com/promos","competitor_id":"comp-1","kind":"PROMO_PAGE"}`), &req))
	assert.Equal(t, "https://x.example.com/promos", req.URL)
	assert.Equal(t, "comp-1", req.CompetitorID)
	assert.Equal(t, "PROMO_PAGE", req.Kind)
}
