package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centinela-io/centinela/diff"
	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/store"
)

// stubFetcher serves canned HTML per URL and fails for unknown URLs.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	f.calls++
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &fetch.Result{HTML: html, Headers: map[string]string{}, StatusCode: 200}, nil
}

func (f *stubFetcher) set(url, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages == nil {
		f.pages = map[string]string{}
	}
	f.pages[url] = html
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func addPage(t *testing.T, st *store.Store, url string) store.Page {
	t.Helper()
	p := store.Page{
		ID:           uuid.NewString(),
		CompetitorID: "comp-1",
		URL:          url,
		Kind:         "PROMO_PAGE",
		Active:       true,
	}
	require.NoError(t, st.UpsertPage(context.Background(), p))
	return p
}

const promoHTML = `<html><body><main>
<h2>Hasta 30% OFF en zapatillas</h2>
<p>3 cuotas sin interés con Visa</p>
</main></body></html>`

const flashHTML = `<html><body><main>
<h2>50% OFF solo hoy</h2>
<p>3 cuotas sin interés con Visa</p>
</main></body></html>`

func TestProcessPage_PersistsSnapshotAndSignals(t *testing.T) {
	st := openTestStore(t)
	fetcher := &stubFetcher{}
	m := New(st, fetcher, Options{Workers: 1})

	page := addPage(t, st, "https://tienda.example.com.ar/promos")
	fetcher.set(page.URL, promoHTML)

	events, err := m.ProcessPage(context.Background(), page)
	require.NoError(t, err)
	// First observation: nothing to diff against yet.
	assert.Empty(t, events)

	observations, err := st.SignalTexts(context.Background(), page.ID, 1)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Contains(t, observations[0], "Hasta 30% OFF en zapatillas")
	assert.Contains(t, observations[0], "3 cuotas sin interés con Visa")
}

func TestProcessPage_SecondObservationDiffs(t *testing.T) {
	st := openTestStore(t)
	fetcher := &stubFetcher{}
	m := New(st, fetcher, Options{Workers: 1})

	page := addPage(t, st, "https://tienda.example.com.ar/promos")

	fetcher.set(page.URL, promoHTML)
	_, err := m.ProcessPage(context.Background(), page)
	require.NoError(t, err)

	fetcher.set(page.URL, flashHTML)
	events, err := m.ProcessPage(context.Background(), page)
	require.NoError(t, err)

	require.Len(t, events, 2)
	byType := map[diff.EventType]diff.ChangeEvent{}
	for _, e := range events {
		byType[e.Type] = e
	}
	flash, ok := byType[diff.EventFlashSale]
	require.True(t, ok)
	assert.Equal(t, "50% OFF solo hoy", flash.NewValue)
	removed, ok := byType[diff.EventRemovedPromo]
	require.True(t, ok)
	assert.Equal(t, "Hasta 30% OFF en zapatillas", removed.OldValue)

	// Events are also in the append-only log.
	stored, err := st.RecentEvents(context.Background(), page.CompetitorID, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestProcessPage_FetchFailure(t *testing.T) {
	st := openTestStore(t)
	m := New(st, &stubFetcher{}, Options{Workers: 1})

	page := addPage(t, st, "https://tienda.example.com.ar/caida")
	_, err := m.ProcessPage(context.Background(), page)
	require.Error(t, err)

	// No snapshot is recorded for an unavailable page.
	observations, err := st.SignalTexts(context.Background(), page.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, observations)
}

func TestRun_AggregatesOutcomes(t *testing.T) {
	st := openTestStore(t)
	fetcher := &stubFetcher{}
	m := New(st, fetcher, Options{Workers: 4})

	ok1 := addPage(t, st, "https://tienda.example.com.ar/promos")
	ok2 := addPage(t, st, "https://tienda.example.com.ar/cuotas")
	addPage(t, st, "https://tienda.example.com.ar/caida")
	fetcher.set(ok1.URL, promoHTML)
	fetcher.set(ok2.URL, promoHTML)

	result, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunPartial, result.Status)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 1, result.Failures)
}

func TestRun_AllPagesSucceed(t *testing.T) {
	st := openTestStore(t)
	fetcher := &stubFetcher{}
	m := New(st, fetcher, Options{Workers: 2})

	for _, url := range []string{
		"https://a.example.com/promos",
		"https://b.example.com/promos",
	} {
		addPage(t, st, url)
		fetcher.set(url, promoHTML)
	}

	result, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSuccess, result.Status)
	assert.Equal(t, 2, result.Successes)
	assert.Zero(t, result.Failures)
}

func TestRun_AllPagesFail(t *testing.T) {
	st := openTestStore(t)
	m := New(st, &stubFetcher{}, Options{Workers: 2})
	addPage(t, st, "https://a.example.com/x")

	result, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
}

func TestRun_NoPages(t *testing.T) {
	st := openTestStore(t)
	result, err := New(st, &stubFetcher{}, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSuccess, result.Status)
	assert.Zero(t, result.Pages)
}
