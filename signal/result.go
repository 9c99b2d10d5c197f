package signal

// Result accumulates everything one extraction pass found on a page.
// It is owned exclusively by the extractor invocation that creates it and
// is discarded after being drained into persistence.
type Result struct {
	Platform   Platform          `json:"platform"`
	Promos     []Promo           `json:"promos,omitempty"`
	Financing  []Financing       `json:"financing,omitempty"`
	HeroBanner *HeroBanner       `json:"hero_banner,omitempty"`
	CTAs       []CallToAction    `json:"ctas,omitempty"`
	Products   []Product         `json:"products,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewResult creates an empty result for the given platform.
func NewResult(platform Platform) *Result {
	return &Result{
		Platform: platform,
		Metadata: make(map[string]string),
	}
}

// FirstProduct returns the first extracted product, if any.
func (r *Result) FirstProduct() (Product, bool) {
	if len(r.Products) == 0 {
		return Product{}, false
	}
	return r.Products[0], true
}

// SignalCount returns the total number of text signals in the result
// (promos, financing offers and CTAs).
func (r *Result) SignalCount() int {
	return len(r.Promos) + len(r.Financing) + len(r.CTAs)
}
