// Package extract turns chunks of report text into the structured record set
// that feeds the relational store. Field names on the wire follow the
// Portuguese vocabulary of the source report, which is also what the model
// is instructed to emit.
package extract

import "encoding/json"

// Product is a fertilizer product as quoted in the report.
type Product struct {
	Name        string  `json:"nome_produto"`
	Formulation *string `json:"formulacao"`
	Origin      *string `json:"origem"`
	Type        string  `json:"tipo"`
	Unit        string  `json:"unidade"`
}

// ProductKey is the natural key used for deduplication and find-or-create.
type ProductKey struct {
	Name        string
	Formulation string
	Origin      string
	Type        string
	Unit        string
}

// Key returns the natural key of the product. Nil fields collapse to the
// empty string; Normalize fills Origin before keys are ever compared.
func (p Product) Key() ProductKey {
	return ProductKey{
		Name:        p.Name,
		Formulation: deref(p.Formulation),
		Origin:      deref(p.Origin),
		Type:        p.Type,
		Unit:        p.Unit,
	}
}

// Location is a port, city, state or country referenced by prices and freights.
type Location struct {
	Name    string  `json:"nome"`
	State   *string `json:"estado"`
	Country string  `json:"pais"`
	Kind    string  `json:"tipo"`
}

// LocationKey is the (name, state) natural key.
type LocationKey struct {
	Name  string
	State string
}

// Key returns the natural key of the location.
func (l Location) Key() LocationKey {
	return LocationKey{Name: l.Name, State: deref(l.State)}
}

// ProductRef is a product embedded inside a fact entry. The model sometimes
// returns something other than an object here (a bare name, a null); those
// entries are kept parseable and flagged so the loader can skip them with a
// warning instead of aborting the whole run.
type ProductRef struct {
	Product *Product
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.Product = nil
		return nil
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		// Not a structured product object. Leave the reference empty.
		r.Product = nil
		return nil
	}
	r.Product = &p
	return nil
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	if r.Product == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Product)
}

// Valid reports whether the reference carries a structured product.
func (r ProductRef) Valid() bool { return r.Product != nil }

// LocationRef is a location embedded inside a fact entry, with the same
// tolerance for malformed values as ProductRef.
type LocationRef struct {
	Location *Location
}

func (r *LocationRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.Location = nil
		return nil
	}
	var l Location
	if err := json.Unmarshal(data, &l); err != nil {
		r.Location = nil
		return nil
	}
	r.Location = &l
	return nil
}

func (r LocationRef) MarshalJSON() ([]byte, error) {
	if r.Location == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Location)
}

// Valid reports whether the reference carries a structured location.
func (r LocationRef) Valid() bool { return r.Location != nil }

// Price is one observed price quote.
type Price struct {
	Product   ProductRef  `json:"produto"`
	Location  LocationRef `json:"local"`
	Date      string      `json:"data"`
	PriceType *string     `json:"tipo_preco"`
	Modality  string      `json:"modalidade"`
	Source    string      `json:"fonte"`
	Currency  string      `json:"moeda"`
	MinPrice  *float64    `json:"preco_min"`
	MaxPrice  *float64    `json:"preco_max"`
	Variation *float64    `json:"variacao"`
	VarSymbol string      `json:"simbolo_var"`
}

// Freight is a road or sea freight cost observation.
type Freight struct {
	Mode    string      `json:"tipo"`
	Origin  LocationRef `json:"origem"`
	Dest    LocationRef `json:"destino"`
	Date    string      `json:"data"`
	CostUSD *float64    `json:"custo_usd"`
	CostBRL *float64    `json:"custo_brl"`
}

// BarterRatio is the quantity of product a unit of crop buys.
type BarterRatio struct {
	Crop      string     `json:"cultura"`
	Product   ProductRef `json:"produto"`
	State     string     `json:"estado"`
	Date      string     `json:"data"`
	CropPrice *float64   `json:"preco_cultura"`
	Ratio     *float64   `json:"barter_ratio"`
	Index     *float64   `json:"barter_index"`
}

// ExchangeRate is the USD/BRL rate for one date.
type ExchangeRate struct {
	Date   string   `json:"data"`
	USDBRL *float64 `json:"usd_brl"`
}

// PortCost is the storage/demurrage cost snapshot for one port.
type PortCost struct {
	Port      string   `json:"porto"`
	Date      string   `json:"data"`
	Storage   *float64 `json:"armazenagem"`
	Demurrage *float64 `json:"demurrage"`
	Total     *float64 `json:"custo_total"`
}

// ReportData is the seven-list record set produced per chunk and, after
// merging, for the whole report.
type ReportData struct {
	Products      []Product      `json:"produtos"`
	Locations     []Location     `json:"locais"`
	Prices        []Price        `json:"precos"`
	Freights      []Freight      `json:"fretes"`
	BarterRatios  []BarterRatio  `json:"barter_ratios"`
	ExchangeRates []ExchangeRate `json:"cambio"`
	PortCosts     []PortCost     `json:"custos_portos"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr is a convenience for building records in code (manual entry, tests).
func StrPtr(s string) *string { return &s }

// FloatPtr is the float64 counterpart of StrPtr.
func FloatPtr(f float64) *float64 { return &f }
