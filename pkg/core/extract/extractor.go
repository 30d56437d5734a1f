package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"morroverde/pkg/core/llm"
)

// DefaultOrigin is assumed for products quoted with no origin; the report is
// domestic, so unstated origin means the home market.
const DefaultOrigin = "Brasil"

// symbolVariation maps the report's variation glyphs to the default numeric
// magnitude used when the model found no explicit value.
var symbolVariation = map[string]float64{
	"▲": +5.0,
	"▼": -5.0,
	"=": 0.0,
}

// priceTypeByKind infers a price type from the kind of the quoted location.
var priceTypeByKind = map[string]string{
	"porto":  "FOB",
	"estado": "CIF",
	"cidade": "CIF",
	"pais":   "FOB",
}

// fallbackPriceType covers locations of unknown kind.
const fallbackPriceType = "CIF"

// Extractor sends one chunk of report text to the model and parses the reply
// into a normalized ReportData.
type Extractor struct {
	provider llm.Provider
}

// NewExtractor creates an extractor backed by the given provider.
func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract processes a single chunk. It is purely functional given the chunk
// text and the model's reply; a failure here is per-chunk, the caller skips
// the chunk and continues with the rest of the report.
func (e *Extractor) Extract(ctx context.Context, chunk string) (*ReportData, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("no model provider configured")
	}

	reply, err := e.provider.Generate(ctx, BuildPrompt(chunk))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	data, err := Parse(reply)
	if err != nil {
		return nil, err
	}

	Normalize(data)
	return data, nil
}

// Parse decodes a model reply into ReportData. Markdown code fences are
// stripped first. If decoding fails the text is cut at the last closing brace
// and decoded once more; replies truncated mid-object at the model's output
// limit usually recover this way. When the recovery pass also fails the
// original parse error is returned.
func Parse(reply string) (*ReportData, error) {
	content := StripFences(reply)

	var data ReportData
	err := json.Unmarshal([]byte(content), &data)
	if err == nil {
		return &data, nil
	}

	last := strings.LastIndex(content, "}")
	if last == -1 {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	var recovered ReportData
	if rerr := json.Unmarshal([]byte(content[:last+1]), &recovered); rerr != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	return &recovered, nil
}

// StripFences removes markdown code-fence lines from a model reply.
func StripFences(reply string) string {
	content := strings.TrimSpace(reply)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Normalize applies the deterministic post-extraction rules to one chunk's
// result, in place:
//
//  1. products with no origin get DefaultOrigin
//  2. products are deduplicated by natural key, last write wins
//  3. locations are deduplicated by (name, state), last write wins
//  4. prices with no price type get one inferred from the location kind
//  5. prices with no variation but a known symbol get the symbol's default
func Normalize(data *ReportData) {
	for i := range data.Products {
		defaultOrigin(&data.Products[i])
	}
	// Product references embedded in fact entries get the same default, so
	// the loader resolves them to the same row as the top-level product.
	for i := range data.Prices {
		if data.Prices[i].Product.Valid() {
			defaultOrigin(data.Prices[i].Product.Product)
		}
	}
	for i := range data.BarterRatios {
		if data.BarterRatios[i].Product.Valid() {
			defaultOrigin(data.BarterRatios[i].Product.Product)
		}
	}

	data.Products = dedupProducts(data.Products)
	data.Locations = dedupLocations(data.Locations)

	for i := range data.Prices {
		p := &data.Prices[i]
		if p.PriceType == nil {
			inferred := fallbackPriceType
			if p.Location.Valid() {
				if t, ok := priceTypeByKind[p.Location.Location.Kind]; ok {
					inferred = t
				}
			}
			p.PriceType = &inferred
		}
		if p.Variation == nil {
			if v, ok := symbolVariation[p.VarSymbol]; ok {
				value := v
				p.Variation = &value
			}
		}
	}
}

func defaultOrigin(p *Product) {
	if p.Origin == nil {
		origin := DefaultOrigin
		p.Origin = &origin
	}
}

func dedupProducts(products []Product) []Product {
	seen := make(map[ProductKey]int, len(products))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if i, ok := seen[p.Key()]; ok {
			out[i] = p
			continue
		}
		seen[p.Key()] = len(out)
		out = append(out, p)
	}
	return out
}

func dedupLocations(locations []Location) []Location {
	seen := make(map[LocationKey]int, len(locations))
	out := make([]Location, 0, len(locations))
	for _, l := range locations {
		if i, ok := seen[l.Key()]; ok {
			out[i] = l
			continue
		}
		seen[l.Key()] = len(out)
		out = append(out, l)
	}
	return out
}
