// Package merge combines per-chunk extraction results into the unified
// record set loaded into the database.
package merge

import (
	"reflect"

	"morroverde/pkg/core/extract"
)

// Combine folds an ordered sequence of per-chunk results into one ReportData.
//
// Products and locations are deduplicated by natural key: an item from a
// later chunk is appended only if its key has not been seen yet. Fact lists
// (prices, freights, barter ratios, exchange rates, port costs) only suppress
// exact duplicates: repeated observations that differ in any field are
// genuine data and are all kept. Order of first appearance is preserved.
func Combine(parts ...*extract.ReportData) *extract.ReportData {
	out := &extract.ReportData{
		Products:      []extract.Product{},
		Locations:     []extract.Location{},
		Prices:        []extract.Price{},
		Freights:      []extract.Freight{},
		BarterRatios:  []extract.BarterRatio{},
		ExchangeRates: []extract.ExchangeRate{},
		PortCosts:     []extract.PortCost{},
	}

	seenProducts := make(map[extract.ProductKey]bool)
	seenLocations := make(map[extract.LocationKey]bool)

	for _, part := range parts {
		if part == nil {
			continue
		}
		for _, p := range part.Products {
			if !seenProducts[p.Key()] {
				seenProducts[p.Key()] = true
				out.Products = append(out.Products, p)
			}
		}
		for _, l := range part.Locations {
			if !seenLocations[l.Key()] {
				seenLocations[l.Key()] = true
				out.Locations = append(out.Locations, l)
			}
		}
		out.Prices = appendUnique(out.Prices, part.Prices)
		out.Freights = appendUnique(out.Freights, part.Freights)
		out.BarterRatios = appendUnique(out.BarterRatios, part.BarterRatios)
		out.ExchangeRates = appendUnique(out.ExchangeRates, part.ExchangeRates)
		out.PortCosts = appendUnique(out.PortCosts, part.PortCosts)
	}

	return out
}

// appendUnique appends items not already present by full equality. Entries
// carry pointer fields, so equality is structural rather than ==.
func appendUnique[T any](dst []T, src []T) []T {
	for _, item := range src {
		duplicate := false
		for i := range dst {
			if reflect.DeepEqual(dst[i], item) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			dst = append(dst, item)
		}
	}
	return dst
}
