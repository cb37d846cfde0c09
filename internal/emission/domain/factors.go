package domain

import "sort"

// FactorTable holds the conversion factors used by the calculator.
// Fuel and grid factors are tCO2e per thousand input units (MWh, kL, t);
// precursor factors are tCO2e per tonne of material.
type FactorTable struct {
	GridFactor   float64            `json:"grid_factor"`
	DieselFactor float64            `json:"diesel_factor"`
	CoalFactor   float64            `json:"coal_factor"`
	Precursors   map[string]float64 `json:"precursors"`
}

const (
	MaterialIronOre  = "Iron Ore"
	MaterialScrap    = "Scrap"
	MaterialAluminum = "Aluminum"
	MaterialCoke     = "Coke"
)

// materialOrder is the order materials are offered in the precursor picker.
var materialOrder = []string{MaterialIronOre, MaterialScrap, MaterialAluminum, MaterialCoke}

// DefaultFactors returns the January 2026 factor set.
func DefaultFactors() FactorTable {
	return FactorTable{
		GridFactor:   0.715, // India CEA 2026
		DieselFactor: 3.16,
		CoalFactor:   2.5,
		Precursors: map[string]float64{
			MaterialIronOre:  0.8,
			MaterialScrap:    0.9,
			MaterialAluminum: 0.4,
			MaterialCoke:     3.6,
		},
	}
}

// PrecursorFactor reports the factor for a material and whether it is known.
func (f FactorTable) PrecursorFactor(material string) (float64, bool) {
	if material == "" {
		return 0, false
	}
	v, ok := f.Precursors[material]
	return v, ok
}

// PrecursorMaterials lists the materials of the table, known materials first
// in picker order, then any configured extras sorted by name.
func (f FactorTable) PrecursorMaterials() []string {
	out := make([]string, 0, len(f.Precursors))
	seen := make(map[string]struct{}, len(f.Precursors))
	for _, name := range materialOrder {
		if _, ok := f.Precursors[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	extras := make([]string, 0)
	for name := range f.Precursors {
		if _, ok := seen[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}

// Clone returns a deep copy so callers may not mutate a shared table.
func (f FactorTable) Clone() FactorTable {
	precursors := make(map[string]float64, len(f.Precursors))
	for k, v := range f.Precursors {
		precursors[k] = v
	}
	f.Precursors = precursors
	return f
}

// CBAMGoods maps a two-digit CN prefix to its CBAM product category.
var CBAMGoods = map[string]string{
	"72": "Iron & Steel",
	"76": "Aluminum",
}
