package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrecursorMaterialsOrder(t *testing.T) {
	f := DefaultFactors()
	assert.Equal(t, []string{"Iron Ore", "Scrap", "Aluminum", "Coke"}, f.PrecursorMaterials())

	f.Precursors["Manganese"] = 1.2
	f.Precursors["Limestone"] = 0.44
	assert.Equal(t, []string{"Iron Ore", "Scrap", "Aluminum", "Coke", "Limestone", "Manganese"}, f.PrecursorMaterials())
}

func TestCloneIsDeep(t *testing.T) {
	f := DefaultFactors()
	c := f.Clone()
	c.Precursors["Coke"] = 99
	assert.Equal(t, 3.6, f.Precursors["Coke"])
}

func TestPrecursorFactorUnknown(t *testing.T) {
	_, ok := DefaultFactors().PrecursorFactor("")
	assert.False(t, ok)
	_, ok = DefaultFactors().PrecursorFactor("iron ore")
	assert.False(t, ok)
	v, ok := DefaultFactors().PrecursorFactor("Scrap")
	assert.True(t, ok)
	assert.Equal(t, 0.9, v)
}
