package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowOperationsReturnNewDrafts(t *testing.T) {
	d := Empty()
	d1 := d.WithPrecursorAdded().WithPrecursorAdded()
	assert.Empty(t, d.Precursors)
	require.Len(t, d1.Precursors, 2)

	d2, err := d1.WithPrecursorUpdated(1, PrecursorDraft{Type: "Coke", Qty: "3"})
	require.NoError(t, err)
	assert.Equal(t, PrecursorDraft{}, d1.Precursors[1])
	assert.Equal(t, PrecursorDraft{Type: "Coke", Qty: "3"}, d2.Precursors[1])

	d3, err := d2.WithPrecursorRemoved(0)
	require.NoError(t, err)
	assert.Len(t, d2.Precursors, 2)
	assert.Equal(t, []PrecursorDraft{{Type: "Coke", Qty: "3"}}, d3.Precursors)
}

func TestRowOperationsRange(t *testing.T) {
	d := Empty().WithPrecursorAdded()
	_, err := d.WithPrecursorRemoved(1)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = d.WithPrecursorUpdated(-1, PrecursorDraft{})
	assert.ErrorIs(t, err, ErrRowOutOfRange)
}

func TestWithField(t *testing.T) {
	d, err := Empty().WithField(FieldCNCode, "72031000")
	require.NoError(t, err)
	d, err = d.WithField(FieldCoal, "1000")
	require.NoError(t, err)
	assert.Equal(t, "72031000", d.CNCode)
	assert.Equal(t, "1000", d.Coal)

	_, err = d.WithField("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSectionToggleKeepsRows(t *testing.T) {
	d := Empty().WithPrecursorSection(true).WithPrecursorAdded()
	d = d.WithPrecursorSection(false)
	assert.False(t, d.PrecursorActive)
	assert.Len(t, d.Precursors, 1)
}

func TestEditsRejectInvalidUTF8(t *testing.T) {
	d := Empty().WithPrecursorAdded()

	_, err := d.WithField(FieldCNCode, "7203\xff")
	assert.ErrorIs(t, err, ErrInvalidText)
	_, err = d.WithPrecursorUpdated(0, PrecursorDraft{Type: "Co\xc3", Qty: "1"})
	assert.ErrorIs(t, err, ErrInvalidText)

	got, err := d.WithPrecursorUpdated(0, PrecursorDraft{Type: "Roheisen – Stahl", Qty: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Roheisen – Stahl", got.Precursors[0].Type)
}
