// Package domain holds the persisted calculator form and its pure edits.
package domain

import (
	"slices"
	"unicode/utf8"
)

// DefaultSlot is the storage key used by the single-user calculator.
const DefaultSlot = "cbamCalculatorState"

// PrecursorDraft is one precursor row as typed.
type PrecursorDraft struct {
	Type string `json:"type"`
	Qty  string `json:"qty"`
}

// FormDraft is the raw calculator form. Values are kept as the text the user
// typed so a save/load round trip is exact.
type FormDraft struct {
	CNCode          string           `json:"cnCode"`
	ProductionQty   string           `json:"productionQty"`
	Electricity     string           `json:"electricity"`
	Diesel          string           `json:"diesel"`
	Coal            string           `json:"coal"`
	PrecursorActive bool             `json:"precursorActive"`
	Precursors      []PrecursorDraft `json:"precursors"`
}

// Field names accepted by WithField.
const (
	FieldCNCode        = "cnCode"
	FieldProductionQty = "productionQty"
	FieldElectricity   = "electricity"
	FieldDiesel        = "diesel"
	FieldCoal          = "coal"
)

// Empty returns the blank form.
func Empty() FormDraft {
	return FormDraft{Precursors: []PrecursorDraft{}}
}

// Clone returns a draft that shares no row storage with d.
func (d FormDraft) Clone() FormDraft {
	if d.Precursors == nil {
		d.Precursors = []PrecursorDraft{}
	} else {
		d.Precursors = slices.Clone(d.Precursors)
	}
	return d
}

// WithField sets one scalar field by name. Values must be valid UTF-8 so
// they survive the JSON encoding of saved drafts.
func (d FormDraft) WithField(name, value string) (FormDraft, error) {
	if !utf8.ValidString(value) {
		return d, ErrInvalidText
	}
	out := d.Clone()
	switch name {
	case FieldCNCode:
		out.CNCode = value
	case FieldProductionQty:
		out.ProductionQty = value
	case FieldElectricity:
		out.Electricity = value
	case FieldDiesel:
		out.Diesel = value
	case FieldCoal:
		out.Coal = value
	default:
		return d, ErrUnknownField
	}
	return out, nil
}

// WithPrecursorSection expands or collapses the precursor section. Rows are
// kept when collapsing.
func (d FormDraft) WithPrecursorSection(active bool) FormDraft {
	out := d.Clone()
	out.PrecursorActive = active
	return out
}

// WithPrecursorAdded appends a blank row at the end.
func (d FormDraft) WithPrecursorAdded() FormDraft {
	out := d.Clone()
	out.Precursors = append(out.Precursors, PrecursorDraft{})
	return out
}

// WithPrecursorRemoved drops row i, keeping the order of the rest.
func (d FormDraft) WithPrecursorRemoved(i int) (FormDraft, error) {
	if i < 0 || i >= len(d.Precursors) {
		return d, ErrRowOutOfRange
	}
	out := d.Clone()
	out.Precursors = slices.Delete(out.Precursors, i, i+1)
	return out, nil
}

// WithPrecursorUpdated replaces row i.
func (d FormDraft) WithPrecursorUpdated(i int, row PrecursorDraft) (FormDraft, error) {
	if i < 0 || i >= len(d.Precursors) {
		return d, ErrRowOutOfRange
	}
	if !utf8.ValidString(row.Type) || !utf8.ValidString(row.Qty) {
		return d, ErrInvalidText
	}
	out := d.Clone()
	out.Precursors[i] = row
	return out, nil
}
