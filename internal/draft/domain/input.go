package domain

import (
	"strconv"
	"strings"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
)

// Input parses the typed text into calculator input. Anything that does not
// start with a number counts as 0. Precursor rows are passed through in order.
func (d FormDraft) Input() emissiondomain.CalculationInput {
	in := emissiondomain.CalculationInput{
		CNCode:        strings.TrimSpace(d.CNCode),
		ProductionQty: ParseNumber(d.ProductionQty),
		Electricity:   ParseNumber(d.Electricity),
		Diesel:        ParseNumber(d.Diesel),
		Coal:          ParseNumber(d.Coal),
		Precursors:    make([]emissiondomain.PrecursorInput, 0, len(d.Precursors)),
	}
	for _, row := range d.Precursors {
		in.Precursors = append(in.Precursors, emissiondomain.PrecursorInput{
			Type: row.Type,
			Qty:  ParseNumber(row.Qty),
		})
	}
	return in
}

// ParseNumber reads the longest leading decimal number of s, "12.5t" gives
// 12.5. Text without a leading number gives 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := numberPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

func numberPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := digitsAt(s, i)
	i += intDigits
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = digitsAt(s, i+1)
		if intDigits > 0 || fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if n := digitsAt(s, j); n > 0 {
			i = j + n
		}
	}
	return i
}

func digitsAt(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] >= '0' && s[i+n] <= '9' {
		n++
	}
	return n
}
