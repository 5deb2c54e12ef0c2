// Package lib holds small formatting helpers for the symbol table's dump
// view.
package lib

import "math"

// DigitWidth returns the number of decimal digits needed to print val,
// ignoring sign.
func DigitWidth(val int) int {
	if val < 0 {
		val = -val
	}
	if val == 0 {
		return 1
	}
	return int(math.Log10(float64(val))) + 1
}

// CalculateColumnWidth returns the width the widest string in values needs,
// at least min. Used to size box-drawn table columns so dumps with long
// identifiers don't truncate.
func CalculateColumnWidth(values []string, min int) int {
	w := min
	for _, v := range values {
		if len(v) > w {
			w = len(v)
		}
	}
	return w
}
