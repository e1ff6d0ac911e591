package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxPriceExponent bounds scientific notation so rescaling stays cheap.
const maxPriceExponent = 18

var (
	priceNoise  = regexp.MustCompile(`[$,\s]`)
	priceNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	half        = decimal.NewFromFloat(0.5)
	maxCents    = decimal.NewFromInt(math.MaxInt64)
	minCents    = decimal.NewFromInt(math.MinInt64)
)

// PriceDisplayToCents derives cents from a display price such as "$1,490".
// Trailing text after the number is ignored; halves round up. Empty or
// unparseable input yields nil, as does any amount whose cents do not fit
// in an int64.
func PriceDisplayToCents(display string) *int64 {
	cleaned := priceNoise.ReplaceAllString(display, "")
	match := priceNumber.FindStringSubmatch(cleaned)
	if match == nil || match[0] == "" {
		return nil
	}

	if exp := match[3]; exp != "" {
		n, err := strconv.Atoi(exp[1:])
		if err != nil || n > maxPriceExponent || n < -maxPriceExponent {
			return nil
		}
	}

	dollars, err := decimal.NewFromString(strings.TrimPrefix(match[0], "+"))
	if err != nil {
		return nil
	}

	rounded := dollars.Shift(2).Add(half).Floor()
	if rounded.GreaterThan(maxCents) || rounded.LessThan(minCents) {
		return nil
	}

	cents := rounded.IntPart()
	return &cents
}
