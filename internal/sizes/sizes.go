// Package sizes extracts width/height pairs from loosely formatted labels such
// as "A4 210x297 80gsm" or "30 X 40".
package sizes

import (
	"regexp"
	"strconv"
	"strings"
)

// Size is a width/height pair in caller-defined units. No unit conversion is
// performed anywhere in this module.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns Width*Height.
func (s Size) Area() float64 {
	return s.Width * s.Height
}

// Positive reports whether both dimensions are strictly positive.
func (s Size) Positive() bool {
	return s.Width > 0 && s.Height > 0
}

// String renders the size in the label convention, e.g. "15x20" or "10.5x14.8".
func (s Size) String() string {
	return formatNumber(s.Width) + "x" + formatNumber(s.Height)
}

var (
	separatorReplacer = strings.NewReplacer("×", "x", "*", "x")
	sizePattern       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)`)
)

// Parse locates the first "<number><sep><number>" pair in text, where sep is
// one of x, X, * or ×, optionally surrounded by whitespace. Numbers keep the
// order they appear in. ok is false when text holds no such pair.
func Parse(text string) (size Size, ok bool) {
	normalized := separatorReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))

	match := sizePattern.FindStringSubmatch(normalized)
	if match == nil {
		return Size{}, false
	}

	width, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Size{}, false
	}
	height, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Size{}, false
	}

	return Size{Width: width, Height: height}, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
