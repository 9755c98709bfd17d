package sizes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   Size
		wantOK bool
	}{
		{name: "PlainLowerX", input: "15x20", want: Size{15, 20}, wantOK: true},
		{name: "UpperXWithSpaces", input: "30 X 40", want: Size{30, 40}, wantOK: true},
		{name: "Asterisk", input: "12*18", want: Size{12, 18}, wantOK: true},
		{name: "MultiplicationSign", input: "23 × 36", want: Size{23, 36}, wantOK: true},
		{name: "SurroundingProse", input: "A4 210x297 80gsm", want: Size{210, 297}, wantOK: true},
		{name: "Decimals", input: "10.5x14.8 cm", want: Size{10.5, 14.8}, wantOK: true},
		{name: "FirstPairWins", input: "18x23 cut from 25x36", want: Size{18, 23}, wantOK: true},
		{name: "OrderPreserved", input: "40x30", want: Size{40, 30}, wantOK: true},
		{name: "LeadingWhitespace", input: "   20x30   ", want: Size{20, 30}, wantOK: true},
		{name: "NoNumbers", input: "no numbers here", wantOK: false},
		{name: "SingleNumber", input: "Maplitho 70", wantOK: false},
		{name: "Empty", input: "", wantOK: false},
		{name: "SeparatorOnly", input: "x", wantOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Parse(tc.input)
			require.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				assert.Equal(t, Size{}, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	first, ok1 := Parse("Art card 25x36 300gsm")
	second, ok2 := Parse("Art card 25x36 300gsm")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestSizeHelpers(t *testing.T) {
	t.Parallel()

	s := Size{Width: 10.5, Height: 4}
	assert.InDelta(t, 42.0, s.Area(), 1e-9)
	assert.True(t, s.Positive())
	assert.Equal(t, "10.5x4", s.String())
	assert.False(t, Size{Width: 0, Height: 4}.Positive())
}
