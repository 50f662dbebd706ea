package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		spec    string
		inside  []float64
		outside []float64
		str     string
	}{
		{"10", []float64{0, 5, 10}, []float64{-1, 11}, "10"},
		{"10:", []float64{10, 1000}, []float64{9}, "10:"},
		{"~:10", []float64{-50, 10}, []float64{11}, "~:10"},
		{"10:20", []float64{10, 15, 20}, []float64{9, 21}, "10:20"},
		{"@10:20", []float64{9, 21}, []float64{10, 20}, "@10:20"},
		{"0:", []float64{0, 5}, []float64{-1}, "0:"},
		{"0:3", []float64{0, 3}, []float64{4}, "3"},
		{" 2.5 ", []float64{2.5}, []float64{2.6}, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			r, err := ParseRange(tt.spec)
			require.NoError(t, err)
			for _, v := range tt.inside {
				assert.True(t, r.Match(v), "%v should match", v)
			}
			for _, v := range tt.outside {
				assert.False(t, r.Match(v), "%v should not match", v)
			}
			assert.Equal(t, tt.str, r.String())
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, spec := range []string{"", "@", "abc", "1:x", "20:10", "~"} {
		_, err := ParseRange(spec)
		assert.Error(t, err, spec)
	}
}
