package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

func testPeaks() []core.Peak {
	return []core.Peak{
		{MZ: 100, Intensity: 50},
		{MZ: 200, Intensity: 1000},
		{MZ: 300, Intensity: 4},
		{MZ: 400, Intensity: 300},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		wantMZ []float64
	}{
		{"no filters", Config{}, []float64{100, 200, 300, 400}},
		{"intensity cutoff", Config{IntensityCutoff: 10}, []float64{200, 400}},
		{"top n", Config{TopN: 3}, []float64{100, 200, 400}},
		{"both", Config{TopN: 1, IntensityCutoff: 1}, []float64{200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testPeaks()
			out := tt.config.Apply(in)

			var got []float64
			for _, p := range out {
				got = append(got, p.MZ)
			}
			assert.Equal(t, tt.wantMZ, got)
			assert.Equal(t, testPeaks(), in, "input must not be modified")
		})
	}
}

func TestEnabled(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{TopN: 5}).Enabled())
	assert.True(t, (&Config{IntensityCutoff: 2}).Enabled())
}

func TestNormalizeRelative(t *testing.T) {
	got := NormalizeRelative(testPeaks())

	want := []core.Peak{
		{MZ: 100, Intensity: 5},
		{MZ: 200, Intensity: 100},
		{MZ: 400, Intensity: 30},
	}
	// 4/1000 rounds to 0 and is dropped
	assert.Equal(t, want, got)

	assert.Nil(t, NormalizeRelative(nil))
	assert.Nil(t, NormalizeRelative([]core.Peak{{MZ: 1, Intensity: 0}}))
}
