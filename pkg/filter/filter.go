// Package filter provides peak filtering and transformation functions
package filter

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks above this % of base peak (0 = no cutoff)
}

// Enabled reports whether any filter is configured.
func (c *Config) Enabled() bool {
	return c.TopN > 0 || c.IntensityCutoff > 0
}

// Apply applies all configured filters and returns the surviving peaks
// sorted by m/z. The input slice is not modified.
func (c *Config) Apply(peaks []core.Peak) []core.Peak {
	out := make([]core.Peak, len(peaks))
	copy(out, peaks)

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		out = c.filterByIntensity(out)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		out = c.filterTopN(out)
	}

	// Ensure peaks are sorted after all filtering
	core.SortPeaks(out)
	return out
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(peaks []core.Peak) []core.Peak {
	if len(peaks) == 0 {
		return peaks
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity(peaks)

	var filtered []core.Peak
	for _, peak := range peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	return filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(peaks []core.Peak) []core.Peak {
	if len(peaks) <= c.TopN {
		return peaks
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})
	return peaks[:c.TopN]
}

// NormalizeRelative rescales intensities to the rounded percentage of the
// most intense peak and drops peaks that end up at zero or below.
func NormalizeRelative(peaks []core.Peak) []core.Peak {
	if len(peaks) == 0 {
		return nil
	}
	maxInt := maxIntensity(peaks)
	if maxInt <= 0 {
		return nil
	}

	var out []core.Peak
	for _, peak := range peaks {
		norm := math.RoundToEven(peak.Intensity / maxInt * 100)
		if norm > 0 {
			out = append(out, core.Peak{MZ: peak.MZ, Intensity: norm})
		}
	}
	return out
}

func maxIntensity(peaks []core.Peak) float64 {
	intensities := make([]float64, len(peaks))
	for i, p := range peaks {
		intensities[i] = p.Intensity
	}
	return floats.Max(intensities)
}
