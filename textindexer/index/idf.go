package index

import "math"

// idfSmoothing keeps the ratio finite for words no document contains.
const idfSmoothing = 1e-4

// IDF returns the inverse document frequency log10(total / (df + 1e-4)) of a
// word found in df of total documents. A word present in every document
// scores about 0.
func IDF(total, df int) float64 {
	return math.Log10(float64(total) / (float64(df) + idfSmoothing))
}
