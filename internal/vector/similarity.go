// Package vector provides similarity helpers for embedding vectors.
package vector

import "math"

// MismatchScore is the similarity assigned to malformed vector pairs
// (differing lengths or zero norm). It sorts below any real cosine value.
const MismatchScore = -1

// Cosine returns the cosine similarity dot(a,b) / (||a|| * ||b||).
// If the vectors differ in length, either is empty, or either norm is zero,
// it returns MismatchScore instead of an error: malformed or legacy vectors
// must not crash retrieval, only rank last.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MismatchScore
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return MismatchScore
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// L2Norm returns the L2 norm of x.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
