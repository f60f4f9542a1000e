// Package vectorstore holds the VectorIndex backends and what they share.
package vectorstore

import (
	"fmt"
	"math"
	"strings"

	"clm-paralegal/internal/domain"
)

// ChunkID renders the stable id of the n-th chunk ever added to collection.
func ChunkID(collection string, n int64) string {
	return fmt.Sprintf("%s:%d", collection, n)
}

// ValidateCollection rejects names that cannot be used as a namespace.
func ValidateCollection(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/ ") {
		return fmt.Errorf("collection %q: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
