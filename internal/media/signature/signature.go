/*
Package signature implements perceptual-signature distance and grouping
(spec.md §4.2, §4.5). The signature-extraction algorithm itself is an
external collaborator per spec.md's Non-goals ("the external image-signature
vector library") — only its interface contract is specified here; the
grouping and distance logic, which IS in scope, is grounded directly in the
original implementation's util::get_sig_distance and
service::group_elements_by_signature (backend/src/util.rs,
backend/src/service.rs).
*/
package signature

import (
	"math"

	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// Vector is a fixed-length perceptual fingerprint (spec.md §3).
type Vector = [constants.SignatureLength]int8

// Distance returns the Euclidean distance between two signatures, mirroring
// util::get_sig_distance exactly (sum of squared component differences,
// square root).
func Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Meta is one element's signature plus its current group assignment, the
// input to [Group].
type Meta struct {
	ElementID int64
	Vector    Vector
	GroupID   *int64
}

// Assignment is one element's newly-decided group id, for the caller to
// persist via storage.Store.AddToGroup.
type Assignment struct {
	GroupID    int64
	ElementIDs []int64
}
