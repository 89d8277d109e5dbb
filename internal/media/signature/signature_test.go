package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/internal/media/signature"
)

func TestDistance_Identical(t *testing.T) {
	var a signature.Vector
	assert.Equal(t, 0.0, signature.Distance(a, a))
}

func TestDistance_Symmetric(t *testing.T) {
	var a, b signature.Vector
	a[0], a[1] = 10, -5
	b[0], b[1] = 3, 8
	assert.Equal(t, signature.Distance(a, b), signature.Distance(b, a))
}

func TestGroup_NearNeighborsShareGroup(t *testing.T) {
	var near1, near2, far signature.Vector
	near1[0] = 0
	near2[0] = 1
	far[0] = 127

	all := []signature.Meta{
		{ElementID: 1, Vector: near1},
		{ElementID: 2, Vector: near2},
		{ElementID: 3, Vector: far},
	}

	assignments := signature.Group(all, 1, nil)

	assert.Len(t, assignments, 1)
	assert.ElementsMatch(t, []int64{1, 2}, assignments[0].ElementIDs)
}

func TestGroup_NoNeighborsYieldsNoAssignments(t *testing.T) {
	var a, b signature.Vector
	a[0] = 0
	b[0] = 100

	assignments := signature.Group([]signature.Meta{
		{ElementID: 1, Vector: a},
		{ElementID: 2, Vector: b},
	}, 1, nil)

	assert.Empty(t, assignments)
}
