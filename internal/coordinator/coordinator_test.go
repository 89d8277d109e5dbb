package coordinator_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikvoid/nndb-core/internal/coordinator"
)

func TestProcedure_BeginIsExclusive(t *testing.T) {
	p := coordinator.New(prometheus.NewRegistry(), "test_proc")

	guard, ok := p.Begin()
	require.True(t, ok)
	assert.True(t, p.State().Running)

	_, ok = p.Begin()
	assert.False(t, ok, "a second Begin while running must be a no-op")

	guard.Release()
	assert.False(t, p.State().Running)

	_, ok = p.Begin()
	assert.True(t, ok, "Begin must succeed again after Release")
}

func TestProcedure_IncrementSaturatesAtTotal(t *testing.T) {
	p := coordinator.New(prometheus.NewRegistry(), "test_proc_2")
	guard, ok := p.Begin()
	require.True(t, ok)
	defer guard.Release()

	guard.SetTotal(2)
	guard.Increment()
	guard.Increment()
	guard.Increment()

	assert.Equal(t, uint32(2), p.State().Done)
	assert.Equal(t, uint32(2), p.State().Total)
}
