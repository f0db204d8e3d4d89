package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdRange(t *testing.T) {
	r, err := NewIdRange(3, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), r.Min())
	assert.Equal(t, uint32(7), r.Max())
	assert.Equal(t, uint64(5), r.Count())

	_, err = NewIdRange(8, 7)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestIdRangeContains(t *testing.T) {
	r, _ := NewIdRange(10, 20)
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.True(t, r.Contains(15))
	assert.False(t, r.Contains(9))
	assert.False(t, r.Contains(21))
}

func TestIdRangeOverlaps(t *testing.T) {
	a, _ := NewIdRange(0, 10)
	b, _ := NewIdRange(10, 20)
	c, _ := NewIdRange(11, 20)
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
}

func TestIdRangeSetMax(t *testing.T) {
	a, _ := NewIdRange(0, 10)
	grown, err := a.SetMax(20)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), grown.Max())

	_, err = a.SetMax(0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestIdRangeLess(t *testing.T) {
	a, _ := NewIdRange(0, 5)
	b, _ := NewIdRange(0, 10)
	c, _ := NewIdRange(1, 2)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Less(c))
}
