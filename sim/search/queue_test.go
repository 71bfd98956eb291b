package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenSet_DecreaseKeyReordersRecords(t *testing.T) {
	var q openSet
	a := &nodeRecord{}
	b := &nodeRecord{}
	c := &nodeRecord{}
	q.push(a, 5)
	q.push(b, 3)
	q.push(c, 4)

	// WHEN a is re-keyed below everything else
	q.push(a, 1)

	// THEN it pops first and is not duplicated
	assert.Equal(t, 3, q.Len())
	assert.Same(t, a, q.popMin())
	assert.Same(t, b, q.popMin())
	assert.Same(t, c, q.popMin())
	assert.Equal(t, 0, q.Len())
}
