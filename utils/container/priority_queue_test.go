package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
)

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.Push("far", 10)
	q.Push("near", 1)
	q.Heapify()
	q.HeapPush("mid", 5)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, "near", q.First())

	var got []string
	for q.Len() > 0 {
		v, _ := q.HeapPop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"near", "mid", "far"}, got)
}
