package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatches_SplitsEvenly(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	batches := Batches(items, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5, 6}}, batches)
}

func TestBatches_LastBatchPartial(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	batches := Batches(items, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, batches)
}

func TestBatches_Empty(t *testing.T) {
	batches := Batches([]int{}, 10)
	assert.Empty(t, batches)
}

func TestBatches_SizeLargerThanInput(t *testing.T) {
	items := []string{"a", "b"}
	batches := Batches(items, 100)
	assert.Equal(t, [][]string{{"a", "b"}}, batches)
}
