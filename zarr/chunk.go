package zarr

import (
	"strconv"
	"strings"
)

// GridShape returns the number of chunks in each dimension, i.e.
// ceil(shape[d] / chunks[d]).
func GridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for d := range shape {
		grid[d] = (shape[d] + chunks[d] - 1) / chunks[d]
	}
	return grid
}

// ChunkKey builds the storage key for the chunk at the given grid
// coordinates, e.g. coords [1, 4] with separator "." gives "1.4".
func ChunkKey(coords []int, separator string) string {
	if len(coords) == 0 {
		return "0"
	}
	var sb strings.Builder
	for d, c := range coords {
		if d > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= shape[d]
	}
	return strides
}
