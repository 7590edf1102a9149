package attribution

import (
	"math/bits"
	"sync"
)

// Reduce combines oldest-first partials into one. The slice is split into
// contiguous halves recursively and every split is combined as
// Combine(left, right), so commit order is never interleaved. Up to
// parallelism subtrees are reduced concurrently. The inputs are consumed.
func Reduce(partials []*Partial, parallelism int) *Partial {
	return reduceRange(partials, spawnDepth(parallelism))
}

// Fold combines oldest-first partials sequentially from the left.
func Fold(partials []*Partial) *Partial {
	acc := NewPartial()

	for _, p := range partials {
		acc = Combine(acc, p)
	}

	return acc
}

func reduceRange(partials []*Partial, depth int) *Partial {
	switch len(partials) {
	case 0:
		return NewPartial()
	case 1:
		return partials[0]
	}

	mid := len(partials) / 2

	var left, right *Partial

	if depth <= 0 {
		left = reduceRange(partials[:mid], 0)
		right = reduceRange(partials[mid:], 0)

		return Combine(left, right)
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		left = reduceRange(partials[:mid], depth-1)
	}()

	right = reduceRange(partials[mid:], depth-1)

	wg.Wait()

	return Combine(left, right)
}

// spawnDepth is the number of tree levels that fork a goroutine so that about
// parallelism subtrees run at once.
func spawnDepth(parallelism int) int {
	if parallelism <= 1 {
		return 0
	}

	return bits.Len(uint(parallelism - 1))
}
