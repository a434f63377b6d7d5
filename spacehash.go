package arena

import "math"

type HashValue uint

func hashFunc(x, y, n HashValue) HashValue {
	return (x*1640531513 ^ y*2654435789) % n
}

// SpaceHash buckets ids into a fixed size table of grid cells.
// Distinct cells may hash to the same bin, which only widens a query.
type SpaceHash struct {
	celldim  float64
	numCells int

	table [][]BodyID
}

func NewSpaceHash(celldim float64, numCells int) *SpaceHash {
	return &SpaceHash{
		celldim:  celldim,
		numCells: numCells,
		table:    make([][]BodyID, numCells),
	}
}

// Bins appends the distinct table slots covering bb to dst.
func (hash *SpaceHash) Bins(bb BB, dst []int) []int {
	dim := hash.celldim

	// TODO: chipmunk said floor is slow, use custom floor
	l := math.Floor(bb.L / dim)
	r := math.Floor(bb.R / dim)
	b := math.Floor(bb.B / dim)
	t := math.Floor(bb.T / dim)

	n := HashValue(hash.numCells)
	if (r-l+1)*(t-b+1) >= float64(hash.numCells) {
		for i := 0; i < hash.numCells; i++ {
			dst = append(dst, i)
		}
		return dst
	}

	for i := l; i <= r; i++ {
		for j := b; j <= t; j++ {
			idx := int(hashFunc(HashValue(int(i)), HashValue(int(j)), n))
			if !containsBin(dst, idx) {
				dst = append(dst, idx)
			}
		}
	}
	return dst
}

func containsBin(bins []int, idx int) bool {
	for _, b := range bins {
		if b == idx {
			return true
		}
	}
	return false
}

// Insert files id under every bin covering bb and returns those bins.
func (hash *SpaceHash) Insert(id BodyID, bb BB) []int {
	bins := hash.Bins(bb, nil)
	for _, idx := range bins {
		hash.table[idx] = append(hash.table[idx], id)
	}
	return bins
}

func (hash *SpaceHash) Remove(id BodyID, bins []int) {
	for _, idx := range bins {
		bin := hash.table[idx]
		for i, other := range bin {
			if other == id {
				last := len(bin) - 1
				bin[i] = bin[last]
				hash.table[idx] = bin[:last]
				break
			}
		}
	}
}

// Query visits every id filed under bins. An id may be visited once per
// shared bin; callers dedupe.
func (hash *SpaceHash) Query(bins []int, f func(id BodyID)) {
	for _, idx := range bins {
		for _, id := range hash.table[idx] {
			f(id)
		}
	}
}

func (hash *SpaceHash) Count() int {
	count := 0
	for _, bin := range hash.table {
		count += len(bin)
	}
	return count
}
