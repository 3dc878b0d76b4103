/*
   Copyright The Zsek Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package zsek

import "sort"

// SpanSize is the target spacing, in uncompressed bytes, between access
// points emitted by Build. It is not a hard guarantee: an entry is only
// captured at a DEFLATE block boundary, so actual spacing is SpanSize
// rounded up to the next block edge.
const SpanSize = 1 << 20 // 1 MiB

// initialCapacity is the number of AccessPoint slots preallocated by NewIndex,
// matching the doubling-growth starting size used by the original indexer.
const initialCapacity = 8

// Index is an ordered, gap-free list of AccessPoint entries covering a single
// gzip stream, sorted ascending by Out (and, equivalently, by In). The zero
// Index is not usable; construct one with NewIndex or ReadIndex.
type Index struct {
	points []AccessPoint
}

// NewIndex returns an empty Index ready to accept entries via add.
func NewIndex() *Index {
	return &Index{points: make([]AccessPoint, 0, initialCapacity)}
}

// Len reports the number of access points in the index.
func (idx *Index) Len() int {
	return len(idx.points)
}

// At returns the i'th access point. It panics if i is out of range, mirroring
// slice indexing semantics.
func (idx *Index) At(i int) AccessPoint {
	return idx.points[i]
}

// Points returns the index's entries as a read-only copy, sorted ascending
// by Out.
func (idx *Index) Points() []AccessPoint {
	out := make([]AccessPoint, len(idx.points))
	copy(out, idx.points)
	return out
}

// add appends p to the index. Callers (the indexer) are responsible for
// maintaining ascending order; add does not sort.
func (idx *Index) add(p AccessPoint) {
	idx.points = append(idx.points, p)
}

// Find returns the access point with the greatest Out not exceeding target,
// the closest restart point at or before the requested uncompressed offset.
// The second return value is false only when the index is empty or target
// precedes every entry's Out, in which case the zero AccessPoint is returned.
func (idx *Index) Find(target int64) (AccessPoint, bool) {
	n := len(idx.points)
	if n == 0 {
		return AccessPoint{}, false
	}
	// sort.Search finds the first index i for which points[i].Out > target;
	// the entry we want is the one just before it.
	i := sort.Search(n, func(i int) bool {
		return idx.points[i].Out > target
	})
	if i == 0 {
		return AccessPoint{}, false
	}
	return idx.points[i-1], true
}
