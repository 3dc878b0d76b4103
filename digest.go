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

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// Span pairs an access point with the compressed byte range it covers,
// [Start, End) within the gzip file. It is the unit SpanDigests verifies.
type Span struct {
	Index int64
	Start int64
	End   int64
}

// Spans partitions the compressed bytes of a file of size fileSize into the
// ranges covered by each of idx's access points, in ascending order. The
// final span runs to fileSize.
func Spans(idx *Index, fileSize int64) []Span {
	n := idx.Len()
	spans := make([]Span, n)
	for i := 0; i < n; i++ {
		start := idx.At(i).In
		end := fileSize
		if i+1 < n {
			end = idx.At(i + 1).In
		}
		spans[i] = Span{Index: int64(i), Start: start, End: end}
	}
	return spans
}

// SpanDigests computes a content digest over each compressed byte range
// idx's access points cover in the file at path, one digest per span in
// index order. It is a verification aid only: digests are never persisted
// in the sidecar index, so the on-disk format stays exactly the layout C4
// defines.
//
// Digests are computed concurrently, bounded by GOMAXPROCS, since each span
// read is independent and I/O-bound.
func SpanDigests(ctx context.Context, path string, idx *Index) ([]digest.Digest, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, newError(OpenError, err, "statting %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(OpenError, err, "opening %s", path)
	}
	defer f.Close()

	spans := Spans(idx, st.Size())
	digests := make([]digest.Digest, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, sp := range spans {
		sp := sp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			section := io.NewSectionReader(f, sp.Start, sp.End-sp.Start)
			d, err := digest.FromReader(section)
			if err != nil {
				return newError(Read, err, "digesting span %d", sp.Index)
			}
			digests[sp.Index] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// WriteSpanDigestsFile records digests (one opencontainers/go-digest string
// per line, in span order) to path, a separate manifest alongside the
// sidecar index used only to detect tampering after the fact; the sidecar
// index itself never carries digests.
func WriteSpanDigestsFile(path string, digests []digest.Digest) error {
	f, err := os.Create(path)
	if err != nil {
		return newError(OpenError, err, "creating %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, d := range digests {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return newError(Write, err, "writing digest manifest")
		}
	}
	return w.Flush()
}

// ReadSpanDigestsFile reads a manifest written by WriteSpanDigestsFile.
func ReadSpanDigestsFile(path string) ([]digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(OpenError, err, "opening %s", path)
	}
	defer f.Close()

	var digests []digest.Digest
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		d, err := digest.Parse(sc.Text())
		if err != nil {
			return nil, newError(Data, err, "parsing digest manifest")
		}
		digests = append(digests, d)
	}
	if err := sc.Err(); err != nil {
		return nil, newError(Read, err, "reading digest manifest")
	}
	return digests, nil
}

// VerifySpanDigests recomputes SpanDigests for path/idx and compares them
// against want, returning the index of the first mismatching span, or -1 if
// all spans match. An unequal span count is reported as a Data error before
// any digest is computed.
func VerifySpanDigests(ctx context.Context, path string, idx *Index, want []digest.Digest) (int, error) {
	if idx.Len() != len(want) {
		return -1, newError(Data, nil, "span count mismatch: index has %d, want %d", idx.Len(), len(want))
	}
	got, err := SpanDigests(ctx, path, idx)
	if err != nil {
		return -1, err
	}
	for i := range got {
		if got[i] != want[i] {
			return i, nil
		}
	}
	return -1, nil
}
