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
	"io"
	"os"

	"zsek/internal/inflate"
)

// Reader serves arbitrary-offset reads of a gzip stream's uncompressed
// content, restarting raw DEFLATE decoding from the nearest preceding access
// point in an Index rather than replaying the stream from the start.
//
// Reader is not safe for concurrent use: it holds a single decode cursor and
// a single open file handle, mirroring the single-owner extractor handle
// this package is modeled on. Callers needing concurrent access should open
// multiple Readers over the same file and Index.
//
// Read does not implement io.Reader's end-of-stream contract: a read that
// reaches the end of the uncompressed stream returns the partial byte count
// it managed along with a nil error, not io.EOF. Callers must compare the
// returned count against the requested length, exactly as with the C
// extractor this package is modeled on. A genuine decode or I/O failure
// returns (0, err) with no partial data.
type Reader struct {
	f   *os.File
	idx *Index

	dec  *inflate.Decompressor
	base int64 // Out of the access point dec was restarted from
	pos  int64 // current uncompressed offset
}

// decoderPos returns the stream-global uncompressed offset the decoder has
// produced output up to. DecompressedTotal alone is only relative to the
// access point the decoder was last restarted from.
func (r *Reader) decoderPos() int64 {
	return r.base + r.dec.DecompressedTotal()
}

// Open returns a Reader over path's gzip contents using idx to restart
// decoding at arbitrary offsets. idx must have been built from the same
// gzip stream as path; Open does not verify this.
func Open(path string, idx *Index) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(OpenError, err, "opening %s", path)
	}
	return &Reader{f: f, idx: idx}, nil
}

// Close releases the Reader's open file handle. Close is idempotent: a
// second call returns nil.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	r.dec = nil
	if err != nil {
		return newError(Read, err, "closing reader")
	}
	return nil
}

// Tell returns the uncompressed offset the next Read will begin at.
func (r *Reader) Tell() int64 {
	return r.pos
}

// Seek repositions the Reader to the given uncompressed offset. It does not
// itself touch the file or restart decoding; positioning is deferred to the
// next Read so that a Seek immediately followed by another Seek costs
// nothing extra. Seek never fails: offset is not validated against the
// stream length, or against zero, so Tell() after Seek(offset) always
// reports exactly offset. Whether that position actually yields data is a
// question Read answers, not Seek.
func (r *Reader) Seek(offset int64) error {
	r.pos = offset
	return nil
}

// Read fills buf with up to len(buf) bytes of uncompressed data starting at
// the Reader's current position, restarting the DEFLATE decoder from the
// nearest access point at or before that position if needed. See the Reader
// doc comment for Read's (deliberately non-io.Reader) end-of-stream
// semantics.
func (r *Reader) Read(buf []byte) (int, error) {
	if r.f == nil {
		return 0, newError(Unknown, nil, "read on closed reader")
	}
	if len(buf) == 0 {
		return 0, nil
	}

	want := r.Tell()
	if _, ok := r.idx.Find(want); !ok {
		// No access point at or before want (a negative offset, or an empty
		// index): there is nothing to restart from, so nothing is read.
		return 0, nil
	}
	if err := r.restartIfNeeded(want); err != nil {
		return 0, err
	}

	skip := want - r.decoderPos()
	if skip > 0 {
		if _, err := r.discard(skip); err != nil {
			return 0, err
		}
	}

	n, err := r.dec.Read(buf)
	for err == nil && n < len(buf) {
		var m int
		m, err = r.dec.Read(buf[n:])
		n += m
	}
	switch err {
	case nil:
		r.pos += int64(n)
		return n, nil
	case io.EOF:
		r.pos += int64(n)
		return n, nil
	default:
		// A pending error can drain alongside already-decoded output (the
		// same shape as the underlying decompressor's own Read contract);
		// that output is discarded rather than counted, so the Reader's
		// position only ever advances on a successful Read.
		return 0, classifyInflateErr(err)
	}
}

// restartIfNeeded (re)positions the decoder so that a subsequent read can
// reach the uncompressed offset want. It restarts from scratch whenever the
// decoder is unset or want lies before the decoder's current output, since
// DEFLATE cannot seek backward without replaying from an access point.
func (r *Reader) restartIfNeeded(want int64) error {
	if r.dec != nil && want >= r.decoderPos() {
		return nil
	}

	ap, ok := r.idx.Find(want)
	if !ok {
		ap = AccessPoint{Out: 0, In: 0}
	}

	seekPos := ap.In
	if ap.Bits > 0 {
		seekPos--
	}
	if _, err := r.f.Seek(seekPos, io.SeekStart); err != nil {
		return newError(Read, err, "seeking to access point")
	}

	var dict []byte
	if ap.Out > 0 {
		dict = ap.Window[:]
	}
	r.dec = inflate.NewReaderDict(r.f, dict)
	r.base = ap.Out
	if ap.Bits > 0 {
		var b [1]byte
		if _, err := io.ReadFull(r.f, b[:]); err != nil {
			return newError(Read, err, "reading priming byte")
		}
		r.dec.InjectBits(ap.Bits, b[0]>>(8-ap.Bits))
	}
	return nil
}

// discard reads and throws away n uncompressed bytes, advancing the decoder
// to want without copying into a caller buffer.
func (r *Reader) discard(n int64) (int64, error) {
	var discarded int64
	buf := make([]byte, 32*1024)
	for discarded < n {
		chunk := int64(len(buf))
		if remaining := n - discarded; remaining < chunk {
			chunk = remaining
		}
		read, err := r.dec.Read(buf[:chunk])
		discarded += int64(read)
		if err == io.EOF {
			return discarded, nil
		}
		if err != nil {
			return discarded, classifyInflateErr(err)
		}
		if read == 0 {
			return discarded, newError(Unknown, nil, "decoder made no progress while seeking")
		}
	}
	return discarded, nil
}
