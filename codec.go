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
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// magic identifies a zsek sidecar index file. It is written uncompressed as
// the first four bytes of the gzip-wrapped payload.
var magic = [4]byte{'Z', 'S', 'E', 'K'}

// offSize is the width, in bytes, of the Out/In fields on disk. This
// implementation always emits 8 (int64); the field is still written so the
// format documents its own record layout rather than assuming a reader
// already knows it.
const offSize = 8

// recordSize is the on-disk size of a single access point record:
// Out (int64) + In (int64) + Bits (int32) + Window (32768 bytes).
const recordSize = 8 + 8 + 4 + WindowSize

// maxRecords bounds the count field read from an untrusted index file so a
// corrupt or hostile count cannot drive an out-of-memory allocation before
// the actual record bytes are available to contradict it.
const maxRecords = 1 << 24

// WriteIndex serializes idx to w in the sidecar format: a magic string, the
// on-disk offset width, the record count, and then one fixed-size record per
// access point, all wrapped in a gzip stream.
func WriteIndex(w io.Writer, idx *Index) error {
	gw, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return newError(Write, err, "creating sidecar writer")
	}

	if _, err := gw.Write(magic[:]); err != nil {
		return newError(Write, err, "writing magic")
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(offSize))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(idx.Len()))
	if _, err := gw.Write(hdr[:]); err != nil {
		return newError(Write, err, "writing index header")
	}

	rec := make([]byte, recordSize)
	for i := 0; i < idx.Len(); i++ {
		p := idx.At(i)
		binary.LittleEndian.PutUint64(rec[0:8], uint64(p.Out))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(p.In))
		binary.LittleEndian.PutUint32(rec[16:20], uint32(p.Bits))
		copy(rec[20:20+WindowSize], p.Window[:])
		if _, err := gw.Write(rec); err != nil {
			return newError(Write, err, "writing access point %d", i)
		}
	}

	if err := gw.Close(); err != nil {
		return newError(Write, err, "finalizing sidecar")
	}
	return nil
}

// WriteIndexFile is a convenience wrapper that creates (or truncates) path
// and writes idx to it.
func WriteIndexFile(path string, idx *Index) error {
	f, err := os.Create(path)
	if err != nil {
		return newError(OpenError, err, "creating %s", path)
	}
	defer f.Close()
	if err := WriteIndex(f, idx); err != nil {
		return err
	}
	return nil
}

// ReadIndex parses a sidecar index previously produced by WriteIndex.
// It rejects a bad magic or an unsupported offSize as Incompatible, and
// treats a truncated or otherwise malformed payload as Data. A gzip trailer
// that fails to close cleanly is reported as Zlib, even if every record
// before it parsed successfully.
func ReadIndex(r io.Reader) (idx *Index, err error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, newError(Data, err, "opening sidecar stream")
	}
	defer func() {
		if cerr := gr.Close(); cerr != nil && err == nil {
			idx, err = nil, newError(Zlib, cerr, "closing sidecar stream")
		}
	}()

	var got [4]byte
	if _, err := io.ReadFull(gr, got[:]); err != nil {
		return nil, newError(Data, err, "reading magic")
	}
	if got != magic {
		return nil, newError(Incompatible, nil, "not a zsek index (bad magic)")
	}

	var hdr [8]byte
	if _, err := io.ReadFull(gr, hdr[:]); err != nil {
		return nil, newError(Data, err, "reading index header")
	}
	gotOffSize := binary.LittleEndian.Uint32(hdr[0:4])
	if gotOffSize != offSize {
		return nil, newError(Incompatible, nil, "unsupported offset width %d", gotOffSize)
	}
	count := binary.LittleEndian.Uint32(hdr[4:8])
	if count > maxRecords {
		return nil, newError(OutOfMemory, nil, "index claims %d records, exceeding the sanity limit", count)
	}

	idx = &Index{points: make([]AccessPoint, 0, count)}
	rec := make([]byte, recordSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(gr, rec); err != nil {
			return nil, newError(Data, err, "reading access point %d", i)
		}
		var p AccessPoint
		p.Out = int64(binary.LittleEndian.Uint64(rec[0:8]))
		p.In = int64(binary.LittleEndian.Uint64(rec[8:16]))
		p.Bits = uint8(binary.LittleEndian.Uint32(rec[16:20]))
		copy(p.Window[:], rec[20:20+WindowSize])
		idx.add(p)
	}
	// Drain to the end of the gzip stream so its trailer is read and checked.
	if _, err := io.Copy(io.Discard, gr); err != nil {
		return nil, newError(Zlib, err, "verifying sidecar trailer")
	}
	return idx, nil
}

// ReadIndexFile opens path and parses its contents as a sidecar index.
func ReadIndexFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(OpenError, err, "opening %s", path)
	}
	defer f.Close()
	return ReadIndex(f)
}
