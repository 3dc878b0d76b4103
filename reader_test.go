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
	"bytes"
	"os"
	"testing"

	"zsek/internal/testutil"
)

func readAll(t *testing.T, r *Reader, offset int64, n int) []byte {
	t.Helper()
	if err := r.Seek(offset); err != nil {
		t.Fatalf("Seek(%d): %v", offset, err)
	}
	out := make([]byte, 0, n)
	buf := make([]byte, 4096)
	for len(out) < n {
		want := len(buf)
		if remaining := n - len(out); remaining < want {
			want = remaining
		}
		read, err := r.Read(buf[:want])
		if err != nil {
			t.Fatalf("Read at offset %d: %v", offset+int64(len(out)), err)
		}
		if read == 0 {
			break
		}
		out = append(out, buf[:read]...)
	}
	return out
}

func newTestReader(t *testing.T, data []byte) (*Reader, string) {
	t.Helper()
	path := testutil.GzipFile(t, data)
	idx, _, err := BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	r, err := Open(path, idx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, path
}

func TestReaderSequentialReadMatchesSource(t *testing.T) {
	data := testutil.Payload(t, 4<<20)
	r, _ := newTestReader(t, data)

	got := readAll(t, r, 0, len(data))
	if !bytes.Equal(got, data) {
		t.Fatalf("sequential read did not reproduce the source data (got %d bytes, want %d)", len(got), len(data))
	}
}

func TestReaderRandomAccessAcrossSpans(t *testing.T) {
	data := testutil.Payload(t, 6<<20)
	r, _ := newTestReader(t, data)

	offsets := []int64{0, 1 << 20, 3<<20 + 17, 5 << 20, int64(len(data)) - 100}
	for _, off := range offsets {
		want := data[off : off+50]
		got := readAll(t, r, off, 50)
		if !bytes.Equal(got, want) {
			t.Fatalf("read at offset %d = %x, want %x", off, got, want)
		}
	}
}

func TestReaderBackwardSeekRestarts(t *testing.T) {
	data := testutil.Payload(t, 4<<20)
	r, _ := newTestReader(t, data)

	// Read near the end first, then seek back to the beginning: this forces
	// restartIfNeeded to find an access point before the current position
	// rather than continuing forward from the live decoder.
	_ = readAll(t, r, 3<<20, 100)
	got := readAll(t, r, 0, 100)
	if !bytes.Equal(got, data[:100]) {
		t.Fatalf("backward seek did not reproduce the source data")
	}
}

func TestReaderOutOfRangeReadReturnsZeroWithoutError(t *testing.T) {
	data := testutil.Payload(t, 1<<20)
	r, _ := newTestReader(t, data)

	if err := r.Seek(int64(len(data)) + 1000); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read past end of stream returned an error: %v", err)
	}
	if n != 0 {
		t.Fatalf("Read past end of stream returned n = %d, want 0", n)
	}
}

func TestReaderCorruptedRegionFailsWithoutAffectingEarlierReads(t *testing.T) {
	data := testutil.Payload(t, 6<<20)
	path := testutil.GzipFile(t, data)

	idx, _, err := BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	if idx.Len() < 3 {
		t.Fatalf("need at least 3 access points to corrupt a later span, got %d", idx.Len())
	}

	// Corrupt one byte well inside the compressed range a later access
	// point restarts into, after the index has already been built from the
	// clean file.
	target := idx.At(2)
	corruptAt := target.In + 64

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("opening fixture for corruption: %v", err)
	}
	var orig [1]byte
	if _, err := f.ReadAt(orig[:], corruptAt); err != nil {
		t.Fatalf("reading byte to corrupt: %v", err)
	}
	if _, err := f.WriteAt([]byte{orig[0] ^ 0xff}, corruptAt); err != nil {
		t.Fatalf("corrupting byte at %d: %v", corruptAt, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing fixture after corruption: %v", err)
	}

	r, err := Open(path, idx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	// A read entirely before the corrupted region is unaffected.
	got := readAll(t, r, 0, 1024)
	if !bytes.Equal(got, data[:1024]) {
		t.Fatalf("read preceding the corrupted region did not match the source")
	}

	// A read that must decode through the corrupted region fails.
	if err := r.Seek(target.Out); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 1<<20)
	var sawError bool
	for i := 0; i < 4 && !sawError; i++ {
		if _, err := r.Read(buf); err != nil {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected reading through the corrupted region to eventually fail")
	}
}

func TestReaderCloseIsIdempotent(t *testing.T) {
	data := testutil.Payload(t, 1024)
	r, _ := newTestReader(t, data)

	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestReaderReadOnClosedReaderErrors(t *testing.T) {
	data := testutil.Payload(t, 1024)
	r, _ := newTestReader(t, data)
	r.Close()

	_, err := r.Read(make([]byte, 8))
	if err == nil {
		t.Fatalf("expected an error reading a closed Reader")
	}
}
