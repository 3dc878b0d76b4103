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

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Payload returns n bytes of semi-compressible content: repeating runs
// interspersed with random bytes, so a gzip encoding of it spans multiple
// DEFLATE blocks without compressing away to nothing.
func Payload(t testing.TB, n int) []byte {
	r := NewTestRand(t)
	buf := make([]byte, 0, n)
	for len(buf) < n {
		switch r.IntN(2) {
		case 0:
			run := byte(r.IntN(256))
			count := 512 + r.IntN(4096)
			for i := 0; i < count && len(buf) < n; i++ {
				buf = append(buf, run)
			}
		default:
			chunk := 512 + r.IntN(4096)
			if len(buf)+chunk > n {
				chunk = n - len(buf)
			}
			buf = append(buf, r.Bytes(chunk)...)
		}
	}
	return buf[:n]
}

// GzipFile gzip-compresses data and writes it to a file under t.TempDir(),
// returning the file's path.
func GzipFile(t testing.TB, data []byte) string {
	path := filepath.Join(t.TempDir(), "fixture.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture file: %v", err)
	}
	defer f.Close()

	gw, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		t.Fatalf("creating gzip writer: %v", err)
	}
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("writing gzip payload: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return path
}
