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
	"context"
	"os"
	"testing"

	"zsek/internal/testutil"
)

func TestSpanDigestsStableAcrossRuns(t *testing.T) {
	data := testutil.Payload(t, 4<<20)
	path := testutil.GzipFile(t, data)

	idx, _, err := BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}

	first, err := SpanDigests(context.Background(), path, idx)
	if err != nil {
		t.Fatalf("SpanDigests (first): %v", err)
	}
	second, err := SpanDigests(context.Background(), path, idx)
	if err != nil {
		t.Fatalf("SpanDigests (second): %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("digest counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("span %d digest changed across runs: %s vs %s", i, first[i], second[i])
		}
	}
	if len(first) != idx.Len() {
		t.Fatalf("got %d digests, want one per access point (%d)", len(first), idx.Len())
	}
}

func TestVerifySpanDigestsDetectsTampering(t *testing.T) {
	data := testutil.Payload(t, 4<<20)
	path := testutil.GzipFile(t, data)

	idx, _, err := BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	want, err := SpanDigests(context.Background(), path, idx)
	if err != nil {
		t.Fatalf("SpanDigests: %v", err)
	}

	bad, err := VerifySpanDigests(context.Background(), path, idx, want)
	if err != nil {
		t.Fatalf("VerifySpanDigests on an untouched file: %v", err)
	}
	if bad != -1 {
		t.Fatalf("VerifySpanDigests flagged span %d on an untouched file", bad)
	}

	// Flip one byte inside the last span's compressed range.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("reopening fixture: %v", err)
	}
	st, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xff}, st.Size()-1); err != nil {
		t.Fatalf("tampering with fixture: %v", err)
	}
	f.Close()

	bad, err = VerifySpanDigests(context.Background(), path, idx, want)
	if err != nil {
		t.Fatalf("VerifySpanDigests after tampering: %v", err)
	}
	if bad != idx.Len()-1 {
		t.Fatalf("VerifySpanDigests flagged span %d, want the last span (%d)", bad, idx.Len()-1)
	}
}

func TestVerifySpanDigestsRejectsCountMismatch(t *testing.T) {
	data := testutil.Payload(t, 1024)
	path := testutil.GzipFile(t, data)

	idx, _, err := BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}

	_, err = VerifySpanDigests(context.Background(), path, idx, nil)
	if err == nil {
		t.Fatalf("expected an error for a span count mismatch")
	}
	if k := KindOf(err); k != Data {
		t.Fatalf("KindOf(err) = %v, want %v", k, Data)
	}
}
