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

package inflate

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressorMatchesStdlibOutput(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 2000)
	compressed := deflate(t, data)

	dec := NewReader(bytes.NewReader(compressed))
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("decompressed output did not match the source")
	}
}

func TestEnableCheckpointsFiresAndOffsetsAdvance(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdefghijklmnopqrstuvwxyz"), 50000)
	compressed := deflate(t, data)

	dec := NewReader(bytes.NewReader(compressed))
	dec.EnableCheckpoints(0, 8192)

	buf := make([]byte, 32*1024)
	for {
		if _, err := dec.Read(buf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("Read: %v", err)
		}
	}

	if len(dec.Checkpoints) == 0 {
		t.Fatalf("EnableCheckpoints never captured a checkpoint")
	}
	var lastOut, lastIn int64
	for i, cp := range dec.Checkpoints {
		if cp.Out < lastOut || cp.In < lastIn {
			t.Fatalf("checkpoint %d did not advance: %+v after Out=%d In=%d", i, cp, lastOut, lastIn)
		}
		lastOut, lastIn = cp.Out, cp.In
	}
}

func TestRestartFromMidStreamCheckpoint(t *testing.T) {
	data := bytes.Repeat([]byte("restart checkpoint payload 12345 "), 40000)
	compressed := deflate(t, data)

	dec := NewReader(bytes.NewReader(compressed))
	dec.EnableCheckpoints(0, int64(len(data))/4)

	buf := make([]byte, 32*1024)
	for {
		if _, err := dec.Read(buf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("Read: %v", err)
		}
	}
	if len(dec.Checkpoints) == 0 {
		t.Fatalf("never captured a mid-stream checkpoint")
	}
	cp := dec.Checkpoints[0]

	seekPos := cp.In
	if cp.Bits > 0 {
		seekPos--
	}
	tail := compressed[seekPos:]
	var restarted *Decompressor
	if cp.Bits > 0 {
		primeByte := tail[0]
		restarted = NewReaderDict(bytes.NewReader(tail[1:]), cp.Window[:])
		restarted.InjectBits(cp.Bits, primeByte>>(8-cp.Bits))
	} else {
		restarted = NewReaderDict(bytes.NewReader(tail), cp.Window[:])
	}

	rest, err := io.ReadAll(restarted)
	if err != nil {
		t.Fatalf("ReadAll on restarted decoder: %v", err)
	}
	want := data[cp.Out:]
	if !bytes.Equal(rest, want) {
		t.Fatalf("restarted decode length = %d, want %d", len(rest), len(want))
	}
}
