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
	"errors"
	"io"
	"os"
	"slices"

	"zsek/internal/inflate"
)

// gzip header flag bits, RFC 1952 section 2.3.1.
const (
	flagText = 1 << iota
	flagHCRC
	flagExtra
	flagName
	flagComment
)

const bufSize = 64 * 1024

// BuildFile opens path and builds an Index covering its gzip- or
// zlib-wrapped DEFLATE contents, returning the index along with the total
// uncompressed size of the stream.
func BuildFile(path string) (*Index, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, newError(OpenError, err, "opening %s", path)
	}
	defer f.Close()
	return Build(f)
}

// Build scans the gzip- or zlib-wrapped DEFLATE stream read from r, one
// forward pass, and returns an Index of access points spaced roughly
// SpanSize uncompressed bytes apart, along with the total number of
// uncompressed bytes the stream decodes to. The container format is
// auto-detected: see skipContainerHeader.
//
// Unlike a whole-file buffering approach, Build drives the decompressor
// directly off a buffered reader over r: the input is never held in memory
// beyond the read-ahead buffer, so the memory spent on input is bounded
// regardless of file size. The Index itself still grows with the stream, by
// one 32 KiB window per access point.
func Build(r io.Reader) (*Index, int64, error) {
	br := bufio.NewReaderSize(r, bufSize)

	headerLen, err := skipContainerHeader(br)
	if err != nil {
		return nil, 0, err
	}

	idx := NewIndex()
	idx.add(AccessPoint{Out: 0, In: headerLen})

	dec := inflate.NewReader(br)
	dec.EnableCheckpoints(headerLen, SpanSize)

	buf := make([]byte, bufSize)
	var total int64
	for {
		n, err := dec.Read(buf)
		total += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, classifyInflateErr(err)
		}
	}
	for _, cp := range dec.Checkpoints {
		idx.add(AccessPoint{Out: cp.Out, In: cp.In, Bits: cp.Bits, Window: cp.Window})
	}
	idx.points = slices.Clip(idx.points)
	return idx, total, nil
}

// classifyInflateErr maps an error from the forked decompressor to this
// package's error Kind taxonomy.
func classifyInflateErr(err error) error {
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		// The decompressor converts a premature end-of-stream to
		// io.ErrUnexpectedEOF (internal/inflate's noEOF): input that was
		// well-formed so far but ran out before the final block, not an I/O
		// failure reading whatever bytes were actually available.
		return newError(Data, err, "truncated deflate stream")
	}
	switch err.(type) {
	case inflate.CorruptInputError:
		return newError(Data, err, "corrupt deflate stream")
	case inflate.InternalError:
		return newError(Unknown, err, "decompressor internal error")
	default:
		return newError(Read, err, "reading compressed stream")
	}
}

// skipContainerHeader reads and discards the header framing a raw DEFLATE
// stream, returning the number of bytes consumed. The container is
// auto-detected by sniffing the first two bytes: the gzip magic (0x1f 0x8b)
// selects the gzip header parser; otherwise the pair is checked against a
// valid zlib CMF/FLG header (RFC 1950 section 2.2) before being accepted.
func skipContainerHeader(r *bufio.Reader) (int64, error) {
	peek, err := r.Peek(2)
	if err != nil {
		return 0, newError(Data, err, "reading stream header")
	}
	if peek[0] == 0x1f && peek[1] == 0x8b {
		return skipGzipHeader(r)
	}
	return skipZlibHeader(r, peek[0], peek[1])
}

// skipZlibHeader validates and discards a zlib header (RFC 1950): a 2-byte
// CMF/FLG pair, optionally followed by a 4-byte preset-dictionary id if
// FDICT is set. cmf and flg must already have been peeked from r without
// consuming them.
func skipZlibHeader(r *bufio.Reader, cmf, flg byte) (int64, error) {
	if cmf&0x0f != 8 {
		return 0, newError(Data, nil, "not a gzip or zlib stream")
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return 0, newError(Data, nil, "invalid zlib header checksum")
	}
	if _, err := r.Discard(2); err != nil {
		return 0, newError(Data, err, "reading zlib header")
	}
	n := int64(2)
	const fdict = 1 << 5
	if flg&fdict != 0 {
		var dictID [4]byte
		if _, err := io.ReadFull(r, dictID[:]); err != nil {
			return 0, newError(Data, err, "reading zlib dictionary id")
		}
		n += 4
	}
	return n, nil
}

// skipGzipHeader reads and discards a single gzip member header (RFC 1952)
// from r, returning the number of bytes consumed. FEXTRA, FNAME, FCOMMENT
// and FHCRC are all supported; none of their contents are validated beyond
// being well-formed.
func skipGzipHeader(r *bufio.Reader) (int64, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, newError(Data, err, "reading gzip header")
	}
	if hdr[0] != 0x1f || hdr[1] != 0x8b {
		return 0, newError(Data, nil, "not a gzip stream")
	}
	if hdr[2] != 8 {
		return 0, newError(Incompatible, nil, "unsupported compression method %d", hdr[2])
	}

	n := int64(len(hdr))
	flg := hdr[3]

	if flg&flagExtra != 0 {
		var xlenBuf [2]byte
		if _, err := io.ReadFull(r, xlenBuf[:]); err != nil {
			return 0, newError(Data, err, "reading FEXTRA length")
		}
		n += 2
		xlen := int64(xlenBuf[0]) | int64(xlenBuf[1])<<8
		discarded, err := io.CopyN(io.Discard, r, xlen)
		n += discarded
		if err != nil {
			return 0, newError(Data, err, "reading FEXTRA field")
		}
	}
	if flg&flagName != 0 {
		consumed, err := skipNulTerminated(r)
		n += consumed
		if err != nil {
			return 0, newError(Data, err, "reading FNAME field")
		}
	}
	if flg&flagComment != 0 {
		consumed, err := skipNulTerminated(r)
		n += consumed
		if err != nil {
			return 0, newError(Data, err, "reading FCOMMENT field")
		}
	}
	if flg&flagHCRC != 0 {
		discarded, err := io.CopyN(io.Discard, r, 2)
		n += discarded
		if err != nil {
			return 0, newError(Data, err, "reading FHCRC field")
		}
	}
	return n, nil
}

// skipNulTerminated discards bytes from r up to and including the next NUL
// byte, returning the number of bytes consumed.
func skipNulTerminated(r *bufio.Reader) (int64, error) {
	var n int64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return n, err
		}
		n++
		if b == 0 {
			return n, nil
		}
	}
}
