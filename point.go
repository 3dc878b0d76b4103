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

// WindowSize is the size, in bytes, of the DEFLATE sliding-window dictionary
// captured at every access point.
const WindowSize = 32768

// AccessPoint is a resumable DEFLATE restart state: a point in the
// compressed stream from which decoding can be restarted without replaying
// the stream from its beginning. Once constructed, an AccessPoint is never
// mutated; Index owns its storage and copies it by value.
type AccessPoint struct {
	// Out is the uncompressed-byte offset at which this entry can restart
	// output.
	Out int64

	// In is the compressed-byte offset of the first whole byte to feed to
	// the decoder after the restart.
	In int64

	// Bits is in [0,7]. If nonzero, the restart lies mid-byte: the decoder
	// must be primed with the top Bits bits of the byte at In-1 before
	// consuming from In.
	Bits uint8

	// Window holds the 32 KiB of uncompressed data immediately preceding
	// Out, to be installed as the DEFLATE dictionary for a raw restart. If
	// fewer than WindowSize bytes had been produced when this point was
	// captured, the leading bytes are zero-filled; the DEFLATE stream at
	// that point cannot reference beyond the output actually produced, so
	// the filler is never consulted by a restart.
	Window [WindowSize]byte
}
