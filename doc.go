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

// Package zsek builds and serves random-access indices over gzip streams.
//
// A gzip file is ordinarily only decodable from its beginning: DEFLATE's
// sliding window and Huffman tables carry state forward from one block to
// the next. Build makes a single forward pass over a stream, recording a
// small access point at approximately every SpanSize bytes of uncompressed
// output — the compressed byte offset, a sub-byte bit count, and the 32 KiB
// window of uncompressed data preceding it. A Reader opened against that
// Index can then restart DEFLATE decoding at the nearest access point and
// serve a read at an arbitrary uncompressed offset without replaying the
// whole stream.
//
// The Index can be persisted alongside the gzip file with WriteIndex and
// reloaded with ReadIndex, and its compressed byte ranges can be checked
// for corruption with SpanDigests, independent of the persisted format.
package zsek
