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

// Package testutil holds deterministic test fixtures shared across the
// package's _test.go files.
package testutil

import (
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// TestRandomSeed anchors every TestRand so a given test name always
// produces the same sequence across runs.
const TestRandomSeed = 1658503010463818386

// TestRand wraps rand/v2's generator with a couple of byte-oriented
// helpers. It is not safe for concurrent use.
type TestRand struct {
	*rand.Rand
}

// NewTestRand seeds a TestRand from TestRandomSeed and the calling test's
// name, so results are reproducible per-test without being identical across
// different tests.
func NewTestRand(t testing.TB) *TestRand {
	h := fnv.New64a()
	h.Write([]byte(t.Name()))
	return &TestRand{rand.New(rand.NewPCG(TestRandomSeed, h.Sum64()))}
}

func (r *TestRand) Read(b []byte) {
	for i := range b {
		b[i] = byte(r.Int64())
	}
}

// Bytes returns a freshly allocated slice of n random bytes.
func (r *TestRand) Bytes(n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}
