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

import "testing"

func TestAccessPointZeroValueWindowIsZeroFilled(t *testing.T) {
	var ap AccessPoint
	for i, b := range ap.Window {
		if b != 0 {
			t.Fatalf("Window[%d] = %d, want 0 for the zero value", i, b)
		}
	}
}

func TestWindowSizeMatchesDeflateMaxDistance(t *testing.T) {
	if WindowSize != 32768 {
		t.Fatalf("WindowSize = %d, want 32768 (DEFLATE's maximum match distance)", WindowSize)
	}
}
