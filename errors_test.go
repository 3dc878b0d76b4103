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
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfNilIsSuccess(t *testing.T) {
	if k := KindOf(nil); k != Success {
		t.Fatalf("KindOf(nil) = %v, want %v", k, Success)
	}
}

func TestKindOfForeignErrorIsUnknown(t *testing.T) {
	if k := KindOf(errors.New("boom")); k != Unknown {
		t.Fatalf("KindOf(foreign error) = %v, want %v", k, Unknown)
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := newError(Data, nil, "corrupt")
	wrapped := fmt.Errorf("context: %w", base)
	if k := KindOf(wrapped); k != Data {
		t.Fatalf("KindOf(wrapped) = %v, want %v", k, Data)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := newError(Write, cause, "writing index")
	if got := err.Error(); !strings.Contains(got, "disk full") {
		t.Fatalf("Error() = %q, want it to include the cause %q", got, "disk full")
	}
	if !errors.Is(err, err) {
		t.Fatalf("an error should always be itself under errors.Is")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("Unwrap() did not return the wrapped cause")
	}
}
