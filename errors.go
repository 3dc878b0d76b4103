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
)

// Kind is a flat enumeration of the failure kinds this package can report,
// carried across the build and read paths. It mirrors the original C
// seekgzip.h error codes (SEEKGZIP_*) rather than Go's usual ad-hoc sentinel
// errors, because callers (the CLI in particular) need a stable, closed set
// of phrasings to print.
type Kind int

const (
	// Success is not used as an error Kind; it exists so KindOf(nil) has a
	// defined, printable zero value.
	Success Kind = iota
	Unknown
	OpenError
	Read
	Write
	Data
	OutOfMemory
	Incompatible
	Zlib
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Unknown:
		return "unknown error"
	case OpenError:
		return "open error"
	case Read:
		return "read error"
	case Write:
		return "write error"
	case Data:
		return "data error"
	case OutOfMemory:
		return "out of memory"
	case Incompatible:
		return "incompatible index"
	case Zlib:
		return "zlib error"
	default:
		return "unknown error"
	}
}

// Error wraps a Kind with the underlying cause, if any. The zero value is
// never returned by this package; use KindOf to classify an arbitrary error
// without a type assertion.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies an arbitrary error into one of this package's Kinds.
// It returns Success for a nil error and Unknown for any error this package
// did not itself produce, so callers can switch on it without a failed type
// assertion panicking.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var ze *Error
	if errors.As(err, &ze) {
		return ze.Kind
	}
	return Unknown
}
