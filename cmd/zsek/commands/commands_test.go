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

package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/urfave/cli/v3"
)

func writeFixture(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing fixture writer: %v", err)
	}
	return path
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name: "zsek",
		Commands: []*cli.Command{
			BuildCommand,
			ExtractCommand,
			VerifyCommand,
		},
	}
	return app.Run(context.Background(), append([]string{"zsek"}, args...))
}

func TestBuildThenVerifyRoundTrip(t *testing.T) {
	data := make([]byte, 3<<20)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := writeFixture(t, data)

	if err := runApp(t, "build", path); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(idxPath(path)); err != nil {
		t.Fatalf("expected a sidecar index at %s: %v", idxPath(path), err)
	}
	if _, err := os.Stat(digestPath(path)); err != nil {
		t.Fatalf("expected a digest manifest at %s: %v", digestPath(path), err)
	}

	if err := runApp(t, "verify", path); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestExtractRejectsMissingArgs(t *testing.T) {
	if err := runApp(t, "extract", "onlyonearg"); err == nil {
		t.Fatalf("expected an error when the range argument is missing")
	}
}
