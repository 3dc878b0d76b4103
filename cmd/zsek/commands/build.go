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
	"errors"
	"fmt"

	"github.com/containerd/log"
	"github.com/urfave/cli/v3"

	"zsek"
)

// idxPath returns the sidecar index path for a gzip file, <file>.idx.
func idxPath(file string) string {
	return file + ".idx"
}

// digestPath returns the per-span digest manifest path for a gzip file,
// <file>.idx.digests. It is a verification aid produced alongside the
// sidecar index, not part of the index format itself.
func digestPath(file string) string {
	return idxPath(file) + ".digests"
}

var BuildCommand = &cli.Command{
	Name:      "build",
	Usage:     "build a random-access index for a gzip file",
	ArgsUsage: "<file>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		file := cmd.Args().First()
		if file == "" {
			return errors.New("build: a gzip file argument is required")
		}

		idx, size, err := zsek.BuildFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}
		log.G(ctx).WithField("file", file).
			WithField("points", idx.Len()).
			WithField("size", size).
			Debug("built index")

		out := idxPath(file)
		if err := zsek.WriteIndexFile(out, idx); err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		digests, err := zsek.SpanDigests(ctx, file, idx)
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}
		if err := zsek.WriteSpanDigestsFile(digestPath(file), digests); err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		fmt.Printf("%s: %d access points, %d uncompressed bytes\n", out, idx.Len(), size)
		return nil
	},
}
