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

	"github.com/urfave/cli/v3"

	"zsek"
)

var VerifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "recompute per-span digests and check a gzip file against its index",
	ArgsUsage: "<file>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		file := cmd.Args().First()
		if file == "" {
			return errors.New("verify: a gzip file argument is required")
		}

		idx, err := zsek.ReadIndexFile(idxPath(file))
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		want, err := zsek.ReadSpanDigestsFile(digestPath(file))
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		bad, err := zsek.VerifySpanDigests(ctx, file, idx, want)
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}
		if bad >= 0 {
			return fmt.Errorf("span %d no longer matches its recorded digest", bad)
		}

		fmt.Printf("%s: %d spans verified\n", file, idx.Len())
		return nil
	},
}
