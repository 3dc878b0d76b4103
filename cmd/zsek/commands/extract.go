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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"zsek"
)

var ExtractCommand = &cli.Command{
	Name:      "extract",
	Usage:     "write an uncompressed byte range to standard output",
	ArgsUsage: "<file> <range>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		file := cmd.Args().Get(0)
		rangeArg := cmd.Args().Get(1)
		if file == "" || rangeArg == "" {
			return errors.New("extract: a gzip file and a range argument are required")
		}

		begin, end, err := parseRange(rangeArg)
		if err != nil {
			return err
		}
		if end < begin {
			return fmt.Errorf("invalid range %q: end precedes begin", rangeArg)
		}

		idx, err := zsek.ReadIndexFile(idxPath(file))
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		r, err := zsek.Open(file, idx)
		if err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}
		defer r.Close()

		if err := r.Seek(begin); err != nil {
			return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
		}

		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()

		buf := make([]byte, 64*1024)
		remaining := end - begin
		for remaining > 0 {
			chunk := int64(len(buf))
			if remaining < chunk {
				chunk = remaining
			}
			n, err := r.Read(buf[:chunk])
			if err != nil {
				return fmt.Errorf("%s: %w", zsek.KindOf(err), err)
			}
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					return fmt.Errorf("write error: %w", werr)
				}
				remaining -= int64(n)
			}
			if n == 0 {
				// End of stream reached before the requested range was filled.
				break
			}
		}
		return nil
	},
}
