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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"zsek/cmd/zsek/commands"
	"zsek/cmd/zsek/commands/global"
)

func main() {
	app := cli.Command{
		Name:  "zsek",
		Usage: "build and query random-access indices over gzip files",
		Flags: global.Flags,
		Commands: []*cli.Command{
			commands.BuildCommand,
			commands.ExtractCommand,
			commands.VerifyCommand,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(global.DebugFlag) {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return ctx, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Run(ctx, os.Args); err != nil {
		cancel()
		log.L.WithError(err).Debug("zsek command failed")
		fmt.Fprintf(os.Stderr, "zsek: %v\n", err)
		os.Exit(1)
	}
	cancel()
}
