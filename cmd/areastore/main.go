/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package main

import (
	"os"

	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/areastore/areastore/cmd/areastore/app"
	"github.com/areastore/areastore/cmd/areastore/pkg/command"
	"github.com/areastore/areastore/cmd/areastore/pkg/logging"
	"github.com/areastore/areastore/config"
)

// Version is set at build time.
var Version = "development"

func main() {
	flags := command.NewFlags()

	resolve := func() (*config.Config, error) {
		if err := logging.SetUp(flags.Args.LogLevel); err != nil {
			return nil, errors.Wrap(err, "failed to prepare logger")
		}

		var cfg config.Config
		if err := command.Validate(flags.Args, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid argument")
		}

		return &cfg, nil
	}

	cliApp := &cli.App{
		Name:    "areastore",
		Usage:   "record log on a disk image backed storage area",
		Version: Version,
		Flags:   flags.F,
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create and wipe a store image",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					return app.Init(cfg)
				},
			},
			{
				Name:  "status",
				Usage: "print the mount state of the store",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					return app.Status(cfg)
				},
			},
			{
				Name:      "append",
				Usage:     "append one record",
				ArgsUsage: "<payload>",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					if c.NArg() != 1 {
						return errors.New("append takes one payload argument")
					}

					return app.Append(cfg, []byte(c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "print all records, oldest first",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					return app.List(cfg)
				},
			},
			{
				Name:  "compact",
				Usage: "run one compaction pass",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					return app.Compact(cfg)
				},
			},
			{
				Name:  "wipe",
				Usage: "erase the whole area",
				Action: func(c *cli.Context) error {
					cfg, err := resolve()
					if err != nil {
						return err
					}

					return app.Wipe(cfg)
				},
			},
			{
				Name:  "kv",
				Usage: "named values stored as records",
				Subcommands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "store a named value",
						ArgsUsage: "<name> <value>",
						Action: func(c *cli.Context) error {
							cfg, err := resolve()
							if err != nil {
								return err
							}

							if c.NArg() != 2 {
								return errors.New("kv set takes a name and a value")
							}

							return app.KvSet(cfg, c.Args().Get(0),
								[]byte(c.Args().Get(1)))
						},
					},
					{
						Name:      "get",
						Usage:     "print a named value",
						ArgsUsage: "<name>",
						Action: func(c *cli.Context) error {
							cfg, err := resolve()
							if err != nil {
								return err
							}

							if c.NArg() != 1 {
								return errors.New("kv get takes a name")
							}

							return app.KvGet(cfg, c.Args().First())
						},
					},
					{
						Name:      "del",
						Usage:     "delete a named value",
						ArgsUsage: "<name>",
						Action: func(c *cli.Context) error {
							cfg, err := resolve()
							if err != nil {
								return err
							}

							if c.NArg() != 1 {
								return errors.New("kv del takes a name")
							}

							return app.KvSet(cfg, c.Args().First(), nil)
						},
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.L.WithError(err).Fatal("areastore failed")
	}
}
