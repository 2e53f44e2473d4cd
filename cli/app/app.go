// Package app contains the CLI application constructor.
package app

import (
	"github.com/compactmint/compactmint/cli/query"
	"github.com/compactmint/compactmint/cli/server"
	"github.com/compactmint/compactmint/cli/token"
	"github.com/compactmint/compactmint/pkg/config"
	"github.com/urfave/cli"
)

func versionString() string {
	if config.Version == "" {
		return "dev"
	}
	return config.Version
}

// New creates the compactmint CLI application with all of its commands.
func New() *cli.App {
	ctl := cli.NewApp()
	ctl.Name = "compactmint"
	ctl.Version = versionString()
	ctl.Usage = "NFT ledger node with batch-compacted ownership storage"

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	ctl.Commands = append(ctl.Commands, token.NewCommands()...)
	return ctl
}
