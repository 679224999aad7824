package main

import (
	"github.com/urfave/cli/v2"

	spendguard "github.com/kailas-cloud/spendguard/pkg/sdk"
)

var keyCMD = &cli.Command{
	Name:  "key",
	Usage: "owner key management",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "generate a new owner key",
			Action: generateKey,
		},
	},
}

func generateKey(c *cli.Context) error {
	s, err := spendguard.GenerateSigner()
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"address":     s.Address().Hex(),
		"private_key": s.HexKey(),
	})
}
