package main

import (
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/spendguard/internal/domain"
	spendguard "github.com/kailas-cloud/spendguard/pkg/sdk"
)

var limitCMD = &cli.Command{
	Name:  "limit",
	Usage: "daily spending limit commands",
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set the daily limit of an asset",
			Action: setLimit,
			Flags: []cli.Flag{
				accountFlag,
				assetFlag,
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "daily limit in the asset's smallest unit",
					Required: true,
				},
				nonceFlag,
				privateKeyFlag,
			},
		},
		{
			Name:   "remove",
			Usage:  "remove the daily limit of an asset",
			Action: removeLimit,
			Flags:  []cli.Flag{accountFlag, assetFlag, nonceFlag, privateKeyFlag},
		},
		{
			Name:   "show",
			Usage:  "show the limit of an asset, or every limit with --all",
			Action: showLimit,
			Flags: []cli.Flag{
				accountFlag,
				assetFlag,
				&cli.BoolFlag{
					Name:  "all",
					Usage: "list every limit of the account",
				},
			},
		},
	},
}

type limitView struct {
	Asset     string  `json:"asset"`
	Limit     string  `json:"limit"`
	Available string  `json:"available"`
	ResetTime string  `json:"reset_time,omitempty"`
	Enabled   bool    `json:"enabled"`
	Spendable *string `json:"spendable,omitempty"`
}

func newLimitView(l spendguard.Limit) limitView {
	v := limitView{
		Asset:     l.Asset.Hex(),
		Limit:     l.Limit.Dec(),
		Available: l.Available.Dec(),
		Enabled:   l.Enabled,
	}
	if !l.ResetTime.IsZero() {
		v.ResetTime = l.ResetTime.UTC().Format(time.RFC3339)
	}
	return v
}

func setLimit(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, asset, err := accountAndAsset(c)
	if err != nil {
		return err
	}
	amount, err := domain.ParseAmount(c.String("amount"))
	if err != nil {
		return err
	}
	owner, err := ownerSigner(c, client)
	if err != nil {
		return err
	}
	nonce, err := callNonce(c, client, addr)
	if err != nil {
		return err
	}

	sig, err := owner.SignSetSpendingLimit(addr, asset, amount, nonce)
	if err != nil {
		return err
	}
	l, err := client.Limits(addr).Set(c.Context, asset, amount, nonce, sig)
	if err != nil {
		return err
	}
	return printJSON(c, newLimitView(l))
}

func removeLimit(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, asset, err := accountAndAsset(c)
	if err != nil {
		return err
	}
	owner, err := ownerSigner(c, client)
	if err != nil {
		return err
	}
	nonce, err := callNonce(c, client, addr)
	if err != nil {
		return err
	}

	sig, err := owner.SignRemoveSpendingLimit(addr, asset, nonce)
	if err != nil {
		return err
	}
	l, err := client.Limits(addr).Remove(c.Context, asset, nonce, sig)
	if err != nil {
		return err
	}
	return printJSON(c, newLimitView(l))
}

func showLimit(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, asset, err := accountAndAsset(c)
	if err != nil {
		return err
	}
	limits := client.Limits(addr)

	if c.Bool("all") {
		all, err := limits.List(c.Context)
		if err != nil {
			return err
		}
		return printJSON(c, lo.Map(all, func(l spendguard.Limit, _ int) limitView { return newLimitView(l) }))
	}

	l, err := limits.Get(c.Context, asset)
	if err != nil {
		return err
	}
	v := newLimitView(l)
	spendable, ok, err := limits.Spendable(c.Context, asset)
	if err != nil {
		return err
	}
	if ok {
		v.Spendable = lo.ToPtr(spendable.Dec())
	}
	return printJSON(c, v)
}
