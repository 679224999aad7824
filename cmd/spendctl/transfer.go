package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/spendguard/internal/domain"
	spendguard "github.com/kailas-cloud/spendguard/pkg/sdk"
)

var transferCMD = &cli.Command{
	Name:   "transfer",
	Usage:  "send an asset from an account, within its daily limit",
	Action: transfer,
	Flags: []cli.Flag{
		accountFlag,
		assetFlag,
		&cli.StringFlag{
			Name:     "to",
			Usage:    "recipient address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "amount in the asset's smallest unit",
			Required: true,
		},
		nonceFlag,
		privateKeyFlag,
	},
}

func transfer(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, asset, err := accountAndAsset(c)
	if err != nil {
		return err
	}
	to, err := domain.ParseAddress(c.String("to"))
	if err != nil {
		return fmt.Errorf("to: %w", err)
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

	req := spendguard.TransferRequest{From: addr, To: to, Asset: asset, Amount: amount, Nonce: nonce}
	sig, err := owner.SignTransfer(req)
	if err != nil {
		return err
	}
	r, err := client.Transfer(c.Context, req, sig)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"from":      r.From.Hex(),
		"to":        r.To.Hex(),
		"asset":     r.Asset.Hex(),
		"amount":    r.Amount.Dec(),
		"nonce":     r.Nonce,
		"balance":   r.Balance.Dec(),
		"internal":  r.Internal,
		"allowance": newLimitView(r.Allowance),
	})
}
