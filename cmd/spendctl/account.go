package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/spendguard/internal/domain"
	spendguard "github.com/kailas-cloud/spendguard/pkg/sdk"
)

var accountCMD = &cli.Command{
	Name:  "account",
	Usage: "smart account commands",
	Subcommands: []*cli.Command{
		{
			Name:   "deploy",
			Usage:  "deploy the account of an owner (idempotent)",
			Action: deployAccount,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "owner",
					Usage: "owner address (default: address of --private-key)",
				},
				&cli.StringFlag{
					Name:  "salt",
					Usage: "deployment salt (hex, up to 32 bytes)",
				},
				privateKeyFlag,
			},
		},
		{
			Name:   "show",
			Usage:  "show an account",
			Action: showAccount,
			Flags:  []cli.Flag{accountFlag, assetFlag},
		},
		{
			Name:   "fund",
			Usage:  "credit an account balance",
			Action: fundAccount,
			Flags: []cli.Flag{
				accountFlag,
				assetFlag,
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "amount in the asset's smallest unit",
					Required: true,
				},
			},
		},
	},
}

type accountView struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Salt    string `json:"salt"`
	Nonce   uint64 `json:"nonce"`
	Created bool   `json:"created,omitempty"`
	Balance string `json:"balance,omitempty"`
}

func newAccountView(a spendguard.Account) accountView {
	return accountView{Address: a.Address.Hex(), Owner: a.Owner.Hex(), Salt: a.Salt.Hex(), Nonce: a.Nonce}
}

func deployAccount(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	var owner common.Address
	if raw := c.String("owner"); raw != "" {
		if owner, err = domain.ParseAddress(raw); err != nil {
			return fmt.Errorf("owner: %w", err)
		}
	} else {
		s, err := ownerSigner(c, client)
		if err != nil {
			return err
		}
		owner = s.Address()
	}

	var salt common.Hash
	if raw := c.String("salt"); raw != "" {
		b, err := hexutil.Decode(raw)
		if err != nil || len(b) > common.HashLength {
			return fmt.Errorf("salt: want 0x-hex of at most %d bytes", common.HashLength)
		}
		salt = common.BytesToHash(b)
	}

	acc, created, err := client.Accounts().Deploy(c.Context, owner, salt)
	if err != nil {
		return err
	}
	v := newAccountView(acc)
	v.Created = created
	return printJSON(c, v)
}

func showAccount(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, asset, err := accountAndAsset(c)
	if err != nil {
		return err
	}
	acc, err := client.Accounts().Get(c.Context, addr)
	if err != nil {
		return err
	}
	bal, err := client.Accounts().Balance(c.Context, addr, asset)
	if err != nil {
		return err
	}
	v := newAccountView(acc)
	v.Balance = bal.Dec()
	return printJSON(c, v)
}

func fundAccount(c *cli.Context) error {
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
	bal, err := client.Accounts().Fund(c.Context, addr, asset, amount)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"account": addr.Hex(),
		"asset":   asset.Hex(),
		"balance": bal.Dec(),
	})
}

func accountAndAsset(c *cli.Context) (acc, asset common.Address, err error) {
	if acc, err = domain.ParseAddress(c.String(accountFlag.Name)); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("account: %w", err)
	}
	if asset, err = domain.ParseAddress(c.String(assetFlag.Name)); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("asset: %w", err)
	}
	return acc, asset, nil
}
