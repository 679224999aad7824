package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/version"
	spendguard "github.com/kailas-cloud/spendguard/pkg/sdk"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "spendctl"
	app.Usage = "Administer spendguard accounts, daily spending limits and transfers"
	app.Version = version.String()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "driver",
			Usage:   "store driver: valkey, redis or memory (memory state does not outlive one invocation)",
			Value:   "valkey",
			EnvVars: []string{"SPENDCTL_DRIVER"},
		},
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "store address",
			Value:   "localhost:6379",
			EnvVars: []string{"SPENDCTL_ADDR"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "store password",
			EnvVars: []string{"SPENDCTL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "key-prefix",
			Usage: "store key prefix",
			Value: "spendguard:",
		},
		&cli.Uint64Flag{
			Name:  "chain-id",
			Usage: "chain ID signatures are bound to",
			Value: spendguard.DefaultDomain().ChainID,
		},
		&cli.StringFlag{
			Name:  "factory",
			Usage: "account factory address",
			Value: spendguard.DefaultDomain().Factory.Hex(),
		},
		&cli.Int64Flag{
			Name:  "period-sec",
			Usage: "allowance period in seconds",
			Value: 86400,
		},
		&cli.StringFlag{
			Name:  "update-mode",
			Usage: "limit update mode: overwrite or preserve_usage",
			Value: string(spendguard.ModeOverwrite),
		},
	}

	app.Commands = []*cli.Command{
		keyCMD,
		accountCMD,
		limitCMD,
		transferCMD,
	}
	return app
}

var privateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "owner private key (hex)",
	EnvVars: []string{"SPENDCTL_PRIVATE_KEY"},
}

var accountFlag = &cli.StringFlag{
	Name:     "account",
	Usage:    "account address",
	Required: true,
}

var assetFlag = &cli.StringFlag{
	Name:  "asset",
	Usage: "asset address",
	Value: spendguard.NativeAsset.Hex(),
}

var nonceFlag = &cli.Uint64Flag{
	Name:  "nonce",
	Usage: "call nonce (default: the account's current nonce)",
}

// newClient constructs the embedded client; tests swap it to share one store across runs.
var newClient = spendguard.New

// openClient embeds a ledger client configured from the global flags.
func openClient(c *cli.Context) (*spendguard.Client, error) {
	var store spendguard.Option
	switch d := c.String("driver"); d {
	case "valkey":
		store = spendguard.WithValkey(c.String("addr"), c.String("password"))
	case "redis":
		store = spendguard.WithRedis(c.String("addr"), c.String("password"))
	case "memory":
		store = spendguard.WithMemory()
	default:
		return nil, fmt.Errorf("unknown driver %q", d)
	}

	factory, err := domain.ParseAddress(c.String("factory"))
	if err != nil {
		return nil, fmt.Errorf("factory: %w", err)
	}

	return newClient(c.Context, store,
		spendguard.WithKeyPrefix(c.String("key-prefix")),
		spendguard.WithChainID(c.Uint64("chain-id")),
		spendguard.WithFactory(factory),
		spendguard.WithPeriod(time.Duration(c.Int64("period-sec"))*time.Second),
		spendguard.WithUpdateMode(spendguard.UpdateMode(c.String("update-mode"))),
	)
}

// ownerSigner loads --private-key bound to the client's domain.
func ownerSigner(c *cli.Context, client *spendguard.Client) (*spendguard.Signer, error) {
	key := c.String(privateKeyFlag.Name)
	if key == "" {
		return nil, fmt.Errorf("--%s or SPENDCTL_PRIVATE_KEY is required", privateKeyFlag.Name)
	}
	s, err := spendguard.NewSigner(key)
	if err != nil {
		return nil, err
	}
	return s.ForDomain(client.Domain()), nil
}

// callNonce returns --nonce when set, else the account's current nonce.
func callNonce(c *cli.Context, client *spendguard.Client, account common.Address) (uint64, error) {
	if c.IsSet(nonceFlag.Name) {
		return c.Uint64(nonceFlag.Name), nil
	}
	acc, err := client.Accounts().Get(c.Context, account)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
