// Package spendguard embeds the spendguard ledger: smart accounts with a per-asset daily
// spending limit that every outgoing transfer must pass.
//
// Limits are administered by the account owner with signed calls. A spend within the
// available amount goes through and reduces it; a larger spend fails with ErrLimitExceeded
// and changes nothing. Once the period (one day by default) has elapsed, the next spend
// replenishes the allowance to the full limit before it is applied.
//
//	client, _ := spendguard.New(ctx, spendguard.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	owner, _ := spendguard.NewSigner(os.Getenv("OWNER_KEY"))
//	owner = owner.ForDomain(client.Domain())
//
//	acc, _, _ := client.Accounts().Deploy(ctx, owner.Address(), common.Hash{})
//	_, _ = client.Accounts().Fund(ctx, acc.Address, spendguard.NativeAsset, *uint256.NewInt(100))
//
//	sig, _ := owner.SignSetSpendingLimit(acc.Address, spendguard.NativeAsset, *uint256.NewInt(10), acc.Nonce)
//	_, _ = client.Limits(acc.Address).Set(ctx, spendguard.NativeAsset, *uint256.NewInt(10), acc.Nonce, sig)
//
//	req := spendguard.TransferRequest{From: acc.Address, To: to, Asset: spendguard.NativeAsset,
//	    Amount: *uint256.NewInt(5), Nonce: acc.Nonce + 1}
//	sig, _ = owner.SignTransfer(req)
//	_, err := client.Transfer(ctx, req, sig) // errors.Is(err, spendguard.ErrLimitExceeded) past 10 a day
//
// Every call runs under a per-account lock and writes its state in one transaction,
// so a single client may be shared between goroutines.
package spendguard
