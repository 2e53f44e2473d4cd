// Package query implements read-only CLI commands served by a running
// node.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/compactmint/compactmint/cli/options"
	"github.com/compactmint/compactmint/pkg/encoding/address"
	"github.com/compactmint/compactmint/pkg/rpcclient"
	"github.com/urfave/cli"
)

// NewCommands returns the query commands of the CLI app.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "query",
			Usage: "query the ledger of a running node",
			Subcommands: []cli.Command{
				{
					Name:      "collection",
					Usage:     "display the collection-wide state",
					UsageText: "compactmint query collection -r <endpoint>",
					Action:    queryCollection,
					Flags:     options.RPC,
				},
				{
					Name:      "owner",
					Usage:     "display the owner of a token",
					UsageText: "compactmint query owner -r <endpoint> <tokenID>",
					Action:    queryOwner,
					Flags:     options.RPC,
				},
				{
					Name:      "balance",
					Usage:     "display the token balance of an account",
					UsageText: "compactmint query balance -r <endpoint> <address>",
					Action:    queryBalance,
					Flags:     options.RPC,
				},
				{
					Name:      "tokens",
					Usage:     "list the tokens of an account",
					UsageText: "compactmint query tokens -r <endpoint> <address>",
					Action:    queryTokens,
					Flags:     options.RPC,
				},
				{
					Name:      "uri",
					Usage:     "display the metadata URI of a token",
					UsageText: "compactmint query uri -r <endpoint> <tokenID>",
					Action:    queryURI,
					Flags:     options.RPC,
				},
				{
					Name:      "watch",
					Usage:     "stream ledger events",
					UsageText: "compactmint query watch -r <endpoint>",
					Action:    watchEvents,
					Flags:     options.RPC,
				},
			},
		},
	}
}

func queryCollection(ctx *cli.Context) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	info, err := c.GetCollection()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
	fmt.Fprintf(tw, "Minted:\t%d\n", info.MintIndex)
	fmt.Fprintf(tw, "Total supply:\t%d\n", info.TotalSupply)
	fmt.Fprintf(tw, "Batch size:\t%d\n", info.BatchSize)
	fmt.Fprintf(tw, "Mint locked:\t%t\n", info.MintLocked)
	fmt.Fprintf(tw, "Base URI:\t%s\n", info.BaseURI)
	fmt.Fprintf(tw, "Base URI locked:\t%t\n", info.BaseURILocked)
	return tw.Flush()
}

func tokenIDArg(ctx *cli.Context) (uint64, error) {
	arg := ctx.Args().First()
	if arg == "" {
		return 0, cli.NewExitError("token ID argument is missing", 1)
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, cli.NewExitError(fmt.Errorf("invalid token ID: %w", err), 1)
	}
	return id, nil
}

func addressArg(ctx *cli.Context) (string, error) {
	arg := ctx.Args().First()
	if arg == "" {
		return "", cli.NewExitError("address argument is missing", 1)
	}
	// Validate locally for a better error message.
	if _, err := address.ParseOrUint160(arg); err != nil {
		return "", cli.NewExitError(fmt.Errorf("invalid address: %w", err), 1)
	}
	return arg, nil
}

func queryOwner(ctx *cli.Context) error {
	id, err := tokenIDArg(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	owner, err := c.OwnerOf(id)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, address.Uint160ToString(owner))
	return nil
}

func queryBalance(ctx *cli.Context) error {
	addr, err := addressArg(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	acc, _ := address.ParseOrUint160(addr)
	balance, err := c.BalanceOf(acc)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, balance)
	return nil
}

func queryTokens(ctx *cli.Context) error {
	addr, err := addressArg(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	acc, _ := address.ParseOrUint160(addr)
	ids, err := c.TokensOf(acc)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatUint(id, 10)
	}
	fmt.Fprintln(ctx.App.Writer, strings.Join(strs, " "))
	return nil
}

func queryURI(ctx *cli.Context) error {
	id, err := tokenIDArg(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	uri, err := c.TokenURI(id)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, uri)
	return nil
}

func watchEvents(ctx *cli.Context) error {
	endpoint := ctx.String("rpc-endpoint")
	wsEndpoint := strings.Replace(endpoint, "http", "ws", 1)
	wsc, err := rpcclient.NewWS(wsEndpoint)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer wsc.Close()

	// Watch is open-ended, the timeout flag doesn't apply. Interrupt
	// stops it.
	gctx, cancel := options.GetSignalContext()
	defer cancel()
	for {
		select {
		case <-gctx.Done():
			return nil
		case ntf, ok := <-wsc.Notifications:
			if !ok {
				if err := wsc.CloseErr(); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			}
			switch {
			case ntf.From.IsZero():
				fmt.Fprintf(ctx.App.Writer, "%s: token %d -> %s\n",
					ntf.Type, ntf.TokenID, address.Uint160ToString(ntf.To))
			default:
				fmt.Fprintf(ctx.App.Writer, "%s: token %d %s -> %s\n",
					ntf.Type, ntf.TokenID, address.Uint160ToString(ntf.From), address.Uint160ToString(ntf.To))
			}
		}
	}
}
