// Package token implements CLI commands mutating the ledger of a
// running node.
package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/compactmint/compactmint/cli/options"
	"github.com/compactmint/compactmint/pkg/encoding/address"
	"github.com/compactmint/compactmint/pkg/util"
	"github.com/urfave/cli"
)

var callerFlag = cli.StringFlag{
	Name:  "caller, c",
	Usage: "account performing the operation (address or hex hash)",
}

// NewCommands returns the token commands of the CLI app.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "token",
			Usage: "mint, transfer and manage tokens on a running node",
			Subcommands: []cli.Command{
				{
					Name:      "mint",
					Usage:     "mint a batch of tokens",
					UsageText: "compactmint token mint -r <endpoint> -c <caller> <to> <quantity>",
					Action:    mint,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "transfer",
					Usage:     "transfer tokens between accounts",
					UsageText: "compactmint token transfer -r <endpoint> -c <caller> <from> <to> <tokenID>...",
					Action:    transfer,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "approve",
					Usage:     "set or clear the approved account of a token",
					UsageText: "compactmint token approve -r <endpoint> -c <caller> <approved> <tokenID>",
					Action:    approve,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "set-operator",
					Usage:     "grant or revoke operator status over the caller's tokens",
					UsageText: "compactmint token set-operator -r <endpoint> -c <caller> <operator> <true|false>",
					Action:    setOperator,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "lock-minting",
					Usage:     "permanently disable minting",
					UsageText: "compactmint token lock-minting -r <endpoint> -c <caller>",
					Action:    lockMinting,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "set-uri",
					Usage:     "set the metadata URI of a token",
					UsageText: "compactmint token set-uri -r <endpoint> -c <caller> <tokenID> <uri>",
					Action:    setURI,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "freeze-uri",
					Usage:     "permanently freeze the metadata of a token",
					UsageText: "compactmint token freeze-uri -r <endpoint> -c <caller> <tokenID>",
					Action:    freezeURI,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "set-base-uri",
					Usage:     "set the collection-wide URI template",
					UsageText: "compactmint token set-base-uri -r <endpoint> -c <caller> <uri>",
					Action:    setBaseURI,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
				{
					Name:      "lock-base-uri",
					Usage:     "permanently freeze the collection-wide URI template",
					UsageText: "compactmint token lock-base-uri -r <endpoint> -c <caller>",
					Action:    lockBaseURI,
					Flags:     append([]cli.Flag{callerFlag}, options.RPC...),
				},
			},
		},
	}
}

func getCaller(ctx *cli.Context) (util.Uint160, error) {
	s := ctx.String("caller")
	if s == "" {
		return util.Uint160{}, cli.NewExitError("missing --caller flag", 1)
	}
	caller, err := address.ParseOrUint160(s)
	if err != nil {
		return util.Uint160{}, cli.NewExitError(fmt.Errorf("invalid caller: %w", err), 1)
	}
	return caller, nil
}

func addressArg(ctx *cli.Context, n int, name string) (util.Uint160, error) {
	arg := ctx.Args().Get(n)
	if arg == "" {
		return util.Uint160{}, cli.NewExitError(fmt.Sprintf("missing %s argument", name), 1)
	}
	u, err := address.ParseOrUint160(arg)
	if err != nil {
		return util.Uint160{}, cli.NewExitError(fmt.Errorf("invalid %s: %w", name, err), 1)
	}
	return u, nil
}

func uintArg(ctx *cli.Context, n int, name string) (uint64, error) {
	arg := ctx.Args().Get(n)
	if arg == "" {
		return 0, cli.NewExitError(fmt.Sprintf("missing %s argument", name), 1)
	}
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, cli.NewExitError(fmt.Errorf("invalid %s: %w", name, err), 1)
	}
	return v, nil
}

func mint(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	to, err := addressArg(ctx, 0, "recipient")
	if err != nil {
		return err
	}
	quantity, err := uintArg(ctx, 1, "quantity")
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	start, err := c.Mint(caller, to, quantity)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "minted tokens %d..%d\n", start, start+quantity-1)
	return nil
}

func transfer(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	from, err := addressArg(ctx, 0, "sender")
	if err != nil {
		return err
	}
	to, err := addressArg(ctx, 1, "recipient")
	if err != nil {
		return err
	}
	args := ctx.Args().Tail()[1:]
	if len(args) == 0 {
		return cli.NewExitError("missing token ID arguments", 1)
	}
	ids := make([]uint64, len(args))
	for i, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid token ID %q: %w", a, err), 1)
		}
		ids[i] = id
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.Transfer(caller, from, to, ids, nil); err != nil {
		return cli.NewExitError(err, 1)
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatUint(id, 10)
	}
	fmt.Fprintf(ctx.App.Writer, "transferred tokens %s to %s\n", strings.Join(strs, ", "), address.Uint160ToString(to))
	return nil
}

func approve(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	approved, err := addressArg(ctx, 0, "approved account")
	if err != nil {
		return err
	}
	id, err := uintArg(ctx, 1, "token ID")
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.Approve(caller, approved, id); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func setOperator(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	operator, err := addressArg(ctx, 0, "operator")
	if err != nil {
		return err
	}
	flagArg := ctx.Args().Get(1)
	approved, err := strconv.ParseBool(flagArg)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid approval flag %q: %w", flagArg, err), 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.SetApprovalForAll(caller, operator, approved); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func lockMinting(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.LockMinting(caller); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "minting is now permanently locked")
	return nil
}

func setURI(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := uintArg(ctx, 0, "token ID")
	if err != nil {
		return err
	}
	uri := ctx.Args().Get(1)
	if uri == "" {
		return cli.NewExitError("missing URI argument", 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.SetTokenURI(caller, id, uri); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func freezeURI(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := uintArg(ctx, 0, "token ID")
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.FreezeTokenURI(caller, id); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func setBaseURI(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	uri := ctx.Args().Get(0)
	if uri == "" {
		return cli.NewExitError("missing URI argument", 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.SetBaseURI(caller, uri); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func lockBaseURI(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}

	if err := c.LockBaseURI(caller); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "base URI is now permanently locked")
	return nil
}
