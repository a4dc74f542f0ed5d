package harness

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chaincheck/chaincheck/internal/mockchain"
	"github.com/chaincheck/chaincheck/internal/record"
	"github.com/chaincheck/chaincheck/internal/units"
)

// Completion outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// callFunc executes one registry call. A non-nil error means the
// scenario itself is malformed (missing or mistyped arguments) and
// aborts the run. Domain failures (unparsable amounts, insufficient
// funds) complete with OutcomeError and a message in the result so
// scenarios can assert on them.
type callFunc func(ctx context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error)

// registry maps call URIs to their implementations. The units calls
// exercise the real conversion code; the chain calls run against the
// scenario's mock chain.
var registry = map[string]callFunc{
	"units.parseEther":  callParseEther,
	"units.formatEther": callFormatEther,
	"units.parseGwei":   callParseGwei,
	"units.formatGwei":  callFormatGwei,
	"units.parseUnits":  callParseUnits,
	"units.formatUnits": callFormatUnits,
	"chain.chainId":     callChainID,
	"chain.gasPrice":    callGasPrice,
	"chain.blockNumber": callBlockNumber,
	"chain.balanceAt":   callBalanceAt,
	"chain.nonceAt":     callNonceAt,
	"chain.setBalance":  callSetBalance,
	"chain.transfer":    callTransfer,
	"chain.snapshot":    callSnapshot,
	"chain.revert":      callRevert,
}

// LookupCall reports whether a call URI is implemented.
func LookupCall(uri string) bool {
	_, ok := registry[uri]
	return ok
}

func callParseEther(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	amount, err := argString(args, "amount")
	if err != nil {
		return "", nil, err
	}
	wei, err := units.ParseEther(amount)
	if err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{"wei": record.String(wei.String())}, nil
}

func callFormatEther(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	wei, outcome, result, err := argWei(args, "wei")
	if outcome != "" || err != nil {
		return outcome, result, err
	}
	return OutcomeOK, record.Object{"ether": record.String(units.FormatEther(wei))}, nil
}

func callParseGwei(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	amount, err := argString(args, "amount")
	if err != nil {
		return "", nil, err
	}
	wei, err := units.ParseGwei(amount)
	if err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{"wei": record.String(wei.String())}, nil
}

func callFormatGwei(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	wei, outcome, result, err := argWei(args, "wei")
	if outcome != "" || err != nil {
		return outcome, result, err
	}
	return OutcomeOK, record.Object{"gwei": record.String(units.FormatGwei(wei))}, nil
}

func callParseUnits(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	amount, err := argString(args, "amount")
	if err != nil {
		return "", nil, err
	}
	decimals, err := argDecimals(args)
	if err != nil {
		return "", nil, err
	}
	value, err := units.ParseUnits(amount, decimals)
	if err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{"value": record.String(value.String())}, nil
}

func callFormatUnits(_ context.Context, _ *mockchain.Client, args record.Object) (string, record.Object, error) {
	value, outcome, result, err := argWei(args, "value")
	if outcome != "" || err != nil {
		return outcome, result, err
	}
	decimals, err := argDecimals(args)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{"amount": record.String(units.FormatUnits(value, decimals))}, nil
}

func callChainID(ctx context.Context, chain *mockchain.Client, _ record.Object) (string, record.Object, error) {
	id, err := chain.ChainID(ctx)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{"chain_id": record.String(id.String())}, nil
}

func callGasPrice(ctx context.Context, chain *mockchain.Client, _ record.Object) (string, record.Object, error) {
	price, err := chain.SuggestGasPrice(ctx)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{"wei": record.String(price.String())}, nil
}

func callBlockNumber(ctx context.Context, chain *mockchain.Client, _ record.Object) (string, record.Object, error) {
	block, err := chain.BlockNumber(ctx)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{"block": record.Int(int64(block))}, nil
}

func callBalanceAt(ctx context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error) {
	addr, err := argString(args, "address")
	if err != nil {
		return "", nil, err
	}
	balance, err := chain.BalanceAt(ctx, addr)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{
		"wei":   record.String(balance.String()),
		"ether": record.String(units.FormatEther(balance)),
	}, nil
}

func callNonceAt(ctx context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error) {
	addr, err := argString(args, "address")
	if err != nil {
		return "", nil, err
	}
	nonce, err := chain.NonceAt(ctx, addr)
	if err != nil {
		return "", nil, err
	}
	return OutcomeOK, record.Object{"nonce": record.Int(int64(nonce))}, nil
}

func callSetBalance(_ context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error) {
	addr, err := argString(args, "address")
	if err != nil {
		return "", nil, err
	}
	value, outcome, result, err := argAmount(args)
	if outcome != "" || err != nil {
		return outcome, result, err
	}
	if err := chain.SetBalance(addr, value); err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{}, nil
}

func callTransfer(ctx context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error) {
	from, err := argString(args, "from")
	if err != nil {
		return "", nil, err
	}
	to, err := argString(args, "to")
	if err != nil {
		return "", nil, err
	}
	value, outcome, result, err := argAmount(args)
	if outcome != "" || err != nil {
		return outcome, result, err
	}
	if err := chain.Transfer(ctx, from, to, value); err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{}, nil
}

func callSnapshot(_ context.Context, chain *mockchain.Client, _ record.Object) (string, record.Object, error) {
	return OutcomeOK, record.Object{"snapshot": record.Int(int64(chain.Snapshot()))}, nil
}

func callRevert(_ context.Context, chain *mockchain.Client, args record.Object) (string, record.Object, error) {
	id, err := argInt(args, "snapshot")
	if err != nil {
		return "", nil, err
	}
	if err := chain.Revert(int(id)); err != nil {
		return errorResult(err)
	}
	return OutcomeOK, record.Object{}, nil
}

// errorResult wraps a domain failure as an error completion.
func errorResult(err error) (string, record.Object, error) {
	return OutcomeError, record.Object{"message": record.String(err.Error())}, nil
}

// argString extracts a required string argument.
func argString(args record.Object, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(record.String)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return string(s), nil
}

// argInt extracts a required integer argument.
func argInt(args record.Object, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	n, ok := v.(record.Int)
	if !ok {
		return 0, fmt.Errorf("argument %q must be an integer, got %T", key, v)
	}
	return int64(n), nil
}

// argWei extracts a required wei-integer argument given as a decimal
// string. A malformed value completes with OutcomeError.
func argWei(args record.Object, key string) (*big.Int, string, record.Object, error) {
	s, err := argString(args, key)
	if err != nil {
		return nil, "", nil, err
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		outcome, result, _ := errorResult(fmt.Errorf("invalid integer %q for %q", s, key))
		return nil, outcome, result, nil
	}
	return n, "", nil, nil
}

// argDecimals resolves a decimal width from either a "decimals" integer
// or a "unit" denomination name ("wei", "gwei", "ether", ...). Exactly
// one must be present; unknown names are an authoring error.
func argDecimals(args record.Object) (int, error) {
	_, hasDecimals := args["decimals"]
	_, hasUnit := args["unit"]
	switch {
	case hasDecimals && hasUnit:
		return 0, fmt.Errorf("give either \"decimals\" or \"unit\", not both")
	case hasDecimals:
		n, err := argInt(args, "decimals")
		return int(n), err
	case hasUnit:
		name, err := argString(args, "unit")
		if err != nil {
			return 0, err
		}
		return units.DecimalsFor(name)
	default:
		return 0, fmt.Errorf("missing decimals: give \"decimals\" or \"unit\"")
	}
}

// argAmount extracts a value in wei from either a "wei" argument
// (integer string) or an "ether" argument (decimal string). Exactly one
// must be present.
func argAmount(args record.Object) (*big.Int, string, record.Object, error) {
	_, hasWei := args["wei"]
	_, hasEther := args["ether"]
	switch {
	case hasWei && hasEther:
		return nil, "", nil, fmt.Errorf("give either \"wei\" or \"ether\", not both")
	case hasWei:
		return argWei(args, "wei")
	case hasEther:
		s, err := argString(args, "ether")
		if err != nil {
			return nil, "", nil, err
		}
		wei, err := units.ParseEther(s)
		if err != nil {
			outcome, result, _ := errorResult(err)
			return nil, outcome, result, nil
		}
		return wei, "", nil, nil
	default:
		return nil, "", nil, fmt.Errorf("missing amount: give \"wei\" or \"ether\"")
	}
}
