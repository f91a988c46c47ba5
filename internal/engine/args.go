package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/roach88/tapgame/internal/faucet"
	"github.com/roach88/tapgame/internal/ir"
)

// Argument decoding at the host boundary. Amounts travel as base-10
// strings so that u128 values survive JSON; u64 values may be either an
// integer or a base-10 string.

func checkArgs(args ir.IRObject, allowed ...string) error {
	for key := range args {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return faucet.InvalidArgument(fmt.Sprintf("unexpected argument %q", key), nil)
		}
	}
	return nil
}

func addressArg(args ir.IRObject, key string) (ir.Address, error) {
	s, ok := args.String(key)
	if !ok {
		return "", faucet.InvalidArgument(fmt.Sprintf("%s: expected address string", key), nil)
	}
	addr, err := ir.ParseAddress(s)
	if err != nil {
		return "", faucet.InvalidArgument(key, err)
	}
	return addr, nil
}

func amountArg(args ir.IRObject, key string) (*uint256.Int, error) {
	switch v := args[key].(type) {
	case ir.IRString:
		amt, err := ir.ParseU128(string(v))
		if err != nil {
			return nil, faucet.InvalidArgument(key, err)
		}
		return amt, nil
	case ir.IRInt:
		if v < 0 {
			return nil, faucet.InvalidArgument(fmt.Sprintf("%s: negative amount %d", key, v), nil)
		}
		return uint256.NewInt(uint64(v)), nil
	default:
		return nil, faucet.InvalidArgument(fmt.Sprintf("%s: expected amount", key), nil)
	}
}

func u64Arg(args ir.IRObject, key string) (uint64, error) {
	switch v := args[key].(type) {
	case ir.IRInt:
		if v < 0 {
			return 0, faucet.InvalidArgument(fmt.Sprintf("%s: negative value %d", key, v), nil)
		}
		return uint64(v), nil
	case ir.IRString:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return 0, faucet.InvalidArgument(key, err)
		}
		return n, nil
	default:
		return 0, faucet.InvalidArgument(fmt.Sprintf("%s: expected unsigned integer", key), nil)
	}
}

// u64Value encodes a u64 as an integer when it fits int64 and as a
// base-10 string otherwise.
func u64Value(v uint64) ir.IRValue {
	if v <= math.MaxInt64 {
		return ir.IRInt(int64(v))
	}
	return ir.IRString(strconv.FormatUint(v, 10))
}
