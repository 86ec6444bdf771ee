package timelock

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
)

// ErrArgMismatch is returned when the argument types given for a call do not match the types named
// by its method signature.
var ErrArgMismatch = errors.New("argument types do not match method signature")

// idArguments is the layout the timelock hashes to derive a call identifier:
// abi.encode(address target, uint256 value, string signature, bytes data, uint256 eta).
var idArguments = mustArguments("address", "uint256", "string", "bytes", "uint256")

// Call is a privileged call scheduled on a timelock.
type Call struct {
	Target    common.Address `json:"target"`
	Value     *big.Int       `json:"value"`
	Signature string         `json:"signature"`
	Data      hexutil.Bytes  `json:"data"`
	ETA       *big.Int       `json:"eta"`
}

// ID returns the identifier the timelock assigns to the call: the keccak256 hash of the ABI
// encoding of (target, value, signature, data, eta). Calls with equal fields have equal IDs.
func (c Call) ID() common.Hash {
	packed, err := idArguments.Pack(c.Target, bigOrZero(c.Value), c.Signature, []byte(c.Data), bigOrZero(c.ETA))
	if err != nil {
		// Only reachable with a type mismatch in idArguments, which is fixed above.
		panic(fmt.Sprintf("timelock: pack call id: %v", err))
	}

	return crypto.Keccak256Hash(packed)
}

// ComputeETA returns the earliest execution time of a call queued at now on a timelock with the
// given delay.
func ComputeETA(now uint64, delay *big.Int) *big.Int {
	eta := new(big.Int).SetUint64(now)
	if delay != nil {
		eta.Add(eta, delay)
	}

	return eta
}

// CanonicalSignature normalizes a method signature to the form the timelock derives the function
// selector from, e.g. "setOracle(address, address, uint256, bool)" becomes
// "setOracle(address,address,uint256,bool)".
func CanonicalSignature(signature string) (string, error) {
	fn, err := w3.NewFunc(signature, "")
	if err != nil {
		return "", fmt.Errorf("invalid method signature %q: %w", signature, err)
	}

	return fn.Signature, nil
}

// EncodeArgs ABI encodes argValues as the parameters of signature, without a selector. argTypes
// must list the same types as the signature.
func EncodeArgs(signature string, argTypes []string, argValues []any) ([]byte, error) {
	fn, err := w3.NewFunc(signature, "")
	if err != nil {
		return nil, fmt.Errorf("invalid method signature %q: %w", signature, err)
	}

	want := signatureTypes(fn.Signature)
	if len(argTypes) != len(want) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d types",
			ErrArgMismatch, fn.Signature, len(want), len(argTypes))
	}
	for i, t := range argTypes {
		typ, err := abi.NewType(normalizeType(t), "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", ErrArgMismatch, i, err)
		}
		if typ.String() != want[i] {
			return nil, fmt.Errorf("%w: argument %d of %s is %s, got %s",
				ErrArgMismatch, i, fn.Signature, want[i], t)
		}
	}
	if len(argValues) != len(fn.Args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d values",
			ErrArgMismatch, fn.Signature, len(fn.Args), len(argValues))
	}

	data, err := fn.Args.Pack(argValues...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgMismatch, err)
	}

	return data, nil
}

// signatureTypes splits the parameter list of a canonical signature into its top level type
// names. Tuple components stay together.
func signatureTypes(signature string) []string {
	open := strings.IndexByte(signature, '(')
	params := signature[open+1 : len(signature)-1]
	if params == "" {
		return nil
	}

	var (
		types []string
		depth int
		start int
	)
	for i, r := range params {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				types = append(types, params[start:i])
				start = i + 1
			}
		}
	}

	return append(types, params[start:])
}

// normalizeType expands the uint/int aliases to their sized ABI names.
func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	switch {
	case t == "uint" || strings.HasPrefix(t, "uint["):
		return "uint256" + strings.TrimPrefix(t, "uint")
	case t == "int" || strings.HasPrefix(t, "int["):
		return "int256" + strings.TrimPrefix(t, "int")
	}

	return t
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}

func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Type: typ})
	}

	return args
}
