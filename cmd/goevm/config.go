package main

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// runConfig is everything a single goevm invocation needs: the code to
// run, its calldata, and the execution frame the Runtime sees it under.
type runConfig struct {
	CodeHex   string
	InputHex  string
	Sender    string
	Contract  string
	ValueDec  string
	GasLimit  uint64
	MaxSteps  uint64
	Verbosity int
}

func defaultRunConfig() runConfig {
	return runConfig{
		Sender:    "0x0000000000000000000000000000000000000a",
		Contract:  "0x00000000000000000000000000000000000c0c",
		ValueDec:  "0",
		GasLimit:  10_000_000,
		MaxSteps:  10_000_000,
		Verbosity: 3,
	}
}

// resolved turns the string/hex fields into the concrete values NewRuntime
// and NewMemHost need, validating along the way.
type resolved struct {
	Code     []byte
	Input    []byte
	Sender   types.Address
	Contract types.Address
	Value    uint256.Int
}

func (c runConfig) resolve() (resolved, error) {
	if c.CodeHex == "" {
		return resolved{}, fmt.Errorf("--code is required")
	}
	value, err := uint256.FromDecimal(c.ValueDec)
	if err != nil {
		return resolved{}, fmt.Errorf("invalid --value %q: %w", c.ValueDec, err)
	}
	code, err := fromHexArg(c.CodeHex)
	if err != nil {
		return resolved{}, fmt.Errorf("invalid --code: %w", err)
	}
	input, err := fromHexArg(c.InputHex)
	if err != nil {
		return resolved{}, fmt.Errorf("invalid --input: %w", err)
	}
	return resolved{
		Code:     code,
		Input:    input,
		Sender:   types.HexToAddress(c.Sender),
		Contract: types.HexToAddress(c.Contract),
		Value:    *value,
	}, nil
}

// fromHexArg decodes an arbitrary-length hex string, tolerating an
// optional "0x" prefix. types.Hash/Address are fixed-width and only
// suitable for the address/hash flags, not code or calldata.
func fromHexArg(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(trimHexPrefix(s))
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
