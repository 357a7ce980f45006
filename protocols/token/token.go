// Package token binds the launchable ERC-20 contract: a standard token whose
// constructor mints the whole supply to the deployer and whose approvals are
// gated by a spender whitelist.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNoBytecode is returned when deployment is requested from a binding built
// without contract bytecode.
var ErrNoBytecode = errors.New("token binding has no bytecode")

// DefaultABI describes the functions and errors the launch workflow uses.
const DefaultABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"name_","type":"string"},
		{"name":"symbol_","type":"string"},
		{"name":"decimals_","type":"uint8"},
		{"name":"initialSupply","type":"uint256"}]},
	{"type":"function","name":"addWhitelistedSpender","stateMutability":"nonpayable",
		"inputs":[{"name":"spender","type":"address"}],"outputs":[]},
	{"type":"function","name":"isWhitelistedSpender","stateMutability":"view",
		"inputs":[{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
		"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
		"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view",
		"inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"error","name":"SpenderNotWhitelisted","inputs":[{"name":"spender","type":"address"}]},
	{"type":"error","name":"OwnableUnauthorizedAccount","inputs":[{"name":"account","type":"address"}]},
	{"type":"error","name":"ERC20InvalidSpender","inputs":[{"name":"spender","type":"address"}]},
	{"type":"error","name":"ERC20InvalidApprover","inputs":[{"name":"approver","type":"address"}]},
	{"type":"error","name":"ERC20InvalidReceiver","inputs":[{"name":"receiver","type":"address"}]}
]`

// Token packs calls for the launchable ERC-20 contract.
type Token struct {
	abi      abi.ABI
	bytecode []byte
}

// New creates a binding over DefaultABI without bytecode. It can encode calls to
// a deployed token but cannot deploy one.
func New() *Token {
	parsed, err := abi.JSON(strings.NewReader(DefaultABI))
	if err != nil {
		panic(fmt.Sprintf("token: invalid default ABI: %v", err))
	}
	return &Token{abi: parsed}
}

// artifact is the subset of a Hardhat or Foundry build artifact we read.
type artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads a build artifact from path. See ParseArtifact.
func LoadArtifact(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact builds a binding from a build artifact. Hardhat stores bytecode
// as a hex string, Foundry as {"object": "0x..."}. A missing ABI falls back to
// DefaultABI.
func ParseArtifact(data []byte) (*Token, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode token artifact: %w", err)
	}

	t := New()
	if len(a.ABI) > 0 && string(a.ABI) != "null" {
		parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
		if err != nil {
			return nil, fmt.Errorf("parse token artifact abi: %w", err)
		}
		if _, ok := parsed.Methods["addWhitelistedSpender"]; !ok {
			return nil, errors.New("token artifact abi has no addWhitelistedSpender function")
		}
		if err := checkConstructor(parsed.Constructor); err != nil {
			return nil, err
		}
		t.abi = parsed
	}

	code, err := decodeBytecode(a.Bytecode)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, ErrNoBytecode
	}
	t.bytecode = code
	return t, nil
}

// checkConstructor accepts (name, symbol, initialSupply) and
// (name, symbol, decimals, initialSupply).
func checkConstructor(c abi.Method) error {
	var want []abi.Type
	switch len(c.Inputs) {
	case 3:
		want = []abi.Type{{T: abi.StringTy}, {T: abi.StringTy}, {T: abi.UintTy, Size: 256}}
	case 4:
		want = []abi.Type{{T: abi.StringTy}, {T: abi.StringTy}, {T: abi.UintTy, Size: 8}, {T: abi.UintTy, Size: 256}}
	default:
		return fmt.Errorf("token artifact constructor takes %d arguments, want (string,string,uint256) or (string,string,uint8,uint256)", len(c.Inputs))
	}
	for i, in := range c.Inputs {
		if in.Type.T != want[i].T || in.Type.Size != want[i].Size {
			return fmt.Errorf("token artifact constructor argument %d (%s) has type %s", i, in.Name, in.Type.String())
		}
	}
	return nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode token bytecode: %w", err)
		}
		s = obj.Object
	}
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode token bytecode: %w", err)
	}
	return code, nil
}

// ABI returns the parsed contract ABI.
func (t *Token) ABI() abi.ABI {
	return t.abi
}

// DeployData returns creation bytecode followed by the packed constructor
// arguments. decimals is dropped for constructors that do not take it.
func (t *Token) DeployData(name, symbol string, decimals uint8, supply *big.Int) ([]byte, error) {
	if len(t.bytecode) == 0 {
		return nil, ErrNoBytecode
	}
	var (
		args []byte
		err  error
	)
	if len(t.abi.Constructor.Inputs) == 3 {
		args, err = t.abi.Pack("", name, symbol, supply)
	} else {
		args, err = t.abi.Pack("", name, symbol, decimals, supply)
	}
	if err != nil {
		return nil, fmt.Errorf("pack constructor: %w", err)
	}
	data := make([]byte, 0, len(t.bytecode)+len(args))
	data = append(data, t.bytecode...)
	return append(data, args...), nil
}

// WhitelistData packs addWhitelistedSpender(spender).
func (t *Token) WhitelistData(spender common.Address) ([]byte, error) {
	return t.abi.Pack("addWhitelistedSpender", spender)
}

// ApproveData packs approve(spender, amount).
func (t *Token) ApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	return t.abi.Pack("approve", spender, amount)
}

// BalanceOfData packs balanceOf(account).
func (t *Token) BalanceOfData(account common.Address) ([]byte, error) {
	return t.abi.Pack("balanceOf", account)
}

// UnpackBalance decodes the result of balanceOf.
func (t *Token) UnpackBalance(out []byte) (*big.Int, error) {
	values, err := t.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack balanceOf: expected 1 value, got %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack balanceOf: unexpected type %T", values[0])
	}
	return balance, nil
}
