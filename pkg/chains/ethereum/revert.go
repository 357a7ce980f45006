package ethereum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertDecoder turns raw revert payloads into readable reasons using the
// custom errors declared by the contracts the launcher talks to.
type RevertDecoder struct {
	errors map[[4]byte]abi.Error
}

// NewRevertDecoder indexes the custom errors of every given ABI by selector.
func NewRevertDecoder(abis ...abi.ABI) *RevertDecoder {
	d := &RevertDecoder{errors: make(map[[4]byte]abi.Error)}
	for _, a := range abis {
		for _, e := range a.Errors {
			var sel [4]byte
			copy(sel[:], e.ID[:4])
			d.errors[sel] = e
		}
	}
	return d
}

// Decode returns a RevertError for data. Error(string) and Panic(uint256) are
// always understood; anything else must match a registered custom error or is
// reported as an unknown revert.
func (d *RevertDecoder) Decode(data []byte) *launch.RevertError {
	if len(data) < 4 {
		return &launch.RevertError{Reason: launch.UnknownRevert(data), Data: data}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return &launch.RevertError{Reason: reason, Data: data}
	}

	var sel [4]byte
	copy(sel[:], data[:4])
	if e, ok := d.errors[sel]; ok {
		values, err := e.Inputs.Unpack(data[4:])
		if err == nil {
			args := make([]string, 0, len(values))
			for _, v := range values {
				args = append(args, fmt.Sprint(v))
			}
			return &launch.RevertError{Reason: e.Name + "(" + strings.Join(args, ", ") + ")", Data: data}
		}
	}
	return &launch.RevertError{Reason: launch.UnknownRevert(data), Data: data}
}

// FromError extracts revert data carried by a JSON-RPC error. It returns nil when
// err is not an execution revert.
func (d *RevertDecoder) FromError(err error) *launch.RevertError {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		if strings.Contains(err.Error(), "execution reverted") {
			return &launch.RevertError{Reason: launch.UnknownRevert(nil)}
		}
		return nil
	}

	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		decoded, decErr := hexutil.Decode(v)
		if decErr == nil {
			data = decoded
		}
	case []byte:
		data = v
	}
	if len(data) == 0 && !strings.Contains(err.Error(), "revert") {
		return nil
	}
	return d.Decode(data)
}
