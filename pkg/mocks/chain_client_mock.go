package mocks

import (
	"context"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockChainClient is a mock implementation of launch.ChainClient interface.
type MockChainClient struct {
	mock.Mock
}

var _ launch.ChainClient = (*MockChainClient)(nil)

func (m *MockChainClient) EstimateGas(ctx context.Context, call launch.Call) (uint64, error) {
	args := m.Called(ctx, call)

	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) Submit(ctx context.Context, call launch.Call, gas uint64) (launch.TxHandle, error) {
	args := m.Called(ctx, call, gas)

	return args.Get(0).(launch.TxHandle), args.Error(1)
}

func (m *MockChainClient) AwaitConfirmation(ctx context.Context, tx launch.TxHandle, confirmations uint64) (*launch.Receipt, error) {
	args := m.Called(ctx, tx, confirmations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*launch.Receipt), args.Error(1)
}

func (m *MockChainClient) CallContract(ctx context.Context, call launch.Call) ([]byte, error) {
	args := m.Called(ctx, call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockChainClient) Account() common.Address {
	args := m.Called()

	return args.Get(0).(common.Address)
}

// SubmitCount returns how many times Submit was called with a call to target.
// A nil target counts contract creations.
func (m *MockChainClient) SubmitCount(target *common.Address) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method != "Submit" {
			continue
		}
		call := c.Arguments.Get(1).(launch.Call)
		switch {
		case target == nil && call.To == nil:
			n++
		case target != nil && call.To != nil && *call.To == *target:
			n++
		}
	}
	return n
}
