package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/pkg/mocks"
	"github.com/defistate/token-launcher-go/protocols/token"
	"github.com/defistate/token-launcher-go/protocols/uniswapv4"
	"github.com/defistate/token-launcher-go/stages"
	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/store/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGas = uint64(100_000)

var (
	account     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	managerAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	quoteAddr   = common.HexToAddress("0x4444444444444444444444444444444444444444")

	deployTx    = launch.TxHandle{Hash: common.HexToHash("0xd1"), From: account, Nonce: 0, Gas: testGas}
	whitelistTx = launch.TxHandle{Hash: common.HexToHash("0xd2"), From: account, Nonce: 1, Gas: testGas}
	approveTx   = launch.TxHandle{Hash: common.HexToHash("0xd3"), From: account, Nonce: 2, Gas: testGas}
	initTx      = launch.TxHandle{Hash: common.HexToHash("0xd4"), From: account, Nonce: 3, Gas: testGas}
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Type == events.StateChangedEvent {
			out = append(out, e.State)
		}
	}
	return out
}

// faultyStore fails appends of one phase and, optionally, every load.
type faultyStore struct {
	store.Store
	failPhase store.Phase
	failLoad  bool
}

func (s *faultyStore) Append(ctx context.Context, r *store.Record) error {
	if r.Phase == s.failPhase {
		return errors.New("disk full")
	}
	return s.Store.Append(ctx, r)
}

func (s *faultyStore) Load(ctx context.Context, requestID string) ([]store.Record, error) {
	if s.failLoad {
		return nil, errors.New("connection refused")
	}
	return s.Store.Load(ctx, requestID)
}

type fixture struct {
	client   *mocks.MockChainClient
	store    store.Store
	events   *recorder
	registry *prometheus.Registry
	orch     *Orchestrator
	token    *token.Token
	manager  *uniswapv4.PoolManager
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	tok, err := token.ParseArtifact([]byte(`{"bytecode":"0x6080"}`))
	require.NoError(t, err)
	manager := uniswapv4.NewPoolManager(managerAddr, false)

	client := new(mocks.MockChainClient)
	client.On("Account").Return(account).Maybe()

	if st == nil {
		st = memory.New()
	}
	f := &fixture{
		client:   client,
		store:    st,
		events:   &recorder{},
		registry: prometheus.NewRegistry(),
		token:    tok,
		manager:  manager,
	}

	protocol := stages.NewProtocol(client, 1, logger)
	f.orch, err = New(Config{
		Deployer:        stages.NewDeployer(protocol, tok, false, logger),
		Authorizer:      stages.NewAuthorizer(protocol, tok, managerAddr, logger),
		PoolInitializer: stages.NewPoolInitializer(protocol, manager, logger),
		Store:           st,
		Publisher:       f.events,
		Metrics:         NewMetrics(f.registry, "launcher"),
		Logger:          logger,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) isDeploy(c launch.Call) bool {
	return c.To == nil
}

func (f *fixture) isWhitelist(c launch.Call) bool {
	return c.To != nil && *c.To == tokenAddr && bytes.HasPrefix(c.Data, f.token.ABI().Methods["addWhitelistedSpender"].ID)
}

func (f *fixture) isApprove(c launch.Call) bool {
	return c.To != nil && *c.To == tokenAddr && bytes.HasPrefix(c.Data, f.token.ABI().Methods["approve"].ID)
}

func (f *fixture) isInitialize(c launch.Call) bool {
	return c.To != nil && *c.To == managerAddr && bytes.HasPrefix(c.Data, f.manager.ABI().Methods["initialize"].ID)
}

func hashIs(hash common.Hash) any {
	return mock.MatchedBy(func(h launch.TxHandle) bool { return h.Hash == hash })
}

// expect sets up a stage whose three phases succeed.
func (f *fixture) expect(match func(launch.Call) bool, tx launch.TxHandle, receipt *launch.Receipt) {
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(match)).Return(testGas, nil)
	f.client.On("Submit", mock.Anything, mock.MatchedBy(match), testGas).Return(tx, nil)
	f.client.On("AwaitConfirmation", mock.Anything, hashIs(tx.Hash), uint64(1)).Return(receipt, nil)
}

func (f *fixture) expectDeploy() {
	f.expect(f.isDeploy, deployTx, &launch.Receipt{TxHash: deployTx.Hash, BlockNumber: 10, ContractAddress: tokenAddr})
}

func (f *fixture) expectAuthorization() {
	f.expect(f.isWhitelist, whitelistTx, &launch.Receipt{TxHash: whitelistTx.Hash, BlockNumber: 11})
	f.expect(f.isApprove, approveTx, &launch.Receipt{TxHash: approveTx.Hash, BlockNumber: 12})
}

func (f *fixture) expectInitialize() {
	f.expect(f.isInitialize, initTx, &launch.Receipt{TxHash: initTx.Hash, BlockNumber: 13})
}

// submits counts Submit calls matching match.
func (f *fixture) submits(match func(launch.Call) bool) int {
	n := 0
	for _, c := range f.client.Calls {
		if c.Method == "Submit" && match(c.Arguments.Get(1).(launch.Call)) {
			n++
		}
	}
	return n
}

func (f *fixture) estimates(match func(launch.Call) bool) int {
	n := 0
	for _, c := range f.client.Calls {
		if c.Method == "EstimateGas" && match(c.Arguments.Get(1).(launch.Call)) {
			n++
		}
	}
	return n
}

func testRequest() *launch.LaunchRequest {
	return &launch.LaunchRequest{
		RequestID:   "acme-launch",
		TokenName:   "Acme",
		Symbol:      "ACME",
		Decimals:    18,
		TotalSupply: big.NewInt(1_000_000),
		Currencies:  [2]string{quoteAddr.Hex(), launch.DeployedTokenRef},
		Fee:         3000,
		TickSpacing: 60,
	}
}

func statuses(res *launch.WorkflowResult) []launch.OutcomeStatus {
	out := make([]launch.OutcomeStatus, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		out = append(out, o.Status)
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLaunch_Completed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.expectDeploy()
	f.expectAuthorization()
	f.expectInitialize()

	res, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusCompleted, res.Status)
	assert.True(t, res.Sealed())
	assert.Nil(t, res.Failure)
	require.Len(t, res.Outcomes, 4)
	for i, o := range res.Outcomes {
		assert.Equal(t, launch.Stages[i], o.Stage)
		assert.Equal(t, launch.OutcomeSuccess, o.Status)
		require.NotNil(t, o.TxHash)
	}

	require.NotNil(t, res.Deployment)
	assert.Equal(t, tokenAddr, res.Deployment.DeployedAddress)
	assert.Equal(t, account, res.Deployment.Deployer)

	require.NotNil(t, res.PoolKey)
	assert.Equal(t, tokenAddr, res.PoolKey.Currency0, "currencies are canonicalized regardless of request order")
	assert.Equal(t, quoteAddr, res.PoolKey.Currency1)
	require.NotNil(t, res.PoolID)
	assert.Equal(t, res.PoolKey.ID(), *res.PoolID)

	assert.Equal(t, []string{"deploying", "authorizing", "canonicalizing", "initializing_pool", "completed"}, f.events.states())

	records, err := f.store.Load(ctx, "acme-launch")
	require.NoError(t, err)
	folded := store.Fold(records)
	for _, stage := range launch.Stages {
		assert.NotNil(t, folded[stage].Confirmed, "stage %s persisted", stage)
		assert.Nil(t, folded[stage].Pending)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.orch.metrics.workflowsTotal.WithLabelValues("completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.orch.metrics.inFlight))
	f.client.AssertExpectations(t)
}

func TestLaunch_PoolPreflightRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.expectDeploy()
	f.expectAuthorization()
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isInitialize)).
		Return(uint64(0), fmt.Errorf("estimate gas: %w", &launch.RevertError{Reason: "PoolAlreadyInitialized()"}))

	res, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusPartiallyCompleted, res.Status)
	assert.Equal(t, []launch.OutcomeStatus{
		launch.OutcomeSuccess, launch.OutcomeSuccess, launch.OutcomeSuccess, launch.OutcomeFailed,
	}, statuses(res))
	last := res.Outcomes[3]
	assert.Equal(t, launch.StageInitializePool, last.Stage)
	assert.Equal(t, launch.KindPreflightRejection, last.Kind)
	assert.Equal(t, "PoolAlreadyInitialized()", last.Detail)

	require.NotNil(t, res.Failure)
	assert.Equal(t, launch.KindPreflightRejection, res.Failure.Kind)
	assert.Contains(t, res.Failure.Guidance, "nothing was submitted")
	assert.Equal(t, 0, f.client.SubmitCount(&managerAddr))
}

func TestLaunch_DeployPreflightRejectionAborts(t *testing.T) {
	f := newFixture(t, nil)
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isDeploy)).
		Return(uint64(0), errors.New("insufficient funds for gas * price + value"))

	res, err := f.orch.Launch(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusAborted, res.Status)
	assert.Nil(t, res.Deployment)
	assert.Equal(t, []launch.OutcomeStatus{launch.OutcomeFailed}, statuses(res))
	assert.Equal(t, launch.StageDeploy, res.Failure.Stage)
	assert.Equal(t, 0, f.client.SubmitCount(nil))
	assert.Equal(t, []string{"deploying", "aborted"}, f.events.states())
}

func TestLaunch_Validation(t *testing.T) {
	f := newFixture(t, nil)
	req := testRequest()
	req.Symbol = ""
	req.TotalSupply = nil

	res, err := f.orch.Launch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, launch.StatusAborted, res.Status)
	assert.Empty(t, res.Outcomes)
	require.NotNil(t, res.Failure)
	assert.Equal(t, launch.KindValidation, res.Failure.Kind)
	assert.Len(t, res.Failure.Fields, 2)
	f.client.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func TestLaunch_WhitelistFailureNeverApproves(t *testing.T) {
	f := newFixture(t, nil)
	f.expectDeploy()
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isWhitelist)).
		Return(uint64(0), &launch.RevertError{Reason: "OwnableUnauthorizedAccount(0x1111111111111111111111111111111111111111)"})

	res, err := f.orch.Launch(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusPartiallyCompleted, res.Status)
	assert.Equal(t, []launch.OutcomeStatus{launch.OutcomeSuccess, launch.OutcomeFailed}, statuses(res))
	assert.Equal(t, launch.StageWhitelist, res.Failure.Stage)
	assert.Equal(t, launch.KindPreflightRejection, res.Failure.Kind)
	assert.Empty(t, res.Failure.Cause)
	assert.Equal(t, 0, f.estimates(f.isApprove))
	assert.Equal(t, 0, f.submits(f.isApprove))
}

func TestLaunch_ApproveFailureIsPartialAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.expectDeploy()
	f.expect(f.isWhitelist, whitelistTx, &launch.Receipt{TxHash: whitelistTx.Hash, BlockNumber: 11})
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isApprove)).Return(testGas, nil)
	f.client.On("Submit", mock.Anything, mock.MatchedBy(f.isApprove), testGas).Return(approveTx, nil).Once()
	f.client.On("AwaitConfirmation", mock.Anything, hashIs(approveTx.Hash), uint64(1)).
		Return(nil, &launch.RevertError{Reason: "ERC20InvalidSpender(0x3333333333333333333333333333333333333333)"})

	res, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusPartiallyCompleted, res.Status)
	require.NotNil(t, res.Failure)
	assert.Equal(t, launch.StageApprove, res.Failure.Stage)
	assert.Equal(t, launch.KindPartialAuthorization, res.Failure.Kind)
	assert.Equal(t, launch.KindRevert, res.Failure.Cause)
	require.NotNil(t, res.Failure.TxHash)
	assert.Equal(t, approveTx.Hash, *res.Failure.TxHash)
	assert.Contains(t, res.Failure.Guidance, "reverted")

	records, err := f.store.Load(ctx, "acme-launch")
	require.NoError(t, err)
	approve := store.Fold(records)[launch.StageApprove]
	assert.Nil(t, approve.Confirmed)
	assert.Nil(t, approve.Pending)
	assert.Equal(t, 1, approve.Reverted)

	t.Run("RerunReexecutesRevertedStage", func(t *testing.T) {
		retryTx := launch.TxHandle{Hash: common.HexToHash("0xd5"), From: account, Nonce: 3, Gas: testGas}
		f.client.On("Submit", mock.Anything, mock.MatchedBy(f.isApprove), testGas).Return(retryTx, nil)
		f.client.On("AwaitConfirmation", mock.Anything, hashIs(retryTx.Hash), uint64(1)).
			Return(&launch.Receipt{TxHash: retryTx.Hash, BlockNumber: 14}, nil)
		f.expectInitialize()

		res, err := f.orch.Launch(ctx, testRequest())
		require.NoError(t, err)
		assert.Equal(t, launch.StatusCompleted, res.Status)
		assert.Equal(t, []launch.OutcomeStatus{
			launch.OutcomeSkipped, launch.OutcomeSkipped, launch.OutcomeSuccess, launch.OutcomeSuccess,
		}, statuses(res))
		assert.Equal(t, 2, f.submits(f.isApprove))
		assert.Equal(t, 1, f.submits(f.isWhitelist))
	})
}

func TestLaunch_ResumeSkipsConfirmedStages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.expectDeploy()
	f.expectAuthorization()
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isInitialize)).
		Return(uint64(0), &launch.RevertError{Reason: "InvalidSqrtPrice(0)"}).Once()

	first, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)
	require.Equal(t, launch.StatusPartiallyCompleted, first.Status)

	f.expectInitialize()
	second, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusCompleted, second.Status)
	assert.Equal(t, first.RequestID, second.RequestID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []launch.OutcomeStatus{
		launch.OutcomeSkipped, launch.OutcomeSkipped, launch.OutcomeSkipped, launch.OutcomeSuccess,
	}, statuses(second))
	require.NotNil(t, second.Deployment)
	assert.Equal(t, first.Deployment.DeployedAddress, second.Deployment.DeployedAddress)
	assert.Equal(t, first.Deployment.TransactionHash, second.Deployment.TransactionHash)
	assert.Equal(t, 1, f.client.SubmitCount(nil))
	assert.Equal(t, *first.PoolID, *second.PoolID)
}

func TestLaunch_TimeoutResumesPendingSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.expectDeploy()
	f.expectAuthorization()
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isInitialize)).Return(testGas, nil)
	f.client.On("Submit", mock.Anything, mock.MatchedBy(f.isInitialize), testGas).Return(initTx, nil)
	f.client.On("AwaitConfirmation", mock.Anything, hashIs(initTx.Hash), uint64(1)).
		Return(nil, fmt.Errorf("%w: tx %s", launch.ErrConfirmationTimeout, initTx.Hash.Hex())).Once()

	first, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusPartiallyCompleted, first.Status)
	require.NotNil(t, first.Failure)
	assert.Equal(t, launch.KindTimeout, first.Failure.Kind)
	require.NotNil(t, first.Failure.TxHash)
	assert.Equal(t, initTx.Hash, *first.Failure.TxHash)
	assert.Contains(t, first.Failure.Guidance, "status unknown: check the explorer for tx "+initTx.Hash.Hex())

	records, err := f.store.Load(ctx, "acme-launch")
	require.NoError(t, err)
	pending := store.Fold(records)[launch.StageInitializePool].Pending
	require.NotNil(t, pending)
	assert.Equal(t, initTx.Hash, pending.TxHash)

	f.client.On("AwaitConfirmation", mock.Anything, hashIs(initTx.Hash), uint64(1)).
		Return(&launch.Receipt{TxHash: initTx.Hash, BlockNumber: 20}, nil)

	second, err := f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, launch.StatusCompleted, second.Status)
	assert.Equal(t, 1, f.client.SubmitCount(&managerAddr), "a pending submission is awaited, never resubmitted")
	assert.Equal(t, 1, f.estimates(f.isInitialize))
}

func TestLaunch_ConfirmationNotPersisted(t *testing.T) {
	st := &faultyStore{Store: memory.New(), failPhase: store.PhaseConfirmed}
	f := newFixture(t, st)
	f.expectDeploy()

	res, err := f.orch.Launch(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, launch.StatusPartiallyCompleted, res.Status)
	assert.Equal(t, []launch.OutcomeStatus{launch.OutcomeSuccess}, statuses(res))
	require.NotNil(t, res.Failure)
	assert.Equal(t, launch.KindInternal, res.Failure.Kind)
	assert.Contains(t, res.Failure.Detail, "disk full")
	assert.Equal(t, 0, f.submits(f.isWhitelist), "the run never advances past an unpersisted confirmation")
}

func TestLaunch_SubmissionNotPersisted(t *testing.T) {
	ctx := context.Background()

	t.Run("TimeoutWarnsAgainstRerun", func(t *testing.T) {
		st := &faultyStore{Store: memory.New(), failPhase: store.PhaseSubmitted}
		f := newFixture(t, st)
		f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isDeploy)).Return(testGas, nil)
		f.client.On("Submit", mock.Anything, mock.MatchedBy(f.isDeploy), testGas).Return(deployTx, nil)
		f.client.On("AwaitConfirmation", mock.Anything, hashIs(deployTx.Hash), uint64(1)).
			Return(nil, fmt.Errorf("%w: tx %s", launch.ErrConfirmationTimeout, deployTx.Hash.Hex()))

		res, err := f.orch.Launch(ctx, testRequest())
		require.NoError(t, err)

		assert.Equal(t, launch.StatusPartiallyCompleted, res.Status)
		require.NotNil(t, res.Failure)
		assert.Equal(t, launch.KindInternal, res.Failure.Kind)
		assert.Equal(t, launch.StageDeploy, res.Failure.Stage)
		assert.Contains(t, res.Failure.Detail, "disk full")
		require.NotNil(t, res.Failure.TxHash)
		assert.Equal(t, deployTx.Hash, *res.Failure.TxHash)
		assert.Contains(t, res.Failure.Guidance, deployTx.Hash.Hex()+" was broadcast but not recorded")
		assert.NotContains(t, res.Failure.Guidance, "resumes the wait")
		assert.Equal(t, 0, f.submits(f.isWhitelist))
	})

	t.Run("ConfirmedStillCompletes", func(t *testing.T) {
		st := &faultyStore{Store: memory.New(), failPhase: store.PhaseSubmitted}
		f := newFixture(t, st)
		f.expectDeploy()
		f.expectAuthorization()
		f.expectInitialize()

		res, err := f.orch.Launch(ctx, testRequest())
		require.NoError(t, err)
		assert.Equal(t, launch.StatusCompleted, res.Status)

		records, err := f.store.Load(ctx, "acme-launch")
		require.NoError(t, err)
		assert.NotNil(t, store.Fold(records)[launch.StageDeploy].Confirmed)
	})
}

func TestLaunch_HistoryUnavailable(t *testing.T) {
	st := &faultyStore{Store: memory.New(), failLoad: true}
	f := newFixture(t, st)

	_, err := f.orch.Launch(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load launch history")
	assert.Equal(t, 0, f.client.SubmitCount(nil))
}

func TestLaunch_RunInProgress(t *testing.T) {
	f := newFixture(t, nil)
	req := testRequest()

	require.True(t, f.orch.guard.acquire(req.Identity()))
	_, err := f.orch.Launch(context.Background(), req)
	assert.ErrorIs(t, err, ErrRunInProgress)

	f.orch.guard.release(req.Identity())
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isDeploy)).Return(uint64(0), errors.New("rejected"))
	_, err = f.orch.Launch(context.Background(), req)
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.orch.History(ctx, "acme-launch")
	assert.ErrorIs(t, err, store.ErrNotFound)

	f.expectDeploy()
	f.client.On("EstimateGas", mock.Anything, mock.MatchedBy(f.isWhitelist)).Return(uint64(0), errors.New("rejected"))
	_, err = f.orch.Launch(ctx, testRequest())
	require.NoError(t, err)

	records, err := f.orch.History(ctx, "acme-launch")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, store.PhaseSubmitted, records[0].Phase)
	assert.Equal(t, store.PhaseConfirmed, records[1].Phase)
	assert.Equal(t, uint64(10), records[1].BlockNumber)
}

func TestGuidance(t *testing.T) {
	hash := common.HexToHash("0xabc")
	tests := []struct {
		kind launch.ErrorKind
		want string
	}{
		{launch.KindValidation, "failed: request rejected"},
		{launch.KindPreflightRejection, "nothing was submitted"},
		{launch.KindSubmissionFailure, "network rejected"},
		{launch.KindRevert, hash.Hex() + " reverted"},
		{launch.KindTimeout, "status unknown: check the explorer for tx " + hash.Hex()},
		{launch.KindInternal, "launcher error"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Contains(t, guidance(tt.kind, &hash), tt.want)
		})
	}
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateInit.Terminal())
	assert.False(t, StateInitializingPool.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.True(t, StatePartiallyCompleted.Terminal())
}
