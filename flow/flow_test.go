// api/flow/flow_test.go
package flow_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/flow"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "flowtest")
	if err != nil {
		panic(err)
	}
	logger.InitLogger(dir)
	code := m.Run()
	logger.Sync()
	os.RemoveAll(dir)
	os.Exit(code)
}

type fakeGate struct {
	err   error
	calls int
}

func (g *fakeGate) Verify(ctx context.Context, userID string, proof model.ReAuthProof) error {
	g.calls++
	return g.err
}

type fakeExecutor struct {
	result *model.ActionResult
	err    error
	calls  int
	last   model.ActionRequest
}

func (e *fakeExecutor) Execute(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	e.calls++
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type memLocker struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]bool)}
}

func (l *memLocker) Lock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[name] {
		return false, nil
	}
	l.locks[name] = true
	return true, nil
}

func (l *memLocker) Unlock(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

func validRequest() model.ActionRequest {
	return model.ActionRequest{
		Kind:     model.ActionLock,
		TargetID: "user-42",
		Reason:   "fraud report #8841 confirmed by payments team",
	}
}

func validProof() model.ReAuthProof {
	return model.ReAuthProof{Mode: model.ReAuthModePassword, Secret: "hunter2-hunter2"}
}

func TestOpenRejectsInvalidRequest(t *testing.T) {
	locker := newMemLocker()
	manager := flow.NewManager(&fakeGate{}, &fakeExecutor{}, locker, time.Minute)
	ctx := context.Background()

	req := validRequest()
	req.Reason = "short"
	_, err := manager.Open(ctx, "op-1", req)
	assert.ErrorIs(t, err, accounts_errors.ErrInvalidAction)

	req = validRequest()
	req.Kind = "DELETE_EVERYTHING"
	_, err = manager.Open(ctx, "op-1", req)
	assert.ErrorIs(t, err, accounts_errors.ErrInvalidAction)

	// A rejected request must not consume the operator's flow slot.
	_, err = manager.Open(ctx, "op-1", validRequest())
	assert.NoError(t, err)
}

func TestOpenSecondFlowBlocked(t *testing.T) {
	manager := flow.NewManager(&fakeGate{}, &fakeExecutor{}, newMemLocker(), time.Minute)
	ctx := context.Background()

	_, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	_, err = manager.Open(ctx, "op-1", validRequest())
	assert.ErrorIs(t, err, accounts_errors.ErrFlowOpen)

	// A different operator is not affected.
	_, err = manager.Open(ctx, "op-2", validRequest())
	assert.NoError(t, err)
}

func TestConfirmFailedProofKeepsFlowPending(t *testing.T) {
	gate := &fakeGate{err: accounts_errors.ErrReAuthFailed}
	executor := &fakeExecutor{result: &model.ActionResult{OK: true}}
	manager := flow.NewManager(gate, executor, newMemLocker(), time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	_, err = manager.Confirm(ctx, opened.ID, "op-1", validProof())
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)
	assert.Equal(t, 0, executor.calls)

	// The flow keeps its captured request and waits for another proof.
	got, err := manager.Get(ctx, opened.ID, "op-1")
	require.NoError(t, err)
	assert.Equal(t, flow.StateAwaitingReAuth, got.State)
	assert.Equal(t, opened.Request, got.Request)
	assert.Equal(t, 1, got.Attempts)
}

func TestConfirmSuccessExecutesAndRevealsOnce(t *testing.T) {
	executor := &fakeExecutor{result: &model.ActionResult{
		OK:         true,
		Message:    "temporary password issued",
		SideEffect: "Tmp-SECRET!7",
	}}
	manager := flow.NewManager(&fakeGate{}, executor, newMemLocker(), time.Minute)
	ctx := context.Background()

	req := validRequest()
	req.Kind = model.ActionResetPassword
	opened, err := manager.Open(ctx, "op-1", req)
	require.NoError(t, err)

	result, err := manager.Confirm(ctx, opened.ID, "op-1", validProof())
	require.NoError(t, err)
	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, req, executor.last)
	assert.Equal(t, "Tmp-SECRET!7", result.SideEffect)

	// The secret is gone from every later read of the flow.
	got, err := manager.Get(ctx, opened.ID, "op-1")
	require.NoError(t, err)
	assert.Equal(t, flow.StateAwaitingAck, got.State)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.OK)
	assert.Empty(t, got.Result.SideEffect)

	// A second confirm must not run the action again.
	_, err = manager.Confirm(ctx, opened.ID, "op-1", validProof())
	assert.ErrorIs(t, err, accounts_errors.ErrFlowState)
	assert.Equal(t, 1, executor.calls)
}

func TestConfirmExecutorErrorBecomesFailedResult(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("neo4j unavailable")}
	manager := flow.NewManager(&fakeGate{}, executor, newMemLocker(), time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	result, err := manager.Confirm(ctx, opened.ID, "op-1", validProof())
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "neo4j unavailable")

	got, err := manager.Get(ctx, opened.ID, "op-1")
	require.NoError(t, err)
	assert.Equal(t, flow.StateAwaitingAck, got.State)
}

func TestCancelOnlyBeforeExecution(t *testing.T) {
	executor := &fakeExecutor{result: &model.ActionResult{OK: true}}
	locker := newMemLocker()
	manager := flow.NewManager(&fakeGate{}, executor, locker, time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	require.NoError(t, manager.Cancel(ctx, opened.ID, "op-1"))
	_, err = manager.Get(ctx, opened.ID, "op-1")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)

	// Cancelling released the operator slot.
	opened, err = manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	_, err = manager.Confirm(ctx, opened.ID, "op-1", validProof())
	require.NoError(t, err)

	err = manager.Cancel(ctx, opened.ID, "op-1")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotCancelable)
}

func TestAckClosesFlowAndReleasesOperator(t *testing.T) {
	executor := &fakeExecutor{result: &model.ActionResult{OK: true}}
	manager := flow.NewManager(&fakeGate{}, executor, newMemLocker(), time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	// Ack is only valid once a result exists.
	assert.ErrorIs(t, manager.Ack(ctx, opened.ID, "op-1"), accounts_errors.ErrFlowState)

	_, err = manager.Confirm(ctx, opened.ID, "op-1", validProof())
	require.NoError(t, err)
	require.NoError(t, manager.Ack(ctx, opened.ID, "op-1"))

	_, err = manager.Get(ctx, opened.ID, "op-1")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)

	_, err = manager.Open(ctx, "op-1", validRequest())
	assert.NoError(t, err)
}

func TestRepeatedFailedProofsCloseFlow(t *testing.T) {
	gate := &fakeGate{err: accounts_errors.ErrReAuthFailed}
	manager := flow.NewManager(gate, &fakeExecutor{}, newMemLocker(), time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = manager.Confirm(ctx, opened.ID, "op-1", validProof())
		assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)
	}

	_, err = manager.Get(ctx, opened.ID, "op-1")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)
}

func TestFlowHiddenFromOtherOperators(t *testing.T) {
	manager := flow.NewManager(&fakeGate{}, &fakeExecutor{}, newMemLocker(), time.Minute)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	_, err = manager.Get(ctx, opened.ID, "op-2")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)

	_, err = manager.Confirm(ctx, opened.ID, "op-2", validProof())
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)

	err = manager.Cancel(ctx, opened.ID, "op-2")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)
}

func TestExpiredFlowReadsAsNotFound(t *testing.T) {
	locker := newMemLocker()
	manager := flow.NewManager(&fakeGate{}, &fakeExecutor{}, locker, 10*time.Millisecond)
	ctx := context.Background()

	opened, err := manager.Open(ctx, "op-1", validRequest())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = manager.Get(ctx, opened.ID, "op-1")
	assert.ErrorIs(t, err, accounts_errors.ErrFlowNotFound)

	// Expiry released the operator slot.
	_, err = manager.Open(ctx, "op-1", validRequest())
	assert.NoError(t, err)
}
