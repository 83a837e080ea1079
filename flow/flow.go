// api/flow/flow.go
package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/db"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// State is the lifecycle position of one guarded action flow.
type State string

const (
	// StateAwaitingReAuth holds a validated request waiting for the
	// operator to prove their identity.
	StateAwaitingReAuth State = "awaiting_reauth"
	// StateExecuting is transient while the action is applied; a flow in
	// this state can no longer be cancelled.
	StateExecuting State = "executing"
	// StateAwaitingAck holds the result until the operator acknowledges it.
	StateAwaitingAck State = "awaiting_ack"
	// StateClosed is terminal; closed flows are dropped from the registry.
	StateClosed State = "closed"
)

// maxReAuthAttempts closes the flow after this many failed proofs so an
// attacker holding a stolen operator session cannot brute-force the gate.
const maxReAuthAttempts = 5

// Flow is one in-flight guarded action. The stored result never carries
// the side-effect secret; that is surfaced exactly once, on the Confirm
// response that produced it.
type Flow struct {
	ID         string              `json:"id"`
	OperatorID string              `json:"operator_id"`
	Request    model.ActionRequest `json:"request"`
	State      State               `json:"state"`
	Attempts   int                 `json:"attempts"`
	CreatedAt  time.Time           `json:"created_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Result     *model.ActionResult `json:"result,omitempty"`

	mu sync.Mutex
}

func (f *Flow) expired() bool {
	return time.Now().After(f.ExpiresAt)
}

// snapshot copies the flow for handing outside the manager.
func (f *Flow) snapshot() *Flow {
	snap := &Flow{
		ID:         f.ID,
		OperatorID: f.OperatorID,
		Request:    f.Request,
		State:      f.State,
		Attempts:   f.Attempts,
		CreatedAt:  f.CreatedAt,
		ExpiresAt:  f.ExpiresAt,
	}
	if f.Result != nil {
		result := *f.Result
		snap.Result = &result
	}
	return snap
}

// Locker serializes flows per operator. The redis-backed implementation
// makes the one-open-flow rule hold across API instances.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}

type RedisLocker struct{}

func (RedisLocker) Lock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return db.LockResource(ctx, name, ttl)
}

func (RedisLocker) Unlock(ctx context.Context, name string) error {
	return db.UnlockResource(ctx, name)
}

// Service is the guarded action flow surface the HTTP layer drives.
type Service interface {
	Open(ctx context.Context, operatorID string, req model.ActionRequest) (*Flow, error)
	Get(ctx context.Context, flowID, operatorID string) (*Flow, error)
	Confirm(ctx context.Context, flowID, operatorID string, proof model.ReAuthProof) (*model.ActionResult, error)
	Ack(ctx context.Context, flowID, operatorID string) error
	Cancel(ctx context.Context, flowID, operatorID string) error
}

// Manager owns the in-memory flow registry and walks each flow through
// awaiting_reauth, executing, awaiting_ack and closed.
type Manager struct {
	gate       Gate
	executor   Executor
	locks      Locker
	validation *util.ValidationUtil
	ttl        time.Duration

	mu    sync.RWMutex
	flows map[string]*Flow
}

var _ Service = &Manager{}

func NewManager(gate Gate, executor Executor, locks Locker, ttl time.Duration) *Manager {
	return &Manager{
		gate:       gate,
		executor:   executor,
		locks:      locks,
		validation: util.NewValidationUtil(),
		ttl:        ttl,
		flows:      make(map[string]*Flow),
	}
}

func operatorLockName(operatorID string) string {
	return fmt.Sprintf("actionflow:%s", operatorID)
}

// Open validates the request and registers a new flow in awaiting_reauth.
// An operator can hold at most one open flow; nothing is executed here.
func (m *Manager) Open(ctx context.Context, operatorID string, req model.ActionRequest) (*Flow, error) {
	if err := m.validation.ValidateActionRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", accounts_errors.ErrInvalidAction, err)
	}

	locked, err := m.locks.Lock(ctx, operatorLockName(operatorID), m.ttl)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, accounts_errors.ErrFlowOpen
	}

	now := time.Now()
	flow := &Flow{
		ID:         uuid.New().String(),
		OperatorID: operatorID,
		Request:    req,
		State:      StateAwaitingReAuth,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sweepLocked()
	m.flows[flow.ID] = flow
	m.mu.Unlock()

	logger.Info("Action flow opened",
		zap.String("flowID", flow.ID),
		zap.String("operatorID", operatorID),
		zap.String("kind", string(req.Kind)),
		zap.String("targetID", req.TargetID))

	return flow.snapshot(), nil
}

func (m *Manager) Get(ctx context.Context, flowID, operatorID string) (*Flow, error) {
	flow, err := m.lookup(ctx, flowID, operatorID)
	if err != nil {
		return nil, err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()
	return flow.snapshot(), nil
}

// Confirm verifies the proof and, on success, applies the action. The
// returned result is the only response that ever carries the side-effect
// secret; the retained copy is scrubbed before it is stored. On a failed
// proof the flow keeps its request and stays in awaiting_reauth.
func (m *Manager) Confirm(ctx context.Context, flowID, operatorID string, proof model.ReAuthProof) (*model.ActionResult, error) {
	defer proof.Clear()

	flow, err := m.lookup(ctx, flowID, operatorID)
	if err != nil {
		return nil, err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != StateAwaitingReAuth {
		return nil, accounts_errors.ErrFlowState
	}

	if err := m.gate.Verify(ctx, operatorID, proof); err != nil {
		flow.Attempts++
		logger.Warn("Action flow re-auth failed",
			zap.String("flowID", flow.ID),
			zap.String("operatorID", operatorID),
			zap.Int("attempts", flow.Attempts))
		if flow.Attempts >= maxReAuthAttempts {
			m.close(ctx, flow)
		}
		return nil, accounts_errors.ErrReAuthFailed
	}

	flow.State = StateExecuting

	result, execErr := m.executor.Execute(ctx, flow.Request)
	if execErr != nil {
		result = &model.ActionResult{OK: false, Message: execErr.Error()}
	}

	stored := *result
	stored.SideEffect = ""
	flow.Result = &stored
	flow.State = StateAwaitingAck

	logger.Info("Action flow executed",
		zap.String("flowID", flow.ID),
		zap.String("kind", string(flow.Request.Kind)),
		zap.Bool("ok", result.OK))

	return result, nil
}

// Ack closes a flow that has delivered its result.
func (m *Manager) Ack(ctx context.Context, flowID, operatorID string) error {
	flow, err := m.lookup(ctx, flowID, operatorID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != StateAwaitingAck {
		return accounts_errors.ErrFlowState
	}

	m.close(ctx, flow)
	return nil
}

// Cancel abandons a flow before anything has run. Once execution starts
// the action is applied and only Ack can close the flow.
func (m *Manager) Cancel(ctx context.Context, flowID, operatorID string) error {
	flow, err := m.lookup(ctx, flowID, operatorID)
	if err != nil {
		return err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.State != StateAwaitingReAuth {
		return accounts_errors.ErrFlowNotCancelable
	}

	m.close(ctx, flow)

	logger.Info("Action flow cancelled",
		zap.String("flowID", flow.ID),
		zap.String("operatorID", operatorID))
	return nil
}

// lookup resolves a live flow owned by the operator. Expired flows and
// flows owned by someone else both read as not found.
func (m *Manager) lookup(ctx context.Context, flowID, operatorID string) (*Flow, error) {
	m.mu.RLock()
	flow, ok := m.flows[flowID]
	m.mu.RUnlock()

	if !ok || flow.OperatorID != operatorID {
		return nil, accounts_errors.ErrFlowNotFound
	}

	if flow.expired() {
		flow.mu.Lock()
		if flow.State != StateExecuting && flow.State != StateClosed {
			m.close(ctx, flow)
		}
		flow.mu.Unlock()
		return nil, accounts_errors.ErrFlowNotFound
	}

	return flow, nil
}

// close marks the flow closed, removes it from the registry and releases
// the operator lock. Callers hold flow.mu.
func (m *Manager) close(ctx context.Context, flow *Flow) {
	flow.State = StateClosed
	flow.Result = nil

	m.mu.Lock()
	delete(m.flows, flow.ID)
	m.mu.Unlock()

	if err := m.locks.Unlock(ctx, operatorLockName(flow.OperatorID)); err != nil {
		logger.Warn("Failed to release operator flow lock",
			zap.String("operatorID", flow.OperatorID), zap.Error(err))
	}
}

// sweepLocked drops expired idle flows. Callers hold m.mu; the redis
// lock for a swept flow has already expired with the same TTL.
func (m *Manager) sweepLocked() {
	for id, flow := range m.flows {
		if flow.expired() && flow.State != StateExecuting {
			delete(m.flows, id)
		}
	}
}
