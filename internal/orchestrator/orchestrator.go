// Package orchestrator sequences the ingestion pipeline per conversation: it
// accepts caller turns, drives normalization, extraction and reconciliation,
// and commits on explicit confirmation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/conversation"
	"github.com/hsaleh/chequeflow/internal/extract"
	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/normalize"
	"github.com/hsaleh/chequeflow/internal/reconcile"
	"github.com/hsaleh/chequeflow/internal/service"
)

// Config holds orchestrator tuning knobs.
type Config struct {
	// MaxConcurrentCalls bounds in-flight normalize/extract work across all
	// sessions so an upload burst cannot exhaust external-call capacity.
	MaxConcurrentCalls int64
	// CallTimeout bounds one normalize+extract pass.
	CallTimeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentCalls: 4,
		CallTimeout:        90 * time.Second,
	}
}

// TurnInput is one caller turn: an optional artifact and/or free text.
type TurnInput struct {
	Artifact []byte
	MIMEType string
	Text     string
}

// TurnResult is what a turn returns to the caller.
type TurnResult struct {
	Session   *model.Session
	Committed *model.Transaction
	Message   string
}

// Orchestrator is the per-session state machine over the pipeline components.
type Orchestrator struct {
	sessions   *conversation.Store
	normalizer *normalize.Normalizer
	adapter    *extract.Adapter
	engine     *reconcile.Engine
	ledger     service.Ledger
	limiter    *semaphore.Weighted
	config     Config
}

// New creates an orchestrator over the given components.
func New(sessions *conversation.Store, normalizer *normalize.Normalizer, adapter *extract.Adapter, engine *reconcile.Engine, ledger service.Ledger, config Config) *Orchestrator {
	if config.MaxConcurrentCalls <= 0 {
		config.MaxConcurrentCalls = DefaultConfig().MaxConcurrentCalls
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Orchestrator{
		sessions:   sessions,
		normalizer: normalizer,
		adapter:    adapter,
		engine:     engine,
		ledger:     ledger,
		limiter:    semaphore.NewWeighted(config.MaxConcurrentCalls),
		config:     config,
	}
}

// StartSession creates a new session awaiting material.
func (o *Orchestrator) StartSession(_ context.Context) (*TurnResult, error) {
	key := o.sessions.Create()
	sess, err := o.sessions.Get(key)
	if err != nil {
		return nil, err
	}
	slog.Info("Started session", "session", key)
	return &TurnResult{Session: sess, Message: greetingMessage()}, nil
}

// HandleTurn processes one caller turn. Turns for a single session are
// serialized by the conversation store's per-session lock, which is held for
// the whole turn including external calls.
func (o *Orchestrator) HandleTurn(ctx context.Context, key string, input TurnInput) (*TurnResult, error) {
	if len(input.Artifact) == 0 && strings.TrimSpace(input.Text) == "" {
		return nil, common.NewUserError("a turn needs an artifact or text", common.ErrValidation)
	}

	h, err := o.sessions.Acquire(key)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	sess := h.Session()
	if sess.State.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", common.ErrSessionClosed, sess.State)
	}

	turnIdx := h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: input.Text})
	h.SetState(model.StateExtracting)

	partial, err := o.extractTurn(ctx, h, input, turnIdx)
	if err != nil {
		return nil, o.failTurn(h, err)
	}

	h.MergeCandidate(partial)
	return o.reconcileAndRespond(ctx, h)
}

// extractTurn produces candidate fields for one turn. Inline "field: value"
// text is applied directly as corrections; anything else goes through the
// recognition adapter, under the shared concurrency limiter.
func (o *Orchestrator) extractTurn(ctx context.Context, h *conversation.Handle, input TurnInput, turnIdx int) (model.Candidate, error) {
	if len(input.Artifact) == 0 {
		if corrections, ok := extract.ParseCorrections(input.Text, turnIdx); ok {
			return corrections, nil
		}
	}

	if err := o.limiter.Acquire(ctx, 1); err != nil {
		return model.Candidate{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}
	defer o.limiter.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, o.config.CallTimeout)
	defer cancel()

	var img *normalize.NormalizedImage
	if len(input.Artifact) > 0 {
		normalized, err := o.normalizer.Normalize(input.Artifact, input.MIMEType)
		if err != nil {
			return model.Candidate{}, err
		}
		img = normalized
		h.Session().Turns[turnIdx].ImageRef = fmt.Sprintf("turn-%d.png", turnIdx)
	}

	return o.adapter.Extract(callCtx, img, input.Text, h.Session().Candidate, turnIdx)
}

// failTurn routes a turn failure to the right state. Validation and
// conversion failures leave the session awaiting material so the caller can
// re-upload; extraction failures move it to Failed with the accumulated
// candidate preserved.
func (o *Orchestrator) failTurn(h *conversation.Handle, err error) error {
	if common.IsRetryable(err) || isExtractionFailure(err) {
		h.SetState(model.StateFailed)
		h.AppendTurn(model.Turn{Actor: model.ActorSystem, Text: extractionFailedMessage()})
		slog.Error("Turn failed, session preserved for retry",
			"session", h.Session().Key, "error", err)
	} else {
		h.SetState(model.StateAwaitingMaterial)
	}
	return err
}

func isExtractionFailure(err error) bool {
	return errors.Is(err, common.ErrExtraction) || errors.Is(err, common.ErrMaxRetries)
}

// reconcileAndRespond runs reconciliation on the accumulated candidate and
// moves the session to the state the outcome dictates.
func (o *Orchestrator) reconcileAndRespond(ctx context.Context, h *conversation.Handle) (*TurnResult, error) {
	result, err := o.engine.Reconcile(ctx, h.Session().Candidate)
	if err != nil {
		return nil, o.failTurn(h, err)
	}

	var message string
	switch result.Outcome {
	case reconcile.Resolved:
		h.SetDraft(result.Draft)
		h.SetState(model.StateAwaitingConfirmation)
		message = draftMessage(result.Draft)
	case reconcile.Ambiguous:
		h.SetDraft(nil)
		h.SetState(model.StateAwaitingMaterial)
		message = ambiguousMessage(result.Candidates)
	default:
		h.SetDraft(nil)
		h.SetState(model.StateAwaitingMaterial)
		message = needsInputMessage(result.Missing)
	}

	h.AppendTurn(model.Turn{Actor: model.ActorSystem, Text: message})
	return &TurnResult{Session: h.Snapshot(), Message: message}, nil
}

// Confirm commits the session's draft. Optional corrections are merged first
// and reconciliation re-runs without a recognition call; if the result is no
// longer resolved, the next-step prompt is returned instead of committing.
func (o *Orchestrator) Confirm(ctx context.Context, key string, corrections map[string]string) (*TurnResult, error) {
	h, err := o.sessions.Acquire(key)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	sess := h.Session()
	if sess.State.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", common.ErrSessionClosed, sess.State)
	}

	if len(corrections) > 0 {
		turnIdx := h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "field corrections"})
		h.MergeCandidate(extract.ApplyFieldCorrections(corrections, turnIdx))
		// A correction invalidates the standing draft until re-reconciled.
		h.SetDraft(nil)
	}

	if sess.Draft == nil {
		return o.reconcileAndRespond(ctx, h)
	}

	txn, err := o.ledger.Commit(ctx, sess.Draft)
	if err != nil {
		// Draft stays in place so the caller can retry the commit
		// without re-extraction.
		h.SetState(model.StateFailed)
		common.LogError(err, "Commit failed, draft preserved", common.Fields{"session": key})
		return nil, err
	}

	message := committedMessage(txn)
	h.AppendTurn(model.Turn{Actor: model.ActorSystem, Text: message})
	h.SetState(model.StateCommitted)
	snapshot := h.Snapshot()
	h.Close()

	slog.Info("Session committed", "session", key, "transaction_id", txn.ID)
	return &TurnResult{Session: snapshot, Committed: txn, Message: message}, nil
}

// Cancel terminates a session. Idempotent: cancelling an unknown or already
// cancelled session succeeds.
func (o *Orchestrator) Cancel(_ context.Context, key string) (*TurnResult, error) {
	h, err := o.sessions.Acquire(key)
	if err != nil {
		// Already evicted, committed or cancelled.
		return &TurnResult{Message: "Session cancelled."}, nil
	}
	defer h.Release()

	h.SetState(model.StateCancelled)
	snapshot := h.Snapshot()
	h.Close()

	slog.Info("Session cancelled", "session", key)
	return &TurnResult{Session: snapshot, Message: "Session cancelled."}, nil
}

// GetSession returns a snapshot of a live session.
func (o *Orchestrator) GetSession(key string) (*model.Session, error) {
	return o.sessions.Get(key)
}
