package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/logger"
)

// Store is the durable proposal store the engine drives. Create and Update
// commit the proposal mutation and its audit entries as one atomic unit: if
// any audit append fails the whole transition must be rolled back. Update is
// compare-and-swap on Proposal.Version and fails with apperr.CodeConflict
// when another transition committed first. Both assign audit entry ids and
// timestamps in insertion order.
type Store interface {
	Create(ctx context.Context, p *Proposal, entry *AuditEntry) error
	Get(ctx context.Context, id int64) (*Proposal, error)
	List(ctx context.Context) ([]*Proposal, error)
	Update(ctx context.Context, p *Proposal, entries ...*AuditEntry) error
}

// AuditLog reads the append-only audit trail.
type AuditLog interface {
	// Query returns entries in ascending id order, optionally filtered to
	// one proposal.
	Query(ctx context.Context, proposalID *int64) ([]*AuditEntry, error)
}

// Notifier publishes best-effort workflow event notifications. Publish
// failures must never affect the outcome of a transition.
type Notifier interface {
	PublishProposalEvent(ctx context.Context, event string, proposalID int64, actor string, payload map[string]any)
}

// Engine owns the proposal entity and enforces its state machine. Every
// operation is a single atomic unit: load, validate, mutate, persist and
// audit together. Concurrent transitions on one proposal are serialized by
// the store's compare-and-swap; the loser surfaces apperr.CodeConflict,
// which is safe to retry.
type Engine struct {
	store    Store
	audit    AuditLog
	chain    *Chain
	notifier Notifier
	log      *logger.Logger
}

// NewEngine creates the workflow engine. notifier may be nil.
func NewEngine(store Store, audit AuditLog, chain *Chain, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		audit:    audit,
		chain:    chain,
		notifier: notifier,
		log:      log,
	}
}

// CreateRequest carries the attributes of a new proposal.
type CreateRequest struct {
	Title         string `json:"title"`
	ApplicantName string `json:"applicantName"`
	Amount        Amount `json:"amount"`
	Description   string `json:"description"`
}

// Create makes a new DRAFT proposal and records PROPOSAL_CREATED.
func (e *Engine) Create(ctx context.Context, req *CreateRequest, actor string) (*Proposal, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.InvalidInput("title", "title is required")
	}
	if strings.TrimSpace(req.ApplicantName) == "" {
		return nil, apperr.InvalidInput("applicantName", "applicant name is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperr.InvalidInput("description", "description is required")
	}
	if _, err := ParseAmount(req.Amount.String()); err != nil {
		return nil, err
	}

	p := &Proposal{
		Title:            req.Title,
		ApplicantName:    req.ApplicantName,
		Amount:           req.Amount,
		Description:      req.Description,
		Status:           StatusDraft,
		CurrentStepIndex: 0,
		Steps:            []*ApprovalStep{},
	}

	entry := &AuditEntry{
		Action:  ActionProposalCreated,
		Actor:   actor,
		Details: strPtr(fmt.Sprintf("Title %q, amount %s", p.Title, p.Amount)),
	}

	if err := e.store.Create(ctx, p, entry); err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("proposal_id", p.ID).
		Str("actor", actor).
		Msg("proposal created")
	e.notify(ctx, "proposal_created", p.ID, actor, map[string]any{"title": p.Title})

	return p, nil
}

// Submit moves a DRAFT proposal into review, baking in the approval chain.
// The selection either names a custom ordered chain or picks the configured
// default. All steps start PENDING and the first becomes current.
func (e *Engine) Submit(ctx context.Context, id int64, sel Selection, actor string) (*Proposal, error) {
	names, err := e.chain.Resolve(sel)
	if err != nil {
		return nil, err
	}

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusDraft {
		return nil, apperr.InvalidState(fmt.Sprintf(
			"proposal %d cannot be submitted from status %s", id, p.Status))
	}

	steps := make([]*ApprovalStep, len(names))
	for i, name := range names {
		steps[i] = &ApprovalStep{
			ID:     int64(i + 1),
			Name:   name,
			Status: StepPending,
		}
	}
	p.Steps = steps
	p.CurrentStepIndex = 0
	p.Status = StatusUnderReview

	entry := &AuditEntry{
		ProposalID: p.ID,
		Action:     ActionProposalSubmitted,
		Actor:      actor,
		Details:    strPtr("Chain: " + strings.Join(names, ", ")),
	}

	if err := e.store.Update(ctx, p, entry); err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("proposal_id", p.ID).
		Int("steps", len(steps)).
		Str("actor", actor).
		Msg("proposal submitted for review")
	e.notify(ctx, "proposal_submitted", p.ID, actor, map[string]any{"steps": names})

	return p, nil
}

// ApproveStep resolves the current step to APPROVED. On a non-final step the
// index advances and the proposal stays UNDER_REVIEW; on the final step the
// proposal becomes APPROVED (terminal) and an extra PROPOSAL_APPROVED audit
// entry is recorded.
func (e *Engine) ApproveStep(ctx context.Context, id int64, approver string, comments *string) (*Proposal, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, apperr.InvalidInput("approver", "approver is required")
	}

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusUnderReview {
		return nil, apperr.InvalidState(fmt.Sprintf(
			"proposal %d is not under review (status %s)", id, p.Status))
	}

	step := p.CurrentStep()
	resolveStep(step, StepApproved, approver, comments)

	entries := []*AuditEntry{{
		ProposalID: p.ID,
		Action:     ActionStepApproved,
		Actor:      approver,
		Details:    strPtr(fmt.Sprintf("Step %d (%s) approved", step.ID, step.Name)),
	}}

	final := p.CurrentStepIndex == len(p.Steps)-1
	if final {
		p.Status = StatusApproved
		entries = append(entries, &AuditEntry{
			ProposalID: p.ID,
			Action:     ActionProposalApproved,
			Actor:      approver,
			Details:    strPtr(fmt.Sprintf("All %d steps approved", len(p.Steps))),
		})
	} else {
		p.CurrentStepIndex++
	}

	if err := e.store.Update(ctx, p, entries...); err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("proposal_id", p.ID).
		Str("step", step.Name).
		Bool("final", final).
		Str("approver", approver).
		Msg("approval step resolved")
	e.notify(ctx, "step_approved", p.ID, approver, map[string]any{"step": step.Name})
	if final {
		e.notify(ctx, "proposal_approved", p.ID, approver, nil)
	}

	return p, nil
}

// RejectProposal resolves the current step to REJECTED and terminates the
// proposal. A single rejection is final: remaining steps stay PENDING and
// are never evaluated. Comments are mandatory; a rejection must be justified.
func (e *Engine) RejectProposal(ctx context.Context, id int64, approver, comments string) (*Proposal, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, apperr.InvalidInput("approver", "approver is required")
	}
	if strings.TrimSpace(comments) == "" {
		return nil, apperr.InvalidInput("comments", "rejection comments are required")
	}

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusUnderReview {
		return nil, apperr.InvalidState(fmt.Sprintf(
			"proposal %d is not under review (status %s)", id, p.Status))
	}

	step := p.CurrentStep()
	resolveStep(step, StepRejected, approver, &comments)
	p.Status = StatusRejected

	entry := &AuditEntry{
		ProposalID: p.ID,
		Action:     ActionProposalRejected,
		Actor:      approver,
		Details:    strPtr(fmt.Sprintf("Step %d (%s) rejected: %s", step.ID, step.Name, comments)),
	}

	if err := e.store.Update(ctx, p, entry); err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("proposal_id", p.ID).
		Str("step", step.Name).
		Str("approver", approver).
		Msg("proposal rejected")
	e.notify(ctx, "proposal_rejected", p.ID, approver, map[string]any{"step": step.Name, "reason": comments})

	return p, nil
}

// Get returns one proposal.
func (e *Engine) Get(ctx context.Context, id int64) (*Proposal, error) {
	return e.store.Get(ctx, id)
}

// List returns all proposals in ascending id order (creation order).
func (e *Engine) List(ctx context.Context) ([]*Proposal, error) {
	return e.store.List(ctx)
}

// AuditTrail returns audit entries in ascending id order, optionally
// filtered to one proposal.
func (e *Engine) AuditTrail(ctx context.Context, proposalID *int64) ([]*AuditEntry, error) {
	return e.audit.Query(ctx, proposalID)
}

func resolveStep(step *ApprovalStep, status StepStatus, approver string, comments *string) {
	now := time.Now().UTC()
	step.Status = status
	step.Approver = &approver
	step.CompletedAt = &now
	if comments != nil && strings.TrimSpace(*comments) != "" {
		step.Comments = comments
	}
}

func (e *Engine) notify(ctx context.Context, event string, proposalID int64, actor string, payload map[string]any) {
	if e.notifier == nil {
		return
	}
	e.notifier.PublishProposalEvent(ctx, event, proposalID, actor, payload)
}

func strPtr(s string) *string { return &s }
