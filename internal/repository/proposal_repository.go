// Package repository provides the durable proposal store and audit log. The
// Postgres implementations commit each workflow transition and its audit
// entries in a single transaction; the in-memory implementation mirrors the
// same semantics for tests and local runs.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/database"
	"github.com/trustvest/be-proposals/internal/workflow"
)

// ProposalRepository is the Postgres-backed workflow.Store. Updates are
// compare-and-swap on the version column so concurrent transitions on one
// proposal cannot silently overwrite each other.
type ProposalRepository struct {
	db    *database.DB
	audit *AuditRepository
}

// NewProposalRepository creates a ProposalRepository writing audit entries
// through the given audit repository in the same transaction.
func NewProposalRepository(db *database.DB, audit *AuditRepository) *ProposalRepository {
	return &ProposalRepository{db: db, audit: audit}
}

// Create inserts the proposal and its PROPOSAL_CREATED audit entry in one
// transaction, assigning the proposal id.
func (r *ProposalRepository) Create(ctx context.Context, p *workflow.Proposal, entry *workflow.AuditEntry) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO proposals
			    (title, applicant_name, amount, description, status, current_step_index)
			VALUES ($1, $2, $3::numeric, $4, $5::proposal_status, $6)
			RETURNING id, version, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			p.Title,
			p.ApplicantName,
			p.Amount.String(),
			p.Description,
			p.Status.String(),
			p.CurrentStepIndex,
		).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeStorage, "failed to create proposal")
		}

		entry.ProposalID = p.ID
		return r.audit.appendTx(ctx, tx, entry)
	})
}

// Get loads a proposal with its steps.
func (r *ProposalRepository) Get(ctx context.Context, id int64) (*workflow.Proposal, error) {
	query := `
		SELECT id, title, applicant_name, amount::text, description,
		       status, current_step_index, version, created_at, updated_at
		FROM proposals
		WHERE id = $1
	`

	p, err := scanProposal(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("proposal", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load proposal")
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Steps = steps
	return p, nil
}

// List returns all proposals with their steps in ascending id order.
func (r *ProposalRepository) List(ctx context.Context) ([]*workflow.Proposal, error) {
	query := `
		SELECT id, title, applicant_name, amount::text, description,
		       status, current_step_index, version, created_at, updated_at
		FROM proposals
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to list proposals")
	}
	defer rows.Close()

	proposals := []*workflow.Proposal{}
	byID := map[int64]*workflow.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan proposal")
		}
		p.Steps = []*workflow.ApprovalStep{}
		proposals = append(proposals, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to list proposals")
	}

	stepQuery := `
		SELECT proposal_id, id, name, status, approver, comments, completed_at
		FROM approval_steps
		ORDER BY proposal_id ASC, id ASC
	`
	stepRows, err := r.db.Query(ctx, stepQuery)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to list approval steps")
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var proposalID int64
		step := &workflow.ApprovalStep{}
		var status string
		err := stepRows.Scan(&proposalID, &step.ID, &step.Name, &status,
			&step.Approver, &step.Comments, &step.CompletedAt)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan approval step")
		}
		step.Status = workflow.StepStatus(status)
		if p, ok := byID[proposalID]; ok {
			p.Steps = append(p.Steps, step)
		}
	}
	if err := stepRows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to list approval steps")
	}

	return proposals, nil
}

// Update commits a transition: the proposal row is updated with a
// compare-and-swap on version, step rows are upserted, and the audit entries
// are appended, all in one transaction. A lost CAS surfaces CodeConflict.
func (r *ProposalRepository) Update(ctx context.Context, p *workflow.Proposal, entries ...*workflow.AuditEntry) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE proposals
			SET status             = $2::proposal_status,
			    current_step_index = $3,
			    version            = version + 1,
			    updated_at         = NOW()
			WHERE id = $1 AND version = $4
			RETURNING version, updated_at
		`

		err := tx.QueryRow(ctx, query,
			p.ID, p.Status.String(), p.CurrentStepIndex, p.Version,
		).Scan(&p.Version, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM proposals WHERE id = $1)`, p.ID,
			).Scan(&exists); checkErr != nil {
				return apperr.Wrap(checkErr, apperr.CodeStorage, "failed to update proposal")
			}
			if !exists {
				return apperr.NotFound("proposal", p.ID)
			}
			return apperr.Conflict(fmt.Sprintf(
				"proposal %d was modified concurrently", p.ID))
		}
		if err != nil {
			return apperr.Wrap(err, apperr.CodeStorage, "failed to update proposal")
		}

		stepQuery := `
			INSERT INTO approval_steps
			    (proposal_id, id, name, status, approver, comments, completed_at)
			VALUES ($1, $2, $3, $4::step_status, $5, $6, $7)
			ON CONFLICT (proposal_id, id) DO UPDATE
			SET status       = EXCLUDED.status,
			    approver     = EXCLUDED.approver,
			    comments     = EXCLUDED.comments,
			    completed_at = EXCLUDED.completed_at
		`
		for _, step := range p.Steps {
			_, err := tx.Exec(ctx, stepQuery,
				p.ID, step.ID, step.Name, step.Status.String(),
				step.Approver, step.Comments, step.CompletedAt)
			if err != nil {
				return apperr.Wrap(err, apperr.CodeStorage, "failed to write approval step")
			}
		}

		for _, entry := range entries {
			entry.ProposalID = p.ID
			if err := r.audit.appendTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (*workflow.Proposal, error) {
	p := &workflow.Proposal{}
	var amount, status string
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.ApplicantName,
		&amount,
		&p.Description,
		&status,
		&p.CurrentStepIndex,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Amount = workflow.Amount(amount)
	p.Status = workflow.ProposalStatus(status)
	return p, nil
}

func (r *ProposalRepository) loadSteps(ctx context.Context, proposalID int64) ([]*workflow.ApprovalStep, error) {
	query := `
		SELECT id, name, status, approver, comments, completed_at
		FROM approval_steps
		WHERE proposal_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, proposalID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load approval steps")
	}
	defer rows.Close()

	steps := []*workflow.ApprovalStep{}
	for rows.Next() {
		step := &workflow.ApprovalStep{}
		var status string
		err := rows.Scan(&step.ID, &step.Name, &status,
			&step.Approver, &step.Comments, &step.CompletedAt)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan approval step")
		}
		step.Status = workflow.StepStatus(status)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load approval steps")
	}
	return steps, nil
}
