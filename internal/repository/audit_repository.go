package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/database"
	"github.com/trustvest/be-proposals/internal/workflow"
)

// AuditRepository reads the append-only audit log. Writes only happen inside
// a proposal transition's transaction (appendTx, called by
// ProposalRepository); the table carries a trigger rejecting updates and
// deletes, so append is the only mutation that can succeed.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// appendTx inserts one audit entry within the caller's transaction,
// assigning the next id and the commit timestamp. A failure here aborts the
// enclosing transition.
func (r *AuditRepository) appendTx(ctx context.Context, tx pgx.Tx, entry *workflow.AuditEntry) error {
	query := `
		INSERT INTO audit_log (proposal_id, action, actor, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		entry.ProposalID,
		string(entry.Action),
		entry.Actor,
		entry.Details,
	).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to append audit entry")
	}
	return nil
}

// Query returns audit entries in ascending id order, optionally filtered to
// one proposal.
func (r *AuditRepository) Query(ctx context.Context, proposalID *int64) ([]*workflow.AuditEntry, error) {
	query := `
		SELECT id, proposal_id, action, actor, created_at, details
		FROM audit_log
		WHERE ($1::bigint IS NULL OR proposal_id = $1)
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, proposalID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query audit log")
	}
	defer rows.Close()

	entries := []*workflow.AuditEntry{}
	for rows.Next() {
		entry := &workflow.AuditEntry{}
		var action string
		err := rows.Scan(&entry.ID, &entry.ProposalID, &action,
			&entry.Actor, &entry.Timestamp, &entry.Details)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan audit entry")
		}
		entry.Action = workflow.AuditAction(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query audit log")
	}
	return entries, nil
}
