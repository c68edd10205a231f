// Package workflow owns the proposal approval domain: the proposal and step
// entities, their state machines, the approval chain policy and the engine
// that drives transitions.
package workflow

import "time"

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus string

const (
	StatusDraft       ProposalStatus = "DRAFT"
	StatusUnderReview ProposalStatus = "UNDER_REVIEW"
	StatusApproved    ProposalStatus = "APPROVED"
	StatusRejected    ProposalStatus = "REJECTED"
)

var terminalStatuses = map[ProposalStatus]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// IsTerminal reports whether the status admits no further transitions.
func (s ProposalStatus) IsTerminal() bool { return terminalStatuses[s] }

func (s ProposalStatus) String() string { return string(s) }

// StepStatus is the state of a single approval step.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
)

func (s StepStatus) String() string { return string(s) }

// AuditAction names an event recorded in the audit trail.
type AuditAction string

const (
	ActionProposalCreated   AuditAction = "PROPOSAL_CREATED"
	ActionProposalSubmitted AuditAction = "PROPOSAL_SUBMITTED"
	ActionStepApproved      AuditAction = "STEP_APPROVED"
	ActionProposalApproved  AuditAction = "PROPOSAL_APPROVED"
	ActionProposalRejected  AuditAction = "PROPOSAL_REJECTED"
)

// Proposal is the unit of approval work.
//
// Invariants maintained by the engine: Steps is empty exactly while status is
// DRAFT; CurrentStepIndex indexes Steps while UNDER_REVIEW; status is fully
// determined by the step outcomes.
type Proposal struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	ApplicantName    string          `json:"applicantName"`
	Amount           Amount          `json:"amount"`
	Description      string          `json:"description"`
	Status           ProposalStatus  `json:"status"`
	CurrentStepIndex int             `json:"currentStepIndex"`
	Steps            []*ApprovalStep `json:"steps"`

	// Version backs the store's compare-and-swap; not part of the contract.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// CurrentStep returns the pending step under review, or nil when the
// proposal is not UNDER_REVIEW.
func (p *Proposal) CurrentStep() *ApprovalStep {
	if p.Status != StatusUnderReview {
		return nil
	}
	if p.CurrentStepIndex < 0 || p.CurrentStepIndex >= len(p.Steps) {
		return nil
	}
	return p.Steps[p.CurrentStepIndex]
}

// Clone returns a deep copy.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	cp.Steps = make([]*ApprovalStep, len(p.Steps))
	for i, s := range p.Steps {
		step := *s
		cp.Steps[i] = &step
	}
	return &cp
}

// ApprovalStep is one named gate in a proposal's approval chain. Steps are
// created in bulk at submission and resolve exactly once.
type ApprovalStep struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Approver    *string    `json:"approver,omitempty"`
	Comments    *string    `json:"comments,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AuditEntry is one immutable record of an action taken against a proposal.
// IDs are assigned by the audit log in insertion order.
type AuditEntry struct {
	ID         int64       `json:"id"`
	ProposalID int64       `json:"proposalId"`
	Action     AuditAction `json:"action"`
	Actor      string      `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Details    *string     `json:"details,omitempty"`
}
