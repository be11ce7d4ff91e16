package pipeline

import (
	"context"

	"github.com/ppiankov/cram/internal/model"
)

// approvalStage is the human-approval gate. It makes no external calls.
type approvalStage struct {
	policy model.Policy
}

func (s *approvalStage) Name() string { return StageApproval }

func (s *approvalStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	applyApproval(st, s.policy)
	return nil
}

// applyApproval moves the gate to pending or auto-approved
func applyApproval(st *model.AnalysisState, policy model.Policy) {
	st.ApprovalStatus, st.ApprovalRequired = policy.Decide(st.ConfidenceScore)
	if st.ApprovalRequired {
		st.Log("Human approval required: confidence %.2f below %.2f", st.ConfidenceScore, policy.ApprovalThreshold)
		return
	}
	st.Log("Auto-approved: confidence %.2f", st.ConfidenceScore)
}
