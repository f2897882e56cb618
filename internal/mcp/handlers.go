package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/pagegate/internal/model"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the pagegate_evaluate tool.
type EvaluateInput struct {
	Kind        string `json:"kind" jsonschema:"action kind (click/type/navigate/scroll/extract)"`
	Target      string `json:"target" jsonschema:"element selector or URL the action applies to"`
	Goal        string `json:"goal,omitempty" jsonschema:"the user's task the action serves"`
	PageContext string `json:"page_context,omitempty" jsonschema:"URL of the page the action happens on, omit for the current page"`
	Session     string `json:"session,omitempty" jsonschema:"agent session, omit for the default"`
}

// NavigateInput defines parameters for the pagegate_navigate tool.
type NavigateInput struct {
	URL     string `json:"url" jsonschema:"destination URL, https:// is assumed when no scheme is given"`
	Goal    string `json:"goal,omitempty" jsonschema:"the user's task the navigation serves"`
	Session string `json:"session,omitempty" jsonschema:"agent session, omit for the default"`
}

// RecordOutput describes the mediation outcome.
type RecordOutput struct {
	ID          string  `json:"id,omitempty"`
	Status      string  `json:"status"`
	RiskScore   float64 `json:"risk_score"`
	RiskLevel   string  `json:"risk_level"`
	Explanation string  `json:"explanation"`
	RuleID      string  `json:"rule_id,omitempty"`
	Handle      string  `json:"handle,omitempty"`
	Busy        bool    `json:"busy,omitempty"`
}

// ResolveInput defines parameters for the pagegate_resolve tool.
type ResolveInput struct {
	Handle  string `json:"handle" jsonschema:"handle returned with a PENDING result"`
	Verdict string `json:"verdict" jsonschema:"approve or deny"`
	Session string `json:"session,omitempty" jsonschema:"session holding the handle, omit to search all"`
}

// ListInput filters by session.
type ListInput struct {
	Session string `json:"session,omitempty" jsonschema:"agent session, omit for all sessions"`
}

// ListOutput lists records.
type ListOutput struct {
	Records     []RecordOutput `json:"records"`
	OverallRisk int            `json:"overall_risk"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, RecordOutput, error) {
	if input.Kind == "" {
		return nil, RecordOutput{}, fmt.Errorf("kind is required")
	}
	rec, err := s.med.EvaluateAction(ctx, s.sessionFor(input.Session), input.Kind, input.Target, input.Goal, input.PageContext)
	return s.result(rec, err)
}

func (s *Server) handleNavigate(ctx context.Context, req *mcpsdk.CallToolRequest, input NavigateInput) (*mcpsdk.CallToolResult, RecordOutput, error) {
	if input.URL == "" {
		return nil, RecordOutput{}, fmt.Errorf("url is required")
	}
	rec, err := s.med.Navigate(ctx, s.sessionFor(input.Session), input.URL, input.Goal)
	return s.result(rec, err)
}

func (s *Server) handleResolve(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, RecordOutput, error) {
	verdict, ok := model.ParseVerdict(input.Verdict)
	if !ok {
		return nil, RecordOutput{}, fmt.Errorf("unknown verdict %q: use approve or deny", input.Verdict)
	}

	var (
		rec model.ActionRecord
		err error
	)
	if input.Session == "" {
		rec, err = s.med.ResolveHandle(input.Handle, verdict)
	} else {
		rec, err = s.med.ResolvePending(input.Session, input.Handle, verdict)
	}
	if err != nil {
		return nil, RecordOutput{}, err
	}
	return nil, toOutput(rec), nil
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input ListInput) (*mcpsdk.CallToolResult, ListOutput, error) {
	return nil, s.list(s.med.Pending(input.Session)), nil
}

func (s *Server) handleLog(ctx context.Context, req *mcpsdk.CallToolRequest, input ListInput) (*mcpsdk.CallToolResult, ListOutput, error) {
	return nil, s.list(s.med.Records(input.Session)), nil
}

func (s *Server) sessionFor(id string) string {
	if id == "" {
		return s.session
	}
	return id
}

// result marks BLOCKED and busy outcomes as tool errors so the agent does
// not proceed with the action.
func (s *Server) result(rec model.ActionRecord, err error) (*mcpsdk.CallToolResult, RecordOutput, error) {
	if err != nil {
		var busy *model.BusyError
		if errors.As(err, &busy) {
			return &mcpsdk.CallToolResult{IsError: true}, RecordOutput{
				Status:      string(model.StatusPending),
				Explanation: busy.Error(),
				Handle:      busy.PendingHandle,
				Busy:        true,
			}, nil
		}
		return nil, RecordOutput{}, err
	}

	out := toOutput(rec)
	if rec.Status == model.StatusBlocked {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) list(records []model.ActionRecord) ListOutput {
	out := ListOutput{Records: make([]RecordOutput, len(records)), OverallRisk: s.med.OverallRisk()}
	for i, r := range records {
		out.Records[i] = toOutput(r)
	}
	return out
}

func toOutput(rec model.ActionRecord) RecordOutput {
	return RecordOutput{
		ID:          rec.ID,
		Status:      string(rec.Status),
		RiskScore:   rec.RiskScore,
		RiskLevel:   string(rec.Level()),
		Explanation: rec.Explanation,
		RuleID:      rec.RuleID,
		Handle:      rec.Handle,
	}
}

