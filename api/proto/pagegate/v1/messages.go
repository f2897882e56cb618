// Package pagegatev1 defines the pagegate.v1.Mediator gRPC service.
//
// Messages travel as google.protobuf.Struct so the service needs no
// generated code; the Go types below are the schema.
package pagegatev1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/pagegate/internal/model"
)

// EvaluateRequest proposes one action.
type EvaluateRequest struct {
	Session     string `json:"session,omitempty"`
	Kind        string `json:"kind"`
	Target      string `json:"target"`
	Goal        string `json:"goal,omitempty"`
	PageContext string `json:"page_context,omitempty"`
}

// NavigateRequest proposes a navigation.
type NavigateRequest struct {
	Session string `json:"session,omitempty"`
	URL     string `json:"url"`
	Goal    string `json:"goal,omitempty"`
}

// ResolveRequest carries a reviewer verdict. An empty session resolves the
// handle in whichever session holds it.
type ResolveRequest struct {
	Session string `json:"session,omitempty"`
	Handle  string `json:"handle"`
	Verdict string `json:"verdict"`
}

// ListRequest filters pending or logged records by session.
type ListRequest struct {
	Session string `json:"session,omitempty"`
}

// RecordResponse returns one action record.
type RecordResponse struct {
	Record     model.ActionRecord `json:"record"`
	PolicyHash string             `json:"policy_hash,omitempty"`
}

// ListResponse returns a set of records.
type ListResponse struct {
	Records     []model.ActionRecord `json:"records"`
	OverallRisk int                  `json:"overall_risk"`
}

// Encode converts a message to its wire form.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return structpb.NewStruct(m)
}

// Decode fills v from its wire form.
func Decode(s *structpb.Struct, v any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
