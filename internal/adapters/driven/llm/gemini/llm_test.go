package gemini

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		reason    string
	}{
		{"quota", status.Error(codes.ResourceExhausted, "quota"), true, domain.ReasonRateLimit},
		{"unavailable", status.Error(codes.Unavailable, "try later"), true, domain.ReasonServer},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true, domain.ReasonTimeout},
		{"bad key", status.Error(codes.PermissionDenied, "key invalid"), false, domain.ReasonAuth},
		{"overflow", status.Error(codes.InvalidArgument, "The input token count exceeds the maximum number of tokens"), false, domain.ReasonContextLength},
		{"invalid", status.Error(codes.InvalidArgument, "bad"), false, domain.ReasonInvalidRequest},
		{"rest 429", &googleapi.Error{Code: 429, Message: "rate"}, true, domain.ReasonRateLimit},
		{"context deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, domain.ReasonTimeout},
		{"blocked", &genai.BlockedError{Candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety}}, false, domain.ReasonInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.True(t, domain.HasReason(err, tt.reason), "got %v", err)
		})
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, "ab", responseText(resp))
	assert.Empty(t, responseText(nil))
}
