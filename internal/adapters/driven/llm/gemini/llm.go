// Package gemini provides a model client for Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/llm"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ModelClient = (*Client)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

const provider = "gemini"

var overflowMarkers = []string{"exceeds the maximum number of tokens", "input token count"}

// Config holds configuration for the Gemini client.
type Config struct {
	// APIKey is the Google AI Studio key (required).
	APIKey string

	// Model is the default model (default: gemini-1.5-flash).
	Model string
}

// Client calls Gemini through the generative-ai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: cfg.Model}, nil
}

// Call runs one generation. The system block is sent as the system instruction.
func (c *Client) Call(ctx context.Context, req driven.ModelRequest) (*driven.ModelResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	name := req.Model
	if name == "" {
		name = c.model
	}
	model := c.client.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserMessage()))
	if err != nil {
		return nil, classify(err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, llm.EmptyResponse(provider)
	}

	out := &driven.ModelResponse{Text: text, Model: name}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		// Only the first candidate is used.
		break
	}
	return b.String()
}

// classify maps SDK errors onto the model error taxonomy.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return domain.NewPermanentError(domain.ReasonInvalidRequest, fmt.Errorf("gemini: %w", err))
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return llm.StatusError(provider, gerr.Code, gerr.Message, overflowMarkers...)
	}

	st, ok := status.FromError(err)
	if !ok {
		return llm.TransportError(provider, err)
	}
	wrapped := fmt.Errorf("gemini: %w", err)
	switch st.Code() {
	case codes.DeadlineExceeded:
		return domain.NewTransientError(domain.ReasonTimeout, wrapped)
	case codes.ResourceExhausted:
		return domain.NewTransientError(domain.ReasonRateLimit, wrapped)
	case codes.Unavailable, codes.Internal, codes.Aborted, codes.Unknown:
		return domain.NewTransientError(domain.ReasonServer, wrapped)
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.NewPermanentError(domain.ReasonAuth, wrapped)
	case codes.InvalidArgument:
		if llm.IsOverflow(st.Message(), overflowMarkers...) {
			return domain.NewPermanentError(domain.ReasonContextLength, wrapped)
		}
		return domain.NewPermanentError(domain.ReasonInvalidRequest, wrapped)
	default:
		return domain.NewPermanentError(domain.ReasonInvalidRequest, wrapped)
	}
}

// ModelName returns the default model.
func (c *Client) ModelName() string {
	return c.model
}

// Ping lists one model to validate the key.
func (c *Client) Ping(ctx context.Context) error {
	it := c.client.ListModels(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
