package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// OperatorInput is the input of tools that take only an operator.
type OperatorInput struct {
	OperatorID int64 `json:"operator_id,omitempty" jsonschema:"operator whose selection is used (defaults to the server operator)"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	OperatorID int64  `json:"operator_id,omitempty" jsonschema:"operator whose selection is used (defaults to the server operator)"`
	Query      string `json:"query,omitempty" jsonschema:"empty lists all, digits look up an id, #tag matches tags, anything else matches titles"`
	Page       int    `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	PageSize   int    `json:"page_size,omitempty" jsonschema:"results per page (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Documents          []DocumentOutput `json:"documents"`
	Total              int              `json:"total"`
	Page               int              `json:"page"`
	Pages              int              `json:"pages"`
	NoActiveCollection bool             `json:"no_active_collection"`
}

// DocumentOutput is one catalog entry.
type DocumentOutput struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Kind     string   `json:"kind"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"pinned"`
	Selected bool     `json:"selected"`
	URI      string   `json:"uri"`
}

// ToggleInput is the input schema for the toggle tool.
type ToggleInput struct {
	OperatorID int64 `json:"operator_id,omitempty" jsonschema:"operator whose selection is used (defaults to the server operator)"`
	DocumentID int64 `json:"document_id" jsonschema:"document to add to or remove from the selection"`
}

// ToggleOutput is the output schema for the toggle tool.
type ToggleOutput struct {
	Added     bool    `json:"added"`
	Selection []int64 `json:"selection"`
}

// AutoClearInput is the input schema for the set_autoclear tool.
type AutoClearInput struct {
	OperatorID int64 `json:"operator_id,omitempty" jsonschema:"operator whose selection is used (defaults to the server operator)"`
	Enabled    bool  `json:"enabled" jsonschema:"empty the selection after each successful run"`
}

// SelectionOutput describes the operator's selection.
type SelectionOutput struct {
	DocumentIDs []int64 `json:"document_ids"`
	AutoClear   bool    `json:"auto_clear"`
	Scope       string  `json:"scope"`
	Armed       bool    `json:"armed"`
}

// RunInput is the input schema for the run_request tool.
type RunInput struct {
	OperatorID int64  `json:"operator_id,omitempty" jsonschema:"operator whose selection is used (defaults to the server operator)"`
	Question   string `json:"question" jsonschema:"the question to answer from the selected documents"`
	TriggerID  string `json:"trigger_id,omitempty" jsonschema:"client event id; repeats within the debounce window are dropped"`
}

// RunOutput is the output schema for the run_request tool.
type RunOutput struct {
	RunID         string      `json:"run_id,omitempty"`
	Text          string      `json:"text,omitempty"`
	UsedSourceIDs []int64     `json:"used_source_ids,omitempty"`
	Usage         UsageOutput `json:"usage"`
	Debounced     bool        `json:"debounced"`
}

// UsageOutput is the usage metadata of a run.
type UsageOutput struct {
	Model      string  `json:"model,omitempty"`
	TokensIn   int     `json:"tokens_in"`
	TokensOut  int     `json:"tokens_out"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMS int64   `json:"duration_ms"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search documents in the operator's visible collections",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "toggle",
		Description: "Add a document to the selection, or remove it if already selected",
	}, s.handleToggle)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear",
		Description: "Empty the selection",
	}, s.handleClear)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_autoclear",
		Description: "Choose whether a successful run empties the selection",
	}, s.handleSetAutoClear)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_selection",
		Description: "Return the selected document ids and selection flags",
	}, s.handleGetSelection)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_request",
		Description: "Answer a question using only the selected documents",
	}, s.handleRunRequest)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	op := s.operator(input.OperatorID)
	page, err := s.ports.Catalog.Search(ctx, op, input.Query, input.Page, input.PageSize)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	state, err := s.ports.Selection.State(ctx, op)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Documents:          make([]DocumentOutput, len(page.Documents)),
		Total:              page.Total,
		Page:               page.Page,
		Pages:              page.Pages(),
		NoActiveCollection: page.NoActiveCollection,
	}
	for i := range page.Documents {
		d := &page.Documents[i]
		output.Documents[i] = DocumentOutput{
			ID:       d.ID,
			Title:    d.DisplayTitle(),
			Kind:     d.Kind.String(),
			Tags:     d.Tags,
			Pinned:   d.Pinned,
			Selected: state.InBasket(d.ID),
			URI:      documentURI(d.ID),
		}
	}
	return nil, output, nil
}

func (s *Server) handleToggle(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ToggleInput,
) (*mcp.CallToolResult, ToggleOutput, error) {
	op := s.operator(input.OperatorID)
	added, err := s.ports.Selection.Toggle(ctx, op, input.DocumentID)
	if err != nil {
		return nil, ToggleOutput{}, err
	}
	ids, err := s.ports.Selection.Get(ctx, op)
	if err != nil {
		return nil, ToggleOutput{}, err
	}
	return nil, ToggleOutput{Added: added, Selection: ids}, nil
}

func (s *Server) handleClear(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OperatorInput,
) (*mcp.CallToolResult, SelectionOutput, error) {
	op := s.operator(input.OperatorID)
	if err := s.ports.Selection.Clear(ctx, op); err != nil {
		return nil, SelectionOutput{}, err
	}
	return s.selection(ctx, op)
}

func (s *Server) handleSetAutoClear(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AutoClearInput,
) (*mcp.CallToolResult, SelectionOutput, error) {
	op := s.operator(input.OperatorID)
	if err := s.ports.Selection.SetAutoClear(ctx, op, input.Enabled); err != nil {
		return nil, SelectionOutput{}, err
	}
	return s.selection(ctx, op)
}

func (s *Server) handleGetSelection(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OperatorInput,
) (*mcp.CallToolResult, SelectionOutput, error) {
	return s.selection(ctx, s.operator(input.OperatorID))
}

func (s *Server) handleRunRequest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunInput,
) (*mcp.CallToolResult, RunOutput, error) {
	res, err := s.ports.Pipeline.RunRequest(ctx, driving.RunInput{
		OperatorID: s.operator(input.OperatorID),
		Question:   input.Question,
		TriggerID:  input.TriggerID,
	})
	if err != nil {
		return nil, RunOutput{}, err
	}
	return nil, runOutput(res), nil
}

func (s *Server) selection(ctx context.Context, op int64) (*mcp.CallToolResult, SelectionOutput, error) {
	state, err := s.ports.Selection.State(ctx, op)
	if err != nil {
		return nil, SelectionOutput{}, err
	}
	return nil, selectionOutput(state), nil
}

func selectionOutput(state *domain.OperatorState) SelectionOutput {
	ids := state.Basket
	if ids == nil {
		ids = []int64{}
	}
	return SelectionOutput{
		DocumentIDs: ids,
		AutoClear:   state.AutoClear,
		Scope:       state.Scope.String(),
		Armed:       state.Armed,
	}
}

func runOutput(res *driving.RunResult) RunOutput {
	if res.Debounced {
		return RunOutput{Debounced: true}
	}
	return RunOutput{
		RunID:         res.RunID,
		Text:          res.Text,
		UsedSourceIDs: res.UsedSourceIDs,
		Usage: UsageOutput{
			Model:      res.Usage.Model,
			TokensIn:   res.Usage.TokensIn,
			TokensOut:  res.Usage.TokensOut,
			CostUSD:    res.Usage.CostUSD,
			DurationMS: res.Usage.Duration.Milliseconds(),
		},
	}
}
