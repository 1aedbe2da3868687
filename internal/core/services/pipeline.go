package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

const tracerName = "github.com/custodia-labs/mnemo/internal/core/services"

// answerTitleRunes bounds the title of a saved answer.
const answerTitleRunes = 60

// PipelineDeps wires the request pipeline.
// Model, Tokenizer, Debounce and Observer are optional.
type PipelineDeps struct {
	OperatorStore driven.OperatorStore
	DocStore      driven.DocumentStore
	Retrieval     *RetrievalService
	Prompts       *PromptAssembler
	Budget        *BudgetCalculator
	Documents     *DocumentService
	Model         driven.ModelClient
	Tokenizer     driven.Tokenizer
	Debounce      driven.DebounceCache
	Observer      driven.RunObserver
	Retry         *RetryPolicy
	Settings      domain.EngineSettings
}

// PipelineService orchestrates one run: selection, retrieval, budgeting,
// prompt assembly and the model call.
type PipelineService struct {
	operatorStore driven.OperatorStore
	docStore      driven.DocumentStore
	retrieval     *RetrievalService
	prompts       *PromptAssembler
	budget        *BudgetCalculator
	documents     *DocumentService
	model         driven.ModelClient
	tokenizer     driven.Tokenizer
	debounce      driven.DebounceCache
	observer      driven.RunObserver
	retry         *RetryPolicy
	settings      domain.EngineSettings

	now      func() time.Time
	newRunID func() string
	tracer   trace.Tracer
}

// NewPipelineService creates a new pipeline service.
func NewPipelineService(deps PipelineDeps) *PipelineService {
	s := &PipelineService{
		operatorStore: deps.OperatorStore,
		docStore:      deps.DocStore,
		retrieval:     deps.Retrieval,
		prompts:       deps.Prompts,
		budget:        deps.Budget,
		documents:     deps.Documents,
		model:         deps.Model,
		tokenizer:     deps.Tokenizer,
		debounce:      deps.Debounce,
		observer:      deps.Observer,
		retry:         deps.Retry,
		settings:      deps.Settings,
		now:           time.Now,
		newRunID:      uuid.NewString,
		tracer:        otel.Tracer(tracerName),
	}
	if s.retrieval == nil {
		s.retrieval = NewRetrievalService(deps.DocStore, deps.OperatorStore, nil)
	}
	if s.prompts == nil {
		s.prompts = NewPromptAssembler(nil)
	}
	if s.budget == nil {
		s.budget = NewBudgetCalculator(nil)
	}
	if s.retry == nil {
		s.retry = NewRetryPolicy(deps.Settings.Retry)
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	return s
}

// RunRequest dispatches one request for the operator's basket.
//
// A trigger already seen within the debounce window, or a run while another
// one holds the operator's guard, returns a result with Debounced set. The
// guard is released on every exit path. The model call is detached from ctx
// cancellation so an abandoned request still completes and is recorded.
func (s *PipelineService) RunRequest(ctx context.Context, in driving.RunInput) (*driving.RunResult, error) {
	if s.operatorStore == nil || s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("question is empty: %w", domain.ErrInvalidInput)
	}
	if s.model == nil || s.settings.LLM.Disabled {
		return nil, domain.ErrModelUnavailable
	}

	if in.TriggerID != "" && s.debounce != nil {
		first, err := s.debounce.Claim(ctx, triggerKey(in.OperatorID, in.TriggerID), s.settings.Run.DebounceWindow)
		switch {
		case err != nil:
			logger.Warn("pipeline: debounce cache unavailable, relying on run guard: %v", err)
		case !first:
			logger.With("operator", in.OperatorID, "trigger", in.TriggerID).Info("run debounced")
			s.observer.RunDebounced("duplicate_trigger")
			return &driving.RunResult{Debounced: true}, nil
		}
	}

	st, err := s.operatorStore.Get(ctx, in.OperatorID)
	if err != nil {
		return nil, err
	}
	if len(st.Basket) == 0 {
		return nil, domain.ErrEmptySelection
	}

	runID := s.newRunID()
	held, err := s.operatorStore.BeginRun(ctx, in.OperatorID, runID, s.now(), s.staleAfter())
	if err != nil {
		return nil, fmt.Errorf("taking run guard: %w", err)
	}
	if !held {
		logger.With("operator", in.OperatorID).Info("run debounced: another run in flight")
		s.observer.RunDebounced("in_flight")
		return &driving.RunResult{Debounced: true}, nil
	}

	// From here on the run continues even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	fields := []any{"run_id", runID, "operator", in.OperatorID}
	completed := false
	defer func() {
		if completed {
			return
		}
		if err := s.operatorStore.EndRun(runCtx, in.OperatorID, runID); err != nil {
			logger.With(fields...).Errorw("releasing run guard", "error", err)
		}
	}()

	started := s.now()
	s.observer.RunStarted()
	logger.With(fields...).Infow("run started", "sources", len(st.Basket))

	runCtx, span := s.tracer.Start(runCtx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int64("operator.id", in.OperatorID),
		attribute.Int("basket.size", len(st.Basket)),
	))
	defer span.End()

	result, err := s.execute(runCtx, st, runID, question, fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observer.RunFinished(domain.RunFailed, s.now().Sub(started), domain.Usage{})
		logger.With(fields...).Errorw("run failed", "error", err)
		return nil, err
	}

	completed = true
	s.observer.RunFinished(domain.RunSucceeded, s.now().Sub(started), result.Usage)
	logger.With(fields...).Infow("run succeeded",
		"attempts", result.Attempts,
		"tokens_in", result.Usage.TokensIn,
		"tokens_out", result.Usage.TokensOut)
	return result, nil
}

// execute runs the preparing and calling-model stages and persists success.
func (s *PipelineService) execute(
	ctx context.Context,
	st *domain.OperatorState,
	runID, question string,
	fields []any,
) (*driving.RunResult, error) {
	model := s.modelFor(st)
	budget := s.budget.BudgetFor(model, s.settings)

	prepCtx, prepSpan := s.tracer.Start(ctx, "pipeline.prepare")
	loaded, err := s.retrieval.LoadForState(prepCtx, st, st.Basket)
	prepSpan.End()
	if err != nil {
		return nil, err
	}

	sources := IncludedSources(loaded.Sources, budget, s.settings.Budget.Redistribute)
	system := s.prompts.SystemPrompt()
	prompt := s.prompts.Build(system, sources, question)
	logger.With(fields...).Debugw("prompt assembled",
		"model", model,
		"budget", budget,
		"loaded_tokens", loaded.TotalTokens,
		"sources", len(sources))

	resp, took, attempts, err := s.call(ctx, prompt, model, fields)
	if err != nil && domain.HasReason(err, domain.ReasonContextLength) {
		budget = ReduceOnOverflow(budget)
		logger.With(fields...).Warnw("context overflow, shrinking budget", "budget", budget)
		sources = IncludedSources(loaded.Sources, budget, s.settings.Budget.Redistribute)
		prompt = s.prompts.Build(system, sources, question)
		var more int
		resp, took, more, err = s.call(ctx, prompt, model, fields)
		attempts += more
	}
	if err != nil {
		return nil, &domain.RunError{
			RunID:    runID,
			Model:    model,
			Scope:    st.Scope,
			Budget:   budget,
			Attempts: attempts,
			Err:      err,
		}
	}

	usage := s.usage(resp, prompt, model, took)
	used := make([]int64, 0, len(sources))
	for i := range sources {
		used = append(used, sources[i].ID)
	}

	fresh, err := s.operatorStore.Get(ctx, st.OperatorID)
	if err != nil {
		return nil, err
	}
	fresh.LastRun = &domain.LastRun{
		RunID:         runID,
		Question:      question,
		Text:          resp.Text,
		UsedSourceIDs: used,
		Model:         usage.Model,
		TokensIn:      usage.TokensIn,
		TokensOut:     usage.TokensOut,
		CostUSD:       usage.CostUSD,
		Duration:      usage.Duration,
		Attempts:      attempts,
		CompletedAt:   s.now().UTC(),
	}
	fresh.Armed = false
	if fresh.AutoClear {
		fresh.Basket = []int64{}
	}
	if err := s.operatorStore.CompleteRun(ctx, fresh, runID); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	return &driving.RunResult{
		RunID:         runID,
		Text:          resp.Text,
		UsedSourceIDs: used,
		Usage:         usage,
		Attempts:      attempts,
	}, nil
}

// call invokes the model under the retry policy. It returns the response,
// the duration of the successful attempt and the number of attempts.
func (s *PipelineService) call(
	ctx context.Context,
	prompt domain.Prompt,
	model string,
	fields []any,
) (*driven.ModelResponse, time.Duration, int, error) {
	req := driven.ModelRequest{
		System:          prompt.System,
		Context:         prompt.Context,
		User:            prompt.User,
		Model:           model,
		Temperature:     s.settings.LLM.Temperature,
		MaxOutputTokens: s.settings.LLM.MaxOutputTokens,
		Timeout:         s.settings.LLM.Timeout,
	}

	policy := *s.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.With(fields...).Warnw("retry scheduled", "attempt", attempt, "delay", delay, "error", err)
		if s.retry.OnRetry != nil {
			s.retry.OnRetry(attempt, delay, err)
		}
	}

	var (
		resp *driven.ModelResponse
		took time.Duration
	)
	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if req.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		}
		defer cancel()

		callCtx, span := s.tracer.Start(callCtx, "model.call", trace.WithAttributes(
			attribute.String("model", model),
			attribute.Int("attempt", attempt),
		))
		defer span.End()

		started := s.now()
		r, err := s.model.Call(callCtx, req)
		if err != nil {
			err = classifyCallError(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.observer.AttemptFailed(reasonOf(err), domain.IsTransient(err))
			return err
		}
		resp, took = r, s.now().Sub(started)
		return nil
	})
	return resp, took, attempts, err
}

func (s *PipelineService) usage(resp *driven.ModelResponse, prompt domain.Prompt, model string, took time.Duration) domain.Usage {
	u := domain.Usage{
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Duration:  took,
	}
	if u.Model == "" {
		u.Model = model
	}
	if s.tokenizer != nil {
		if u.TokensIn == 0 {
			u.TokensIn = s.tokenizer.Count(prompt.System) + s.tokenizer.Count(prompt.Context+"\n\n"+prompt.User)
		}
		if u.TokensOut == 0 {
			u.TokensOut = s.tokenizer.Count(resp.Text)
		}
	}
	u.CostUSD = s.budget.EstimateCost(u.Model, u.TokensIn, u.TokensOut)
	return u
}

// Preview computes what the next run would send.
func (s *PipelineService) Preview(ctx context.Context, operatorID int64) (*driving.Preview, error) {
	if s.operatorStore == nil || s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	model := s.modelFor(st)
	budget := s.budget.BudgetFor(model, s.settings)
	loaded, err := s.retrieval.LoadForState(ctx, st, st.Basket)
	if err != nil {
		return nil, err
	}
	sources := IncludedSources(loaded.Sources, budget, s.settings.Budget.Redistribute)

	p := &driving.Preview{
		Model:     model,
		Scope:     st.Scope,
		Budget:    budget,
		SourceIDs: make([]int64, 0, len(sources)),
	}
	for i := range sources {
		p.SourceIDs = append(p.SourceIDs, sources[i].ID)
		p.ContextTokens += sources[i].TotalTokens
	}
	if st.ActiveCollectionID != nil {
		if col, err := s.docStore.GetCollection(ctx, *st.ActiveCollectionID); err == nil {
			p.CollectionName = col.Name
		}
	}
	p.EstimatedCost = s.budget.EstimateCost(model, p.ContextTokens+s.settings.Budget.SystemReserve, s.settings.LLM.MaxOutputTokens)
	p.Line = ContextLine(p.CollectionName, p.Scope, p.Model, p.Budget, p.EstimatedCost)
	return p, nil
}

// LastRun returns the most recent successful run.
func (s *PipelineService) LastRun(ctx context.Context, operatorID int64) (*domain.LastRun, error) {
	if s.operatorStore == nil {
		return nil, domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if st.LastRun == nil {
		return nil, domain.ErrNoLastRun
	}
	return st.LastRun, nil
}

// DeleteLastRun clears the last-run record.
func (s *PipelineService) DeleteLastRun(ctx context.Context, operatorID int64) error {
	if s.operatorStore == nil {
		return domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return err
	}
	if st.LastRun == nil {
		return domain.ErrNoLastRun
	}
	st.LastRun = nil
	return s.operatorStore.Save(ctx, st)
}

// SaveLastRun stores the last answer as a document in the active collection.
func (s *PipelineService) SaveLastRun(ctx context.Context, operatorID int64) (*domain.Document, error) {
	if s.operatorStore == nil || s.documents == nil {
		return nil, domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	lr := st.LastRun
	if lr == nil {
		return nil, domain.ErrNoLastRun
	}
	if lr.Saved && lr.SavedDocumentID != nil {
		doc, err := s.documents.Get(ctx, *lr.SavedDocumentID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	created, err := s.documents.Create(ctx, operatorID, driving.NewDocument{
		Kind:  domain.KindAnswer,
		Title: "Answer: " + Truncate(lr.Question, answerTitleRunes),
		Text:  lr.Text,
		Tags:  []string{"answer"},
	})
	if err != nil {
		return nil, err
	}

	id := created.Document.ID
	lr.Saved = true
	lr.SavedDocumentID = &id
	lr.Pinned = created.Document.Pinned
	if err := s.operatorStore.Save(ctx, st); err != nil {
		return nil, err
	}
	return created.Document, nil
}

// PinLastRun toggles the pin on the saved answer, saving it first if needed.
func (s *PipelineService) PinLastRun(ctx context.Context, operatorID int64) (bool, error) {
	doc, err := s.SaveLastRun(ctx, operatorID)
	if err != nil {
		return false, err
	}
	pinned, err := s.documents.TogglePin(ctx, doc.ID)
	if err != nil {
		return false, err
	}

	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return false, err
	}
	if st.LastRun != nil {
		st.LastRun.Pinned = pinned
		if err := s.operatorStore.Save(ctx, st); err != nil {
			return false, err
		}
	}
	return pinned, nil
}

func (s *PipelineService) modelFor(st *domain.OperatorState) string {
	if st.Model != "" {
		return st.Model
	}
	if s.settings.LLM.Model != "" {
		return s.settings.LLM.Model
	}
	if s.model != nil {
		return s.model.ModelName()
	}
	return domain.DefaultModel
}

func (s *PipelineService) staleAfter() time.Duration {
	if s.settings.Run.StaleAfter > 0 {
		return s.settings.Run.StaleAfter
	}
	return domain.DefaultStaleAfter
}

func triggerKey(operatorID int64, triggerID string) string {
	return fmt.Sprintf("debounce:%d:%s", operatorID, triggerID)
}

// classifyCallError turns bare timeouts into transient model errors.
func classifyCallError(err error) error {
	var me *domain.ModelError
	if errors.As(err, &me) {
		return err
	}
	if domain.IsTransient(err) {
		return domain.NewTransientError(domain.ReasonTimeout, err)
	}
	return err
}

func reasonOf(err error) string {
	var me *domain.ModelError
	if errors.As(err, &me) {
		return me.Reason
	}
	return "unknown"
}

type noopObserver struct{}

func (noopObserver) RunStarted()                                             {}
func (noopObserver) RunDebounced(string)                                     {}
func (noopObserver) AttemptFailed(string, bool)                              {}
func (noopObserver) RunFinished(domain.RunState, time.Duration, domain.Usage) {}
