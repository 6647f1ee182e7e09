// Package session orchestrates one learning session: field submissions,
// validation verdicts, unlock ordering, context compression for
// outbound requests, and opportunistic persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/feynlab/feynlab/internal/budget"
	"github.com/feynlab/feynlab/internal/code"
	"github.com/feynlab/feynlab/internal/compress"
	"github.com/feynlab/feynlab/internal/event"
	"github.com/feynlab/feynlab/internal/persist"
	"github.com/feynlab/feynlab/internal/validate"
	"github.com/feynlab/feynlab/pkg/types"
)

// maxVerdictTokens caps the model's output per validation.
const maxVerdictTokens = 1024

var (
	// ErrFieldLocked is returned when a submission targets a field whose
	// predecessor has not been approved yet.
	ErrFieldLocked = errors.New("field is locked")
	// ErrValidationInFlight is returned when a field already has a
	// pending verdict. Soft mutual exclusion by status flag, not a lock.
	ErrValidationInFlight = errors.New("validation already in flight for this field")
	// ErrUnknownField is returned for a field ID outside the fixed seven.
	ErrUnknownField = errors.New("unknown field")
)

// SubmitResult is the outcome of one validation cycle.
type SubmitResult struct {
	Verdict *types.Verdict `json:"verdict"`
	// Stale is true when the user edited the field while the verdict
	// was in flight; the verdict was applied but a fresh validation
	// should follow before trusting it as final.
	Stale bool `json:"stale,omitempty"`
	// Hints are deterministic pre-submission observations (jargon,
	// sentence length). Advisory only.
	Hints []string `json:"hints,omitempty"`
	// Encouragement is a supportive message when repeated revisions
	// suggest frustration. Empty most of the time.
	Encouragement string `json:"encouragement,omitempty"`
}

// Validator is what the service needs from the validation boundary.
// validate.Orchestrator satisfies it; tests supply stubs.
type Validator interface {
	Validate(ctx context.Context, req validate.Request) (*types.Verdict, error)
}

// Options holds the collaborators a Service is built from. Everything
// is constructed explicitly and injected; no package-level instances.
type Options struct {
	Estimator *budget.Estimator
	Engine    *compress.Engine
	Gateway   *persist.Gateway
	Validator Validator
	Bus       *event.Bus
	Log       zerolog.Logger
}

// Service owns the single live SessionState and every mutation of it.
type Service struct {
	mu    sync.Mutex
	state *types.SessionState

	estimator *budget.Estimator
	engine    *compress.Engine
	gateway   *persist.Gateway
	validator Validator
	bus       *event.Bus
	log       zerolog.Logger

	saveWG sync.WaitGroup
	// saveMu serializes writes to the gateway; saveSeq (under mu) and
	// savedSeq (under saveMu) order them so an older snapshot can never
	// overwrite a newer one that already reached storage.
	saveMu   sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// NewService creates a service with a fresh initial state.
func NewService(opts Options) *Service {
	s := &Service{
		state:     types.NewSessionState(),
		estimator: opts.Estimator,
		engine:    opts.Engine,
		gateway:   opts.Gateway,
		validator: opts.Validator,
		bus:       opts.Bus,
		log:       opts.Log,
	}
	if s.estimator == nil {
		s.estimator = budget.NewEstimator(0)
	}
	if s.engine == nil {
		s.engine = compress.NewEngine(compress.DefaultThresholds)
	}
	if s.bus == nil {
		s.bus = event.NewBus()
	}
	return s
}

// Resume replaces the live state with whatever the persistence gateway
// can produce. Reports whether a version reset occurred.
func (s *Service) Resume(ctx context.Context) (reset bool) {
	if s.gateway == nil {
		return false
	}
	state, outcome := s.gateway.Restore(ctx)
	s.mu.Lock()
	s.state = state
	s.recomputeEstimateLocked()
	s.mu.Unlock()
	return outcome == persist.RestoreVersionReset
}

// State returns a deep copy of the current session state.
func (s *Service) State() *types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Advice reports what the compression engine would do with the next
// outbound request at the current token estimate.
func (s *Service) Advice() compress.Advice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AdviseLevel(s.state.TokenEstimate)
}

// StartConcept discards the current session and begins a new one for
// the given concept and optional decomposition modules.
func (s *Service) StartConcept(concept string, modules []types.ConceptModule) {
	s.mu.Lock()
	state := types.NewSessionState()
	state.Concept = concept
	state.Modules = modules
	state.AppendTurn("system", "Concept: "+concept)
	s.state = state
	s.recomputeEstimateLocked()
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.SessionUpdated, Data: concept})
	s.autoSave()
}

// NextModule advances to the next decomposition module if one exists.
func (s *Service) NextModule() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentModuleIndex+1 >= len(s.state.Modules) {
		return false
	}
	s.state.CurrentModuleIndex++
	s.state.Touch()
	return true
}

// UpdateFieldValue records an in-progress edit without validating. The
// field must be unlocked.
func (s *Service) UpdateFieldValue(id types.FieldID, text string) error {
	s.mu.Lock()
	rec := s.state.Field(id)
	if rec == nil {
		s.mu.Unlock()
		return ErrUnknownField
	}
	if !rec.Unlocked {
		s.mu.Unlock()
		return ErrFieldLocked
	}
	rec.Value = text
	s.state.Touch()
	s.mu.Unlock()

	s.autoSave()
	return nil
}

// Submit runs one validation cycle for a field: pre-filter, compress,
// call the model, apply the verdict. The session lock is not held
// across the model call; the analyzing status flag is what prevents a
// second submission for the same field.
func (s *Service) Submit(ctx context.Context, id types.FieldID, text string) (*SubmitResult, error) {
	s.mu.Lock()
	rec := s.state.Field(id)
	if rec == nil {
		s.mu.Unlock()
		return nil, ErrUnknownField
	}
	if !rec.Unlocked {
		s.mu.Unlock()
		return nil, ErrFieldLocked
	}
	if rec.Status == types.StatusAnalyzing {
		s.mu.Unlock()
		return nil, ErrValidationInFlight
	}

	priorStatus := rec.Status
	rec.Value = text
	rec.Status = types.StatusAnalyzing
	s.state.AppendTurn("user", fmt.Sprintf("Field: %s\n%s", id, text))
	s.recomputeEstimateLocked()

	outbound := s.engine.Compress(s.state.ConversationHistory, s.state.TokenEstimate)
	advice := s.engine.AdviseLevel(s.state.TokenEstimate)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.FieldAnalyzing, Data: id})

	if advice.MustCheckpoint && s.gateway != nil {
		if err := s.gateway.Checkpoint(ctx, snapshot); err != nil {
			s.bus.Publish(event.Event{Type: event.StorageWarning, Data: err.Error()})
		}
		s.bus.Publish(event.Event{Type: event.CheckpointAdvised, Data: snapshot.TokenEstimate})
	}

	hints := JargonHints(text)

	verdict, err := s.validator.Validate(ctx, validate.Request{
		System:    validationSystemPrompt,
		Turns:     outbound,
		MaxTokens: maxVerdictTokens,
	})
	if err != nil {
		// Transport exhaustion or malformed verdict: either way the
		// field reverts and the user's text stays put for resubmission.
		s.revertField(id, priorStatus)
		if errors.Is(err, validate.ErrMalformedVerdict) {
			s.log.Warn().Str("field", string(id)).Msg("verdict unparseable, asking user to retry")
			return &SubmitResult{Hints: hints}, fmt.Errorf("validation inconclusive, please try again: %w", err)
		}
		s.log.Error().Err(err).Str("field", string(id)).Msg("validation request failed")
		return &SubmitResult{Hints: hints}, fmt.Errorf("validation unavailable: %w", err)
	}

	result := s.applyVerdict(id, text, verdict, priorStatus)
	result.Hints = hints

	s.autoSave()
	return result, nil
}

// applyVerdict records the verdict against the field and moves the
// session forward. A verdict for text the user has since replaced is
// still applied, but flagged stale so the caller revalidates.
func (s *Service) applyVerdict(id types.FieldID, submitted string, verdict *types.Verdict, priorStatus types.FieldStatus) *SubmitResult {
	s.mu.Lock()

	rec := s.state.Field(id)
	result := &SubmitResult{Verdict: verdict}

	if !verdict.Conclusive() {
		// Same treatment as a malformed verdict: the submission settled
		// nothing, so the field goes back to where it was.
		rec.Status = priorStatus
		s.mu.Unlock()
		return result
	}

	rec.Attempts = append(rec.Attempts, types.Attempt{
		ID:        ulid.Make().String(),
		Text:      submitted,
		Status:    verdict.Status,
		Issues:    verdict.Issues,
		Strengths: verdict.Strengths,
		Time:      time.Now().UnixMilli(),
	})
	s.state.AppendTurn("assistant", renderVerdictTurn(id, verdict))

	stale := rec.Value != submitted
	result.Stale = stale

	var completed bool
	switch {
	case stale:
		// Superseded by a newer edit: keep the attempt, require a
		// fresh validation before anything unlocks.
		rec.Status = types.StatusPending
	case verdict.Status == types.StatusApproved:
		s.state.ApproveField(id)
		completed = s.state.IsComplete()
	default:
		rec.Status = types.StatusNeedsRevision
		result.Encouragement = s.noteFrustrationLocked(id, len(rec.Attempts))
	}

	s.recomputeEstimateLocked()
	s.state.Touch()
	s.mu.Unlock()

	switch {
	case stale:
		s.log.Info().Str("field", string(id)).Msg("stale verdict applied, revalidation needed")
	case verdict.Status == types.StatusApproved:
		s.bus.Publish(event.Event{Type: event.FieldApproved, Data: id})
		if completed {
			s.bus.Publish(event.Event{Type: event.SessionComplete, Data: s.State().Concept})
		}
	default:
		s.bus.Publish(event.Event{Type: event.FieldNeedsRework, Data: id})
	}

	return result
}

// renderVerdictTurn formats the assistant reply recorded into history.
// The markers here are what snapshot extraction mines later, so the
// format is load-bearing: APPROVED/NEEDS_REVISION head line, one line
// per issue, misconception-flagged issues promoted to their marker.
func renderVerdictTurn(id types.FieldID, verdict *types.Verdict) string {
	var b strings.Builder
	if verdict.Status == types.StatusApproved {
		fmt.Fprintf(&b, "APPROVED: %s\n", id)
	} else {
		fmt.Fprintf(&b, "NEEDS_REVISION: %s\n", id)
	}
	for _, issue := range verdict.Issues {
		if rest, ok := strings.CutPrefix(issue, "misconception:"); ok {
			fmt.Fprintf(&b, "Misconception caught: %s\n", strings.TrimSpace(rest))
		} else {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	for _, strength := range verdict.Strengths {
		fmt.Fprintf(&b, "+ %s\n", strength)
	}
	if verdict.Suggestion != nil && *verdict.Suggestion != "" {
		fmt.Fprintf(&b, "Suggestion: %s\n", *verdict.Suggestion)
	}
	return strings.TrimRight(b.String(), "\n")
}

// revertField restores a field's pre-request status after an
// inconclusive or failed validation. No attempt is recorded.
func (s *Service) revertField(id types.FieldID, status types.FieldStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.state.Field(id); rec != nil && rec.Status == types.StatusAnalyzing {
		rec.Status = status
		s.state.Touch()
	}
}

// ExportCode produces the portable resumption code for the current state.
func (s *Service) ExportCode() (string, error) {
	s.mu.Lock()
	snapshot := s.state.Clone()
	s.mu.Unlock()
	return code.Encode(snapshot)
}

// ImportCode replaces the live session with one decoded from a portable
// code. A bad code leaves the current session untouched.
func (s *Service) ImportCode(codeStr string) error {
	state, err := code.Decode(codeStr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.recomputeEstimateLocked()
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.SessionUpdated, Data: state.Concept})
	s.autoSave()
	return nil
}

// Checkpoint writes a deliberate rollback point.
func (s *Service) Checkpoint(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}
	s.mu.Lock()
	snapshot := s.state.Clone()
	s.mu.Unlock()
	return s.gateway.Checkpoint(ctx, snapshot)
}

// RollbackToCheckpoint replaces the live session with the checkpoint
// slot, if one exists.
func (s *Service) RollbackToCheckpoint(ctx context.Context) bool {
	if s.gateway == nil {
		return false
	}
	state, ok := s.gateway.RestoreCheckpoint(ctx)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.state = state
	s.recomputeEstimateLocked()
	s.mu.Unlock()
	s.bus.Publish(event.Event{Type: event.SessionUpdated, Data: state.Concept})
	return true
}

// Flush waits for in-flight auto-saves. Tests and shutdown only.
func (s *Service) Flush() {
	s.saveWG.Wait()
}

// autoSave persists a snapshot without blocking the interactive flow.
// Failures surface as a warning event, never as an error to the caller.
// Snapshots carry a sequence number taken under the session lock; a
// goroutine that loses the scheduling race to a newer snapshot skips
// its write instead of clobbering the fresher state.
func (s *Service) autoSave() {
	if s.gateway == nil {
		return
	}
	s.mu.Lock()
	s.saveSeq++
	seq := s.saveSeq
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.saveWG.Add(1)
	go func() {
		defer s.saveWG.Done()
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if seq <= s.savedSeq {
			return
		}
		if err := s.gateway.Save(context.Background(), snapshot); err != nil {
			s.bus.Publish(event.Event{Type: event.StorageWarning, Data: err.Error()})
			return
		}
		s.savedSeq = seq
	}()
}

// recomputeEstimateLocked refreshes the token estimate from the full
// canonical history. Always a fresh computation, never incremental.
func (s *Service) recomputeEstimateLocked() {
	s.state.TokenEstimate = s.estimator.Estimate(s.state.ConversationHistory)
}
