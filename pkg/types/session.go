// Package types provides the core data types for the Feynlab server.
package types

import "time"

// Version is the session format version. Persisted and encoded records
// carry it so incompatible formats can be detected on restore.
const Version = "2.1.0"

// FieldStatus is the lifecycle state of a single explanation field.
type FieldStatus string

const (
	StatusLocked        FieldStatus = "locked"
	StatusPending       FieldStatus = "pending"
	StatusAnalyzing     FieldStatus = "analyzing"
	StatusNeedsRevision FieldStatus = "needs_revision"
	StatusApproved      FieldStatus = "approved"
)

// FieldID identifies one of the seven explanation fields.
type FieldID string

const (
	FieldDefinition    FieldID = "definition"
	FieldMechanism     FieldID = "mechanism"
	FieldExample       FieldID = "example"
	FieldAnalogy       FieldID = "analogy"
	FieldWhyItMatters  FieldID = "why_it_matters"
	FieldMisconception FieldID = "misconception"
	FieldIntegration   FieldID = "integration"
)

// FieldOrder is the fixed unlock order. A field unlocks only when its
// immediate predecessor is approved; definition has no predecessor and
// starts unlocked.
var FieldOrder = []FieldID{
	FieldDefinition,
	FieldMechanism,
	FieldExample,
	FieldAnalogy,
	FieldWhyItMatters,
	FieldMisconception,
	FieldIntegration,
}

// Turn is one role-tagged unit of conversational text.
type Turn struct {
	Role string `json:"role"` // "user" | "assistant" | "system"
	Text string `json:"text"`
}

// Attempt records one prior submission for a field together with its
// verdict. Attempts are append-only; they are never rewritten.
type Attempt struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Status    FieldStatus `json:"status"`
	Issues    []string    `json:"issues,omitempty"`
	Strengths []string    `json:"strengths,omitempty"`
	Time      int64       `json:"time"`
}

// FieldRecord is the per-field progress state.
type FieldRecord struct {
	Value    string      `json:"value"`
	Status   FieldStatus `json:"status"`
	Unlocked bool        `json:"unlocked"`
	Attempts []Attempt   `json:"attempts,omitempty"`
}

// ConceptModule is one decomposition unit of the concept being learned.
type ConceptModule struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// EmotionalState holds advisory counters derived from the user's
// behavior. Informational only; nothing else depends on it.
type EmotionalState struct {
	FrustrationSignals []string `json:"frustrationSignals,omitempty"`
	EncouragementsSent int      `json:"encouragementsSent"`
}

// SessionState is the canonical in-memory representation of one learning
// session. Exactly one live instance exists at a time; it is replaced,
// not mutated in place, when the user starts a new concept.
type SessionState struct {
	Version             string                   `json:"version"`
	Concept             string                   `json:"concept"`
	Modules             []ConceptModule          `json:"modules,omitempty"`
	CurrentModuleIndex  int                      `json:"currentModuleIndex"`
	Fields              map[FieldID]*FieldRecord `json:"fields"`
	ConversationHistory []Turn                   `json:"conversationHistory,omitempty"`
	TokenEstimate       int                      `json:"tokenEstimate"`
	StartTime           int64                    `json:"startTime"`
	LastUpdateTime      int64                    `json:"lastUpdateTime"`
	Emotional           EmotionalState           `json:"emotional"`
}

// NewSessionState creates a fresh session. All fields start pending or
// locked except definition, which is unlocked from the start.
func NewSessionState() *SessionState {
	now := time.Now().UnixMilli()
	fields := make(map[FieldID]*FieldRecord, len(FieldOrder))
	for _, id := range FieldOrder {
		rec := &FieldRecord{Status: StatusLocked}
		if id == FieldDefinition {
			rec.Status = StatusPending
			rec.Unlocked = true
		}
		fields[id] = rec
	}
	return &SessionState{
		Version:        Version,
		Fields:         fields,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Touch updates the last-modified timestamp. Call after every mutation.
func (s *SessionState) Touch() {
	s.LastUpdateTime = time.Now().UnixMilli()
}

// Field returns the record for id. The key set of Fields is fixed at the
// seven known identifiers, so a nil result means the state was built
// outside NewSessionState and is corrupt.
func (s *SessionState) Field(id FieldID) *FieldRecord {
	return s.Fields[id]
}

// IsComplete reports whether every field has been approved.
func (s *SessionState) IsComplete() bool {
	for _, id := range FieldOrder {
		rec := s.Fields[id]
		if rec == nil || rec.Status != StatusApproved {
			return false
		}
	}
	return true
}

// ApprovedFields returns the IDs of all approved fields in unlock order.
func (s *SessionState) ApprovedFields() []FieldID {
	var out []FieldID
	for _, id := range FieldOrder {
		if rec := s.Fields[id]; rec != nil && rec.Status == StatusApproved {
			out = append(out, id)
		}
	}
	return out
}

// CurrentField returns the first unlocked field that is not yet
// approved, or empty when the session is complete.
func (s *SessionState) CurrentField() FieldID {
	for _, id := range FieldOrder {
		rec := s.Fields[id]
		if rec != nil && rec.Unlocked && rec.Status != StatusApproved {
			return id
		}
	}
	return ""
}

// Successor returns the field that follows id in the unlock order, or
// empty for integration (the last field).
func Successor(id FieldID) FieldID {
	for i, f := range FieldOrder {
		if f == id && i+1 < len(FieldOrder) {
			return FieldOrder[i+1]
		}
	}
	return ""
}

// ApproveField marks id approved and unlocks its successor. The
// successor's unlock is the only false→true transition it will ever see;
// an already-unlocked successor is left alone.
func (s *SessionState) ApproveField(id FieldID) {
	rec := s.Fields[id]
	if rec == nil {
		return
	}
	rec.Status = StatusApproved
	rec.Unlocked = true
	if next := Successor(id); next != "" {
		nrec := s.Fields[next]
		if nrec != nil && !nrec.Unlocked {
			nrec.Unlocked = true
			nrec.Status = StatusPending
		}
	}
	s.Touch()
}

// AppendTurn appends one turn to the conversation history. History is
// append-only during a session; only persistence compaction may cap it.
func (s *SessionState) AppendTurn(role, text string) {
	s.ConversationHistory = append(s.ConversationHistory, Turn{Role: role, Text: text})
	s.Touch()
}

// Clone returns a deep copy. Used to hand a stable snapshot to
// fire-and-forget persistence without holding the session lock.
func (s *SessionState) Clone() *SessionState {
	out := *s
	out.Modules = append([]ConceptModule(nil), s.Modules...)
	out.ConversationHistory = append([]Turn(nil), s.ConversationHistory...)
	out.Emotional.FrustrationSignals = append([]string(nil), s.Emotional.FrustrationSignals...)
	out.Fields = make(map[FieldID]*FieldRecord, len(s.Fields))
	for id, rec := range s.Fields {
		cp := *rec
		cp.Attempts = append([]Attempt(nil), rec.Attempts...)
		out.Fields[id] = &cp
	}
	return &out
}
