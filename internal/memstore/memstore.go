// Package memstore is an in-memory implementation of the SmartBot store, used
// by the demo command and by tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// ErrEmailTaken is returned by CreateUser for a duplicate email.
var ErrEmailTaken = errors.New("memstore: email already registered")

// Store keeps every record in maps guarded by one mutex. Values are copied in
// and out so callers never share memory with the store.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]types.User
	jobs         map[uuid.UUID]types.Job
	resumes      map[uuid.UUID]types.Resume
	applications map[uuid.UUID]types.Application
	sessions     map[string]types.Session
	messages     map[string][]types.Message
	analyses     map[string]types.CandidateAnalysis
	categories   map[uuid.UUID][]types.AnalysisCategory
	nextMsgID    int64
}

var _ smartbot.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]types.User),
		jobs:         make(map[uuid.UUID]types.Job),
		resumes:      make(map[uuid.UUID]types.Resume),
		applications: make(map[uuid.UUID]types.Application),
		sessions:     make(map[string]types.Session),
		messages:     make(map[string][]types.Message),
		analyses:     make(map[string]types.CandidateAnalysis),
		categories:   make(map[uuid.UUID][]types.AnalysisCategory),
	}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutJob inserts or replaces a job.
func (s *Store) PutJob(j types.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// PutResume inserts or replaces a resume.
func (s *Store) PutResume(r types.Resume) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes[r.ID] = r
}

// PutApplication inserts or replaces an application.
func (s *Store) PutApplication(a types.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[a.ID] = a
}

// DeleteJob removes a job, leaving its applications dangling.
func (s *Store) DeleteJob(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// DeleteResume removes a resume, leaving its applications dangling.
func (s *Store) DeleteResume(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resumes, id)
}

func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (s *Store) GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resumes[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

// CreateUser stores a new account and assigns its ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, u *types.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

// ListApplicationsByJob returns the applications of a job, oldest first.
func (s *Store) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []types.Application{}
	for _, a := range s.applications {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.ApplicationID == sess.ApplicationID {
			return smartbot.ErrSessionExists
		}
	}
	if sess.Version == 0 {
		sess.Version = 1
	}
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	c := cloneSession(sess)
	return &c, nil
}

func (s *Store) GetSessionByApplication(ctx context.Context, applicationID uuid.UUID) (*types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ApplicationID == applicationID {
			c := cloneSession(sess)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sess.ID]
	if !ok || stored.Version != sess.Version {
		return smartbot.ErrVersionConflict
	}
	sess.Version++
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *Store) ResetSession(ctx context.Context, sess *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sess.ID]
	if !ok || stored.Version != sess.Version {
		return smartbot.ErrVersionConflict
	}
	if a, ok := s.analyses[sess.ID]; ok {
		delete(s.categories, a.ID)
		delete(s.analyses, sess.ID)
	}
	delete(s.messages, sess.ID)

	sess.Status = types.SessionActive
	sess.PendingQuestionID = nil
	sess.CompletedAt = nil
	sess.Version++
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, m *types.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[m.SessionID]; !ok {
		return errors.New("memstore: unknown session " + m.SessionID)
	}
	s.appendLocked(m)
	return nil
}

func (s *Store) appendLocked(m *types.Message) {
	s.nextMsgID++
	m.ID = s.nextMsgID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.SessionID] = append(s.messages[m.SessionID], cloneMessage(*m))
}

// SaveTurn checks every precondition before it writes, so a failed turn
// leaves the store untouched.
func (s *Store) SaveTurn(ctx context.Context, t *smartbot.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[t.Session.ID]
	if !ok || stored.Version != t.Session.Version {
		return smartbot.ErrVersionConflict
	}
	prev, ok := s.analyses[t.Analysis.SessionID]
	if !ok {
		return errors.New("memstore: unknown analysis for session " + t.Analysis.SessionID)
	}
	cat := -1
	if t.Clarified != nil {
		cats := s.categories[t.Clarified.AnalysisID]
		for i := range cats {
			if cats[i].ID == t.Clarified.ID {
				cat = i
				break
			}
		}
		if cat < 0 {
			return errors.New("memstore: unknown category " + t.Clarified.ID.String())
		}
	}

	s.appendLocked(t.Answer)
	if t.Next != nil {
		s.appendLocked(t.Next)
	}
	if cat >= 0 {
		s.categories[t.Clarified.AnalysisID][cat] = *t.Clarified
	}
	s.analyses[t.Analysis.SessionID] = mergeAnalysis(prev, *t.Analysis)

	t.Session.PendingQuestionID = t.PendingQuestion()
	t.Session.Version++
	s.sessions[t.Session.ID] = cloneSession(*t.Session)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id int64) (*types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == id {
				c := cloneMessage(m)
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, 0, len(s.messages[sessionID]))
	for _, m := range s.messages[sessionID] {
		out = append(out, cloneMessage(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetMessageMetadata overwrites the metadata of a stored message.
func (s *Store) SetMessageMetadata(id int64, meta *types.MessageMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				s.messages[sid][i].Metadata = meta
				return
			}
		}
	}
}

func (s *Store) CreateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.analyses[a.SessionID]; ok {
		return errors.New("memstore: analysis already exists for session " + a.SessionID)
	}
	s.analyses[a.SessionID] = cloneAnalysis(*a)
	return nil
}

func (s *Store) GetAnalysisBySession(ctx context.Context, sessionID string) (*types.CandidateAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[sessionID]
	if !ok {
		return nil, nil
	}
	c := cloneAnalysis(a)
	return &c, nil
}

func (s *Store) UpdateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.analyses[a.SessionID]
	if !ok {
		return errors.New("memstore: unknown analysis for session " + a.SessionID)
	}
	s.analyses[a.SessionID] = mergeAnalysis(stored, *a)
	return nil
}

// mergeAnalysis applies an update the way db.UpdateAnalysis does: the final
// score is written once and the completed flag never goes back to false.
func mergeAnalysis(stored, update types.CandidateAnalysis) types.CandidateAnalysis {
	out := cloneAnalysis(update)
	if stored.FinalScore != nil {
		v := *stored.FinalScore
		out.FinalScore = &v
	}
	out.AnalysisCompleted = stored.AnalysisCompleted || update.AnalysisCompleted
	return out
}

func (s *Store) CreateCategories(ctx context.Context, cats []types.AnalysisCategory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cats {
		s.categories[c.AnalysisID] = append(s.categories[c.AnalysisID], c)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, analysisID uuid.UUID) ([]types.AnalysisCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AnalysisCategory, len(s.categories[analysisID]))
	copy(out, s.categories[analysisID])
	return out, nil
}

func cloneSession(s types.Session) types.Session {
	if s.PendingQuestionID != nil {
		id := *s.PendingQuestionID
		s.PendingQuestionID = &id
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

func cloneMessage(m types.Message) types.Message {
	if m.Metadata != nil {
		meta := *m.Metadata
		meta.Remaining = append([]types.Question{}, m.Metadata.Remaining...)
		m.Metadata = &meta
	}
	return m
}

func cloneAnalysis(a types.CandidateAnalysis) types.CandidateAnalysis {
	if a.FinalScore != nil {
		v := *a.FinalScore
		a.FinalScore = &v
	}
	a.Strengths = cloneStrings(a.Strengths)
	a.Weaknesses = cloneStrings(a.Weaknesses)
	a.MissingRequirements = cloneStrings(a.MissingRequirements)
	a.KeyInsights = cloneStrings(a.KeyInsights)
	a.RemainingConcerns = cloneStrings(a.RemainingConcerns)
	if a.Clarifications != nil {
		a.Clarifications = append([]types.Clarification{}, a.Clarifications...)
	}
	return a
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
