// Package apptest provides in-memory implementations of the domain
// repositories and upstream ports for command, query and HTTP tests.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/solutionchat"
	"github.com/integration-hub/student-hub/internal/domain/verification"
)

// Store keeps every table in memory. It implements profile.Repository,
// integration.Repository, verification.Repository, quota.Repository,
// solutionchat.Repository and the account eraser.
type Store struct {
	mu sync.Mutex

	profiles map[string]*profile.Profile
	ledgers  map[string]*integration.Ledger
	records  []*verification.Record
	usage    map[usageKey]*usageRow
	messages []*solutionchat.Message

	// SaveMessageErr, when set, is returned by SaveMessage.
	SaveMessageErr error
}

type usageKey struct {
	user    string
	feature quota.Feature
	scope   string
}

type usageRow struct {
	used      int
	updatedAt time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]*profile.Profile),
		ledgers:  make(map[string]*integration.Ledger),
		usage:    make(map[usageKey]*usageRow),
	}
}

func cloneProfile(p *profile.Profile) *profile.Profile {
	cp := *p
	cp.Objectives = append([]string(nil), p.Objectives...)
	if p.InFrance != nil {
		v := *p.InFrance
		cp.InFrance = &v
	}
	return &cp
}

// Put stores a profile as-is.
func (s *Store) Put(p *profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = cloneProfile(p)
}

// ─────────────────────────────────────────────────────────────────────────────
// profile.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Get(_ context.Context, userID string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) Create(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; ok {
		return shared.ErrAlreadyExists
	}
	s.profiles[p.UserID] = cloneProfile(p)
	return nil
}

func (s *Store) GetOrCreate(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := profile.New(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.profiles[userID]; !ok {
		s.profiles[userID] = p
	}
	s.mu.Unlock()
	return s.Get(ctx, userID)
}

func (s *Store) UpdateOnboarding(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[p.UserID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	next := cloneProfile(p)
	next.IntegrationProgress = cur.IntegrationProgress
	next.Status = cur.Status
	next.IsVerified = cur.IsVerified
	next.IsPremium = cur.IsPremium
	s.profiles[p.UserID] = next
	return nil
}

func (s *Store) UpdateProgress(_ context.Context, userID string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	p.IntegrationProgress = percent
	return nil
}

func (s *Store) SetPremium(_ context.Context, userID string, premium bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	p.IsPremium = premium
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// integration.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Load(_ context.Context, userID string) (*integration.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgerCopy(userID), nil
}

func (s *Store) ledgerCopy(userID string) *integration.Ledger {
	out := integration.NewLedger(userID)
	if l, ok := s.ledgers[userID]; ok {
		for k, v := range l.Checklist {
			out.Checklist[k] = v
		}
		for k, v := range l.Documents {
			out.Documents[k] = v
		}
	}
	return out
}

func (s *Store) Apply(_ context.Context, userID string, t integration.Toggle, progress integration.ProgressFunc) (integration.ProgressChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return integration.ProgressChange{}, shared.ErrProfileNotFound
	}
	l, ok := s.ledgers[userID]
	if !ok {
		l = integration.NewLedger(userID)
		s.ledgers[userID] = l
	}
	l.Apply(t)

	change := integration.ProgressChange{Previous: p.IntegrationProgress, Current: progress(s.ledgerCopy(userID))}
	p.IntegrationProgress = change.Current
	return change, nil
}

// Rows returns the number of persisted overlay rows for the user.
func (s *Store) Rows(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[userID]
	if !ok {
		return 0
	}
	return len(l.Checklist) + len(l.Documents)
}

// ─────────────────────────────────────────────────────────────────────────────
// verification.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) InsertWithinLimit(_ context.Context, r *verification.Record, since time.Time, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[r.UserID]; !ok {
		return shared.ErrProfileNotFound
	}
	n := 0
	for _, have := range s.records {
		if have.UserID == r.UserID && !have.CreatedAt.Before(since) {
			n++
		}
	}
	if n >= max {
		return shared.ErrTooManyAttempts
	}
	cp := *r
	s.records = append(s.records, &cp)
	return nil
}

func (s *Store) Update(_ context.Context, r *verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.records {
		if have.ID == r.ID {
			cp := *r
			s.records[i] = &cp
			return nil
		}
	}
	return shared.ErrNotFound
}

func (s *Store) EmailVerifiedByOther(_ context.Context, email, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Email == email && r.UserID != userID && r.IsVerified() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) FindByTokenHash(_ context.Context, hash string) (*verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.TokenHash != "" && r.TokenHash == hash {
			cp := *r
			return &cp, nil
		}
	}
	return nil, shared.ErrVerificationTokenInvalid
}

func (s *Store) Confirm(_ context.Context, r *verification.Record, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[r.UserID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	for _, have := range s.records {
		if have.ID == r.ID {
			have.Outcome = verification.OutcomeVerified
			t := at
			have.VerifiedAt = &t
		}
	}
	p.MarkVerified(r.Email)
	return nil
}

func (s *Store) PurgeUnverified(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if !r.IsVerified() && !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

// Records returns a copy of the user's verification rows, oldest first.
func (s *Store) Records(userID string) []verification.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []verification.Record
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// quota.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Consume(_ context.Context, userID string, f quota.Feature, scope string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{userID, f, scope}
	row, ok := s.usage[k]
	if !ok {
		row = &usageRow{}
	}
	if row.used >= limit {
		return 0, shared.ErrLimitReached
	}
	row.used++
	row.updatedAt = time.Now()
	s.usage[k] = row
	return row.used, nil
}

func (s *Store) Release(_ context.Context, userID string, f quota.Feature, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.usage[usageKey{userID, f, scope}]; ok && row.used > 0 {
		row.used--
	}
	return nil
}

func (s *Store) Used(_ context.Context, userID string, f quota.Feature, scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.usage[usageKey{userID, f, scope}]; ok {
		return row.used, nil
	}
	return 0, nil
}

func (s *Store) PurgeBefore(_ context.Context, f quota.Feature, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, row := range s.usage {
		if k.feature == f && row.updatedAt.Before(before) {
			delete(s.usage, k)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// solutionchat.Repository & erasure
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) SaveMessage(_ context.Context, m *solutionchat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveMessageErr != nil {
		return s.SaveMessageErr
	}
	if _, ok := s.profiles[m.SenderID]; !ok {
		return shared.ErrProfileNotFound
	}
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

// Messages returns the number of stored chat messages.
func (s *Store) Messages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// DeleteAll removes every row the user owns.
func (s *Store) DeleteAll(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64

	msgs := s.messages[:0]
	for _, m := range s.messages {
		if m.SenderID == userID {
			n++
			continue
		}
		msgs = append(msgs, m)
	}
	s.messages = msgs

	for k := range s.usage {
		if k.user == userID {
			delete(s.usage, k)
			n++
		}
	}

	recs := s.records[:0]
	for _, r := range s.records {
		if r.UserID == userID {
			n++
			continue
		}
		recs = append(recs, r)
	}
	s.records = recs

	if l, ok := s.ledgers[userID]; ok {
		n += int64(len(l.Checklist) + len(l.Documents))
		delete(s.ledgers, userID)
	}
	if _, ok := s.profiles[userID]; ok {
		n++
		delete(s.profiles, userID)
	}
	return n, nil
}
