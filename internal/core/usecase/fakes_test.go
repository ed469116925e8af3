package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/core/ports"
)

var errFault = errors.New("injected fault")

// memStore is an in-memory stand-in for the postgres repositories. Reward
// units of work snapshot state and restore it when the callback fails.
type memStore struct {
	mu sync.Mutex

	intents   map[string]*domain.Intent
	campaigns map[string]*domain.Campaign
	matches   map[string]*domain.Match
	points    map[string]int64
	ledger    []domain.PointTransaction

	getIntentErr   error
	candidatesErr  error
	createErr      error
	createErrAfter int
	createConflict bool
	failTxStep     string

	createCalls    int
	candidateCalls int
}

func newMemStore() *memStore {
	return &memStore{
		intents:   make(map[string]*domain.Intent),
		campaigns: make(map[string]*domain.Campaign),
		matches:   make(map[string]*domain.Match),
		points:    make(map[string]int64),
	}
}

func (s *memStore) addIntent(i domain.Intent) {
	s.intents[i.ID] = &i
}

func (s *memStore) addCampaign(c domain.Campaign) {
	s.campaigns[c.ID] = &c
}

func (s *memStore) addMatch(m domain.Match) {
	s.matches[m.ID] = &m
}

// IntentRepository

func (s *memStore) Create(_ context.Context, intent *domain.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyIntent := *intent
	s.intents[intent.ID] = &copyIntent
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getIntentErr != nil {
		return nil, s.getIntentErr
	}
	intent, ok := s.intents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrIntentNotFound, "get intent", fmt.Errorf("id=%s", id))
	}
	copyIntent := *intent
	return &copyIntent, nil
}

func (s *memStore) ListMatchable(_ context.Context, userID string, now time.Time) ([]domain.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Intent, 0)
	for _, intent := range s.intents {
		if intent.UserID == userID && intent.Matchable(now) {
			out = append(out, *intent)
		}
	}
	return out, nil
}

func (s *memStore) ListUsersWithMatchable(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, intent := range s.intents {
		if !intent.Matchable(now) {
			continue
		}
		if _, ok := seen[intent.UserID]; ok {
			continue
		}
		seen[intent.UserID] = struct{}{}
		out = append(out, intent.UserID)
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, status domain.IntentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[id]
	if !ok {
		return domain.WrapError(domain.ErrIntentNotFound, "update intent status", fmt.Errorf("id=%s", id))
	}
	intent.Status = status
	return nil
}

func (s *memStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, intent := range s.intents {
		if intent.Status == domain.IntentStatusActive && !intent.ExpiresAt.After(now) {
			intent.Status = domain.IntentStatusExpired
			n++
		}
	}
	return n, nil
}

// CampaignRepository

func (s *memStore) ListCandidates(_ context.Context, intent *domain.Intent, now time.Time) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidateCalls++
	if s.candidatesErr != nil {
		return nil, s.candidatesErr
	}
	out := make([]domain.Campaign, 0)
	for _, c := range s.campaigns {
		if c.Status != domain.CampaignStatusActive || c.EndDate.Before(now) {
			continue
		}
		if c.Category == intent.Category || containsString(c.Keywords, intent.Keyword) || containsString(c.Keywords, intent.Category) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// MatchRepository

func (s *memStore) ExistingCampaignIDs(_ context.Context, intentID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for _, m := range s.matches {
		if m.IntentID == intentID {
			out[m.CampaignID] = struct{}{}
		}
	}
	return out, nil
}

func (s *memStore) CreatePending(_ context.Context, match *domain.Match) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil && s.createCalls > s.createErrAfter {
		return false, s.createErr
	}
	if s.createConflict {
		return false, nil
	}
	for _, m := range s.matches {
		if m.IntentID == match.IntentID && m.CampaignID == match.CampaignID {
			return false, nil
		}
	}
	copyMatch := *match
	s.matches[match.ID] = &copyMatch
	return true, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, status domain.MatchStatus) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Match, 0)
	for _, m := range s.matches {
		intent, ok := s.intents[m.IntentID]
		if !ok || intent.UserID != userID {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// RewardUnitOfWork

type memSnapshot struct {
	campaigns map[string]domain.Campaign
	matches   map[string]domain.Match
	points    map[string]int64
	ledgerLen int
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		campaigns: make(map[string]domain.Campaign, len(s.campaigns)),
		matches:   make(map[string]domain.Match, len(s.matches)),
		points:    make(map[string]int64, len(s.points)),
		ledgerLen: len(s.ledger),
	}
	for id, c := range s.campaigns {
		snap.campaigns[id] = *c
	}
	for id, m := range s.matches {
		snap.matches[id] = *m
	}
	for id, p := range s.points {
		snap.points[id] = p
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	for id, c := range snap.campaigns {
		c := c
		s.campaigns[id] = &c
	}
	for id, m := range snap.matches {
		m := m
		s.matches[id] = &m
	}
	s.points = snap.points
	s.ledger = s.ledger[:snap.ledgerLen]
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, tx ports.RewardTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx, &memTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (tx *memTx) fault(step string) error {
	if tx.store.failTxStep == step {
		return fmt.Errorf("%s: %w", step, errFault)
	}
	return nil
}

func (tx *memTx) LockMatchForUser(_ context.Context, matchID, userID string) (*domain.Match, error) {
	m, ok := tx.store.matches[matchID]
	if !ok {
		return nil, domain.WrapError(domain.ErrMatchNotFound, "lock match", fmt.Errorf("id=%s", matchID))
	}
	intent, ok := tx.store.intents[m.IntentID]
	if !ok || intent.UserID != userID {
		return nil, domain.WrapError(domain.ErrMatchNotFound, "lock match", fmt.Errorf("id=%s", matchID))
	}
	copyMatch := *m
	return &copyMatch, nil
}

func (tx *memTx) LockCampaign(_ context.Context, campaignID string) (*domain.Campaign, error) {
	c, ok := tx.store.campaigns[campaignID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCampaignNotFound, "lock campaign", fmt.Errorf("id=%s", campaignID))
	}
	copyCampaign := *c
	return &copyCampaign, nil
}

func (tx *memTx) SetMatchStatus(_ context.Context, matchID string, status domain.MatchStatus, at time.Time) error {
	if err := tx.fault("set_match_status"); err != nil {
		return err
	}
	m := tx.store.matches[matchID]
	m.Status = status
	m.UpdatedAt = at
	return nil
}

func (tx *memTx) AddCampaignSpent(_ context.Context, campaignID string, amount int64) error {
	if err := tx.fault("add_campaign_spent"); err != nil {
		return err
	}
	tx.store.campaigns[campaignID].Spent += amount
	return nil
}

func (tx *memTx) CreditUserPoints(_ context.Context, userID string, amount int64) error {
	if err := tx.fault("credit_user_points"); err != nil {
		return err
	}
	tx.store.points[userID] += amount
	return nil
}

func (tx *memTx) AppendTransaction(_ context.Context, txn *domain.PointTransaction) error {
	if err := tx.fault("append_transaction"); err != nil {
		return err
	}
	tx.store.ledger = append(tx.store.ledger, *txn)
	return nil
}

type runRecord struct {
	outcome string
	created int
}

type observerFake struct {
	mu        sync.Mutex
	runs      []runRecord
	scores    []float64
	decisions []string
	sweeps    int
}

func (o *observerFake) ObserveMatchRun(outcome string, created int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, runRecord{outcome: outcome, created: created})
}

func (o *observerFake) ObserveMatchScore(score float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scores = append(o.scores, score)
}

func (o *observerFake) ObserveDecision(decision, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, decision+":"+outcome)
}

func (o *observerFake) ObserveSweep(int, int, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sweeps++
}
