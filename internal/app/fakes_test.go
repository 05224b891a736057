package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"gmb_sync/internal/domain"
)

// ---- store ----

// fakeStore keeps rows the way MySQL hands them back: every value goes
// through the column codec on write and on read.
type fakeStore struct {
	mu sync.Mutex

	bridges   []domain.LocationBridge
	creds     map[string]domain.Credential
	locations map[string]domain.Row
	reviews   map[string]domain.Row
	users     map[int64][]int64
	typeIDs   map[string]int64

	history       []domain.HistoryEntry
	notifications []domain.NotificationEntry

	locationInserts, locationUpdates int
	reviewInserts, reviewUpdates     int
	typeLookups                      int

	bridgesErr error
	insertErr  error
	updateErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		creds:     map[string]domain.Credential{},
		locations: map[string]domain.Row{},
		reviews:   map[string]domain.Row{},
		users:     map[int64][]int64{},
		typeIDs:   map[string]int64{domain.NotificationVoiceOfMerchantUpdated: 11},
	}
}

func credKey(org int64, sub string) string { return fmt.Sprintf("%d/%s", org, sub) }

func (f *fakeStore) addCredential(org int64, sub, token string) {
	f.creds[credKey(org, sub)] = domain.Credential{OrganizationID: org, Sub: sub, RefreshToken: token}
}

func persist(cols []domain.Field, r domain.Row) (domain.Row, error) {
	out := domain.Row{}
	for _, c := range cols {
		v, ok := r[c.Name]
		if !ok {
			continue
		}
		enc, err := domain.EncodeColumn(c.Kind, v)
		if err != nil {
			return nil, err
		}
		// the driver hands strings back as bytes
		if s, ok := enc.(string); ok {
			enc = []byte(s)
		}
		// DATETIME(3) rounds to the nearest millisecond
		if ts, ok := enc.(time.Time); ok {
			enc = ts.Round(time.Millisecond)
		}
		out[c.Name] = domain.DecodeColumn(c.Kind, enc)
	}
	return out, nil
}

func (f *fakeStore) ListLocationBridges(ctx context.Context) ([]domain.LocationBridge, error) {
	return f.bridges, f.bridgesErr
}

func (f *fakeStore) GetCredential(ctx context.Context, org int64, sub string) (domain.Credential, error) {
	c, ok := f.creds[credKey(org, sub)]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetLocation(ctx context.Context, id string) (domain.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.locations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) InsertLocation(ctx context.Context, r domain.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	row, err := persist(domain.LocationColumns(), r)
	if err != nil {
		return err
	}
	f.locations[r["id"].(string)] = row
	f.locationInserts++
	return nil
}

func (f *fakeStore) UpdateLocation(ctx context.Context, id string, r domain.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	row, err := persist(domain.LocationColumns(), r)
	if err != nil {
		return err
	}
	// untracked columns survive a whole-row update
	if t, ok := f.locations[id][domain.FieldKeywordCheckedAt]; ok {
		row[domain.FieldKeywordCheckedAt] = t
	}
	f.locations[id] = row
	f.locationUpdates++
	return nil
}

// markChecked plays the keyword stuffing checker.
func (f *fakeStore) markChecked(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations[id][domain.FieldKeywordCheckedAt] = at.UTC()
}

func (f *fakeStore) ListReviews(ctx context.Context, gmbID string) ([]domain.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Row
	for _, r := range f.reviews {
		if r["gmb_id"] == gmbID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertReview(ctx context.Context, r domain.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r["id"].(string)
	if _, dup := f.reviews[id]; dup {
		return errors.New("duplicate review " + id)
	}
	row, err := persist(domain.ReviewColumns(), r)
	if err != nil {
		return err
	}
	f.reviews[id] = row
	f.reviewInserts++
	return nil
}

func (f *fakeStore) UpdateReview(ctx context.Context, id string, r domain.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := persist(domain.ReviewColumns(), r)
	if err != nil {
		return err
	}
	row[domain.FieldBackedUpAt] = f.reviews[id][domain.FieldBackedUpAt]
	f.reviews[id] = row
	f.reviewUpdates++
	return nil
}

func (f *fakeStore) CountLiveReviews(ctx context.Context, gmbID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reviews {
		if r["gmb_id"] == gmbID && r[domain.FieldLive] == true {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertHistory(ctx context.Context, hs []domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, hs...)
	return nil
}

func (f *fakeStore) InsertNotifications(ctx context.Context, ns []domain.NotificationEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, ns...)
	return nil
}

func (f *fakeStore) UserIDsByOrganization(ctx context.Context, org int64) ([]int64, error) {
	return f.users[org], nil
}

func (f *fakeStore) NotificationTypeID(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typeLookups++
	id, ok := f.typeIDs[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

// ---- provider ----

type fakeProvider struct {
	mu        sync.Mutex
	locations map[string]map[string]any
	statuses  map[string]domain.VerificationStatus
	reviews   map[string][]map[string]any
	reviewErr error
	tokens    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		locations: map[string]map[string]any{},
		statuses:  map[string]domain.VerificationStatus{},
		reviews:   map[string][]map[string]any{},
	}
}

func (p *fakeProvider) GetLocation(ctx context.Context, token, id string) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
	loc, ok := p.locations[id]
	if !ok {
		return nil, errors.New("location not found upstream")
	}
	// copy, the caller merges the verification status in
	out := make(map[string]any, len(loc)+1)
	for k, v := range loc {
		out[k] = v
	}
	return out, nil
}

func (p *fakeProvider) GetVerificationStatus(ctx context.Context, token, id string) (domain.VerificationStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.statuses[id]; ok {
		return s, nil
	}
	return domain.StatusUnknown, nil
}

func (p *fakeProvider) Reviews(ctx context.Context, token, accountID, id string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		p.mu.Lock()
		items, err := p.reviews[id], p.reviewErr
		p.mu.Unlock()
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

// ---- tokens ----

type fakeTokens struct {
	err error
}

func (t fakeTokens) AccessToken(ctx context.Context, refresh string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "access-" + refresh, nil
}

// ---- publisher / consumer ----

type fakePublisher struct {
	mu       sync.Mutex
	sent     map[string][]any
	lenCalls []string
}

func newFakePublisher() *fakePublisher { return &fakePublisher{sent: map[string][]any{}} }

func (p *fakePublisher) Publish(ctx context.Context, queue string, msgs ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[queue] = append(p.sent[queue], msgs...)
	return nil
}

func (p *fakePublisher) Len(ctx context.Context, queue string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lenCalls = append(p.lenCalls, queue)
	return int64(len(p.sent[queue])), nil
}

func (p *fakePublisher) count(queue string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent[queue])
}

type fakeConsumer struct {
	bodies [][]byte
	cancel context.CancelFunc
}

func (c *fakeConsumer) Pop(ctx context.Context, queue string, wait time.Duration) ([]byte, bool, error) {
	if len(c.bodies) == 0 {
		c.cancel()
		return nil, false, nil
	}
	b := c.bodies[0]
	c.bodies = c.bodies[1:]
	return b, true, nil
}

// ---- cache ----

type fakeCache struct {
	store map[string]any
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	b, _ := json.Marshal(v)
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels++
	return nil
}

func ptr[T any](v T) *T { return &v }
