package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Storage and EventBus used for development and tests.
//
// Stored complaints are immutable snapshots. MutateComplaint serialises writers per
// complaint, works on a private copy and swaps the snapshot in one step, so readers
// observe either the old or the new state, never a partial one.
type MemoryStore struct {
	mu         sync.RWMutex
	complaints map[string]*models.Complaint
	locks      map[string]*sync.Mutex
	users      map[string]models.User
	feedback   []models.Feedback
	entrySeq   uint

	subsMu sync.Mutex
	subs   map[chan models.ComplaintEvent]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: make(map[string]*models.Complaint),
		locks:      make(map[string]*sync.Mutex),
		users:      make(map[string]models.User),
		subs:       make(map[chan models.ComplaintEvent]struct{}),
	}
}

func (m *MemoryStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.complaints[c.ID]; exists {
		return apperrors.NewStorageError("create complaint", fmt.Errorf("duplicate id %s", c.ID))
	}

	snapshot := c.Clone()
	for i := range snapshot.StatusHistory {
		m.entrySeq++
		snapshot.StatusHistory[i].ID = m.entrySeq
		snapshot.StatusHistory[i].ComplaintID = c.ID
	}
	for i := range snapshot.Evidence {
		if snapshot.Evidence[i].ID == "" {
			snapshot.Evidence[i].ID = uuid.New().String()
		}
		snapshot.Evidence[i].ComplaintID = c.ID
	}

	m.complaints[c.ID] = snapshot
	m.locks[c.ID] = &sync.Mutex{}
	return nil
}

func (m *MemoryStore) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	m.mu.RLock()
	c, ok := m.complaints[id]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFoundError("complaint", id)
	}
	return c.Clone(), nil
}

func (m *MemoryStore) MutateComplaint(ctx context.Context, id string, fn MutateFunc) (*models.Complaint, error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("complaint", id)
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	current := m.complaints[id]
	m.mu.RUnlock()

	working := current.Clone()
	historyLen, evidenceLen := len(working.StatusHistory), len(working.Evidence)

	if err := fn(working); err != nil {
		return nil, err
	}
	if len(working.StatusHistory) < historyLen || len(working.Evidence) < evidenceLen {
		return nil, fmt.Errorf("complaint %s: history and evidence are append-only", id)
	}

	// Only mutable fields and appended rows are taken from the working copy.
	next := current.Clone()
	next.Status = working.Status
	next.AssignedLabour = working.AssignedLabour
	next.UpdatedAt = working.UpdatedAt

	m.mu.Lock()
	for _, e := range working.StatusHistory[historyLen:] {
		m.entrySeq++
		e.ID = m.entrySeq
		e.ComplaintID = id
		next.StatusHistory = append(next.StatusHistory, e)
	}
	for _, e := range working.Evidence[evidenceLen:] {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.ComplaintID = id
		next.Evidence = append(next.Evidence, e)
	}
	m.complaints[id] = next
	m.mu.Unlock()

	return next.Clone(), nil
}

// visible returns the snapshots inside sc. Callers must not modify them.
func (m *MemoryStore) visible(sc scope.Scope) []*models.Complaint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Complaint, 0, len(m.complaints))
	for _, c := range m.complaints {
		if sc.Allows(c) {
			out = append(out, c)
		}
	}
	return out
}

func newestFirst(list []*models.Complaint) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func page(list []*models.Complaint, offset, limit int) []models.Complaint {
	if offset >= len(list) {
		return []models.Complaint{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}

	out := make([]models.Complaint, 0, len(list))
	for _, c := range list {
		row := c.Clone()
		// List rows come without associations, like the SQL store.
		row.StatusHistory = nil
		row.Evidence = nil
		out = append(out, *row)
	}
	return out
}

func (m *MemoryStore) ListComplaints(ctx context.Context, sc scope.Scope, f ComplaintFilter) ([]models.Complaint, error) {
	f = f.Normalize()

	var matched []*models.Complaint
	for _, c := range m.visible(sc) {
		if f.matches(c) {
			matched = append(matched, c)
		}
	}
	newestFirst(matched)
	return page(matched, f.Offset, f.Limit), nil
}

func (m *MemoryStore) CountByStatus(ctx context.Context, sc scope.Scope) (map[models.Status]int64, error) {
	counts := make(map[models.Status]int64)
	for _, c := range m.visible(sc) {
		counts[c.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) CountBy(ctx context.Context, sc scope.Scope, field GroupField, limit int) ([]models.Bucket, error) {
	if !field.valid() {
		return nil, apperrors.NewValidationError("group", fmt.Sprintf("cannot group by %q", field))
	}

	counts := make(map[string]int64)
	for _, c := range m.visible(sc) {
		counts[field.value(c)]++
	}

	buckets := make([]models.Bucket, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, models.Bucket{Key: k, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})

	if limit > 0 && limit < len(buckets) {
		buckets = buckets[:limit]
	}
	return buckets, nil
}

func (m *MemoryStore) RecentComplaints(ctx context.Context, sc scope.Scope, limit int) ([]models.Complaint, error) {
	list := m.visible(sc)
	newestFirst(list)
	return page(list, 0, limit), nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	m.mu.Lock()
	m.users[u.ID] = *u
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	u, ok := m.users[id]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	return &u, nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	m.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStore) visibleLabour(sc scope.Scope) []models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.User
	for _, u := range m.users {
		u := u
		if u.Active && sc.AllowsUser(&u) {
			out = append(out, u)
		}
	}
	return out
}

func (m *MemoryStore) ListLabour(ctx context.Context, sc scope.Scope) ([]models.User, error) {
	users := m.visibleLabour(sc)
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (m *MemoryStore) CountLabour(ctx context.Context, sc scope.Scope) (int64, error) {
	return int64(len(m.visibleLabour(sc))), nil
}

func (m *MemoryStore) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	row := *f
	row.User = nil

	m.mu.Lock()
	m.feedback = append(m.feedback, row)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListFeedback(ctx context.Context, sc scope.Scope, p FeedbackPage) ([]models.Feedback, int64, error) {
	p = p.Normalize()

	m.mu.RLock()
	var matched []models.Feedback
	for i := range m.feedback {
		if sc.AllowsFeedback(&m.feedback[i]) {
			row := m.feedback[i]
			if u, ok := m.users[row.UserID]; ok {
				row.User = &models.User{ID: u.ID, Name: u.Name, Email: u.Email}
			}
			matched = append(matched, row)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if p.Offset() >= len(matched) {
		return []models.Feedback{}, total, nil
	}
	matched = matched[p.Offset():]
	if p.Limit < len(matched) {
		matched = matched[:p.Limit]
	}
	return matched, total, nil
}

// PublishEvent fans ev out to every subscriber. Slow subscribers lose events
// rather than block the publisher.
func (m *MemoryStore) PublishEvent(ctx context.Context, ev models.ComplaintEvent) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("WARNING: Event subscriber is full, dropping %s for complaint %s", ev.Type, ev.ComplaintID)
		}
	}
	return nil
}

// SubscribeEvents registers a subscriber until ctx is cancelled.
func (m *MemoryStore) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	ch := make(chan models.ComplaintEvent, 64)

	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subsMu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.subsMu.Unlock()
	}()

	return ch, nil
}

var (
	_ Storage  = (*MemoryStore)(nil)
	_ EventBus = (*MemoryStore)(nil)
	_ Storage  = (*Service)(nil)
	_ EventBus = (*Service)(nil)
)
