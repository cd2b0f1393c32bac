package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// ActivityMemory is a thread-safe userActivity collection.
// Records handed out are copies; callers never alias stored state.
type ActivityMemory struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	records map[string]*models.ActivityRecord
}

func NewActivityMemory(clock clockwork.Clock) *ActivityMemory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ActivityMemory{
		clock:   clock,
		records: make(map[string]*models.ActivityRecord),
	}
}

func (m *ActivityMemory) now() time.Time {
	return m.clock.Now().UTC()
}

func (m *ActivityMemory) UpsertLogin(ctx context.Context, entry models.LoginEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[entry.UID]
	if !ok {
		rec = &models.ActivityRecord{UID: entry.UID}
		m.records[entry.UID] = rec
	}

	now := m.now()
	loginTime, lastActivity := now, now

	rec.Email = entry.Email
	rec.DisplayName = entry.DisplayName
	rec.Role = entry.Role
	rec.Status = models.StatusActive
	rec.LoginTime = &loginTime
	rec.LastActivity = &lastActivity
	if entry.DeviceInfo != "" {
		rec.DeviceInfo = entry.DeviceInfo
	}
	if rec.BiometricID == nil && entry.BiometricID != nil {
		id := *entry.BiometricID
		rec.BiometricID = &id
	}

	return nil
}

// touch advances lastActivity, never moving it backwards or before loginTime.
// It MUST be called while holding m.mu.
func (m *ActivityMemory) touch(rec *models.ActivityRecord) {
	now := m.now()
	if rec.LoginTime != nil && now.Before(*rec.LoginTime) {
		now = *rec.LoginTime
	}
	if rec.LastActivity != nil && now.Before(*rec.LastActivity) {
		now = *rec.LastActivity
	}
	rec.LastActivity = &now
}

func (m *ActivityMemory) update(ctx context.Context, uid string, fn func(*models.ActivityRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[uid]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(rec)
	m.touch(rec)
	return nil
}

// TouchLastActivity refreshes active records only; an inactive session reports ErrNotFound
func (m *ActivityMemory) TouchLastActivity(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[uid]
	if !ok || rec.Status != models.StatusActive {
		return repositories.ErrNotFound
	}
	m.touch(rec)
	return nil
}

func (m *ActivityMemory) MarkInactive(ctx context.Context, uid string) error {
	return m.update(ctx, uid, func(rec *models.ActivityRecord) {
		rec.Status = models.StatusInactive
	})
}

func (m *ActivityMemory) SetCurrentPage(ctx context.Context, uid, page string) error {
	return m.update(ctx, uid, func(rec *models.ActivityRecord) {
		rec.CurrentPage = &page
	})
}

func (m *ActivityMemory) GetByUID(ctx context.Context, uid string) (*models.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneActivity(rec), nil
}

func (m *ActivityMemory) List(ctx context.Context, filter models.ActivityFilter) ([]*models.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.ActivityRecord, 0, len(m.records))
	for _, rec := range m.records {
		if filter.Matches(rec) {
			list = append(list, cloneActivity(rec))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UID < list[j].UID })

	return list, nil
}

// Delete removes a record. The service never deletes; operators and tests do.
func (m *ActivityMemory) Delete(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, uid)
}

func cloneActivity(rec *models.ActivityRecord) *models.ActivityRecord {
	c := *rec
	c.LoginTime = cloneTime(rec.LoginTime)
	c.LastActivity = cloneTime(rec.LastActivity)
	c.CurrentPage = cloneString(rec.CurrentPage)
	c.BiometricID = cloneString(rec.BiometricID)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
