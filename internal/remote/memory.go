package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alexanderramin/gymsync/internal/domain"
)

// Call records one operation that reached a MemoryTable.
type Call struct {
	Op        string
	Session   domain.GymSession
	YearMonth string
}

// MemoryTable is an in-process Table used for tests and offline development.
// Failures can be injected per operation or per partition.
type MemoryTable struct {
	mu         sync.Mutex
	partitions map[string]map[string]domain.GymSession
	calls      []Call

	failCreate error
	failDelete error
	failPing   error
	failMonth  map[string]error
}

// NewMemoryTable returns an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{
		partitions: make(map[string]map[string]domain.GymSession),
		failMonth:  make(map[string]error),
	}
}

func (m *MemoryTable) CreateSession(ctx context.Context, s domain.GymSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "create", Session: s, YearMonth: s.YearMonth()})

	if m.failCreate != nil {
		return m.failCreate
	}
	if s.IsActive() {
		return fmt.Errorf("session %s: %w", s.ID, ErrActiveSession)
	}
	part, ok := m.partitions[s.YearMonth()]
	if !ok {
		part = make(map[string]domain.GymSession)
		m.partitions[s.YearMonth()] = part
	}
	part[s.SortKey()] = remoteItem(s)
	return nil
}

func (m *MemoryTable) DeleteSession(ctx context.Context, s domain.GymSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "delete", Session: s, YearMonth: s.YearMonth()})

	if m.failDelete != nil {
		return m.failDelete
	}
	if part, ok := m.partitions[s.YearMonth()]; ok {
		delete(part, s.SortKey())
	}
	return nil
}

func (m *MemoryTable) GetSessionsForMonth(ctx context.Context, yearMonth string) ([]domain.GymSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "query", YearMonth: yearMonth})

	if err := m.failMonth[yearMonth]; err != nil {
		return nil, err
	}
	part := m.partitions[yearMonth]
	out := make([]domain.GymSession, 0, len(part))
	for _, s := range part {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.Before(out[j].CheckInTime) })
	return out, nil
}

func (m *MemoryTable) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failPing
}

// Seed stores s directly, bypassing call recording and fault injection.
func (m *MemoryTable) Seed(sessions ...domain.GymSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		part, ok := m.partitions[s.YearMonth()]
		if !ok {
			part = make(map[string]domain.GymSession)
			m.partitions[s.YearMonth()] = part
		}
		part[s.SortKey()] = remoteItem(s)
	}
}

// All returns every stored session across partitions.
func (m *MemoryTable) All() []domain.GymSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GymSession
	for _, part := range m.partitions {
		for _, s := range part {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.Before(out[j].CheckInTime) })
	return out
}

// Get returns the stored session with the given id, if any.
func (m *MemoryTable) Get(id string) (domain.GymSession, bool) {
	for _, s := range m.All() {
		if s.ID == id {
			return s, true
		}
	}
	return domain.GymSession{}, false
}

// Calls returns a copy of every recorded operation.
func (m *MemoryTable) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// SetFailMonth injects (or clears, with nil) a failure for one partition.
func (m *MemoryTable) SetFailMonth(yearMonth string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failMonth, yearMonth)
		return
	}
	m.failMonth[yearMonth] = err
}

// SetFailCreate injects (or clears) a failure for CreateSession.
func (m *MemoryTable) SetFailCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreate = err
}

// SetFailDelete injects (or clears) a failure for DeleteSession.
func (m *MemoryTable) SetFailDelete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = err
}

// SetFailPing injects (or clears) a failure for Ping.
func (m *MemoryTable) SetFailPing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPing = err
}
