package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

type hoursStoreStub struct {
	mu      sync.Mutex
	hours   map[string]float64
	updates int
}

func newHoursStoreStub(hours map[string]float64) *hoursStoreStub {
	if hours == nil {
		hours = map[string]float64{}
	}
	return &hoursStoreStub{hours: hours}
}

func (s *hoursStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Professor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hours, ok := s.hours[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Professor{ID: id, WeeklyHours: hours}, nil
}

func (s *hoursStoreStub) UpdateWeeklyHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hours[id] = hours
	s.updates++
	return nil
}

func (s *hoursStoreStub) get(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hours[id]
}

// rowLockStore behaves like SELECT ... FOR UPDATE: a professor row belongs to
// the first transaction that locks it until that transaction commits.
type rowLockStore struct {
	mu      sync.Mutex
	cond    *sync.Cond
	hours   map[string]float64
	owners  map[string]sqlx.ExtContext
	waiting map[string]int
}

func newRowLockStore(hours map[string]float64) *rowLockStore {
	s := &rowLockStore{hours: hours, owners: map[string]sqlx.ExtContext{}, waiting: map[string]int{}}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *rowLockStore) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Professor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		owner, held := s.owners[id]
		if !held || owner == exec {
			break
		}
		s.waiting[id]++
		s.cond.Wait()
		s.waiting[id]--
	}
	hours, ok := s.hours[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	s.owners[id] = exec
	return &models.Professor{ID: id, WeeklyHours: hours}, nil
}

func (s *rowLockStore) UpdateWeeklyHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[id] != exec {
		return errors.New("professor row not locked by this transaction")
	}
	s.hours[id] = hours
	return nil
}

func (s *rowLockStore) commit(exec sqlx.ExtContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, owner := range s.owners {
		if owner == exec {
			delete(s.owners, id)
		}
	}
	s.cond.Broadcast()
}

func (s *rowLockStore) waiters(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting[id]
}

func (s *rowLockStore) get(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hours[id]
}

func TestProfessorLoadTrackerAssign(t *testing.T) {
	store := newHoursStoreStub(map[string]float64{"p1": 16})
	tracker := NewProfessorLoadTracker(store, 0, nil, nil)
	assert.Equal(t, horario.DefaultMaxWeeklyHours, tracker.MaxHours())

	next, err := tracker.Assign(context.Background(), nil, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 20.0, next)
	assert.Equal(t, 20.0, store.get("p1"))
}

func TestProfessorLoadTrackerAssignRejectsOverCap(t *testing.T) {
	store := newHoursStoreStub(map[string]float64{"p1": 18})
	tracker := NewProfessorLoadTracker(store, 20, nil, nil)

	_, err := tracker.Assign(context.Background(), nil, "p1", 4)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMaxHoursExceeded))

	var maxErr *horario.MaxHoursError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, "p1", maxErr.ProfessorID)
	assert.Equal(t, 18.0, maxErr.Committed)
	assert.Equal(t, 0, store.updates)
	assert.Equal(t, 18.0, store.get("p1"))
}

func TestProfessorLoadTrackerUnknownProfessor(t *testing.T) {
	tracker := NewProfessorLoadTracker(newHoursStoreStub(nil), 20, nil, nil)
	_, err := tracker.Assign(context.Background(), nil, "ghost", 2)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestProfessorLoadTrackerUnassignClamps(t *testing.T) {
	store := newHoursStoreStub(map[string]float64{"p1": 2})
	tracker := NewProfessorLoadTracker(store, 20, nil, nil)

	next, err := tracker.Unassign(context.Background(), nil, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, next)
	assert.Equal(t, 0.0, store.get("p1"))
}

func TestProfessorLoadTrackerConcurrentAssignmentsNeverExceedCap(t *testing.T) {
	store := newRowLockStore(map[string]float64{"p1": 0})
	tracker := NewProfessorLoadTracker(store, 20, nil, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := &sqlx.Tx{}
			defer store.commit(tx)
			if _, err := tracker.Assign(context.Background(), tx, "p1", 3); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, accepted)
	assert.Equal(t, 18.0, store.get("p1"))
}

func TestProfessorLoadTrackerTransactionRevisitsLockedProfessor(t *testing.T) {
	store := newRowLockStore(map[string]float64{"p1": 8})
	tracker := NewProfessorLoadTracker(store, 20, nil, nil)
	ctx := context.Background()
	txA, txB := &sqlx.Tx{}, &sqlx.Tx{}

	next, err := tracker.Unassign(ctx, txB, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, next)

	other := make(chan error, 1)
	go func() {
		_, err := tracker.Assign(ctx, txA, "p1", 2)
		store.commit(txA)
		other <- err
	}()
	require.Eventually(t, func() bool { return store.waiters("p1") == 1 }, 2*time.Second, 5*time.Millisecond)

	same := make(chan error, 1)
	go func() {
		_, err := tracker.Assign(ctx, txB, "p1", 6)
		same <- err
	}()
	select {
	case err := <-same:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("transaction blocked on a professor row it already holds")
	}
	assert.Equal(t, 10.0, store.get("p1"))

	store.commit(txB)
	select {
	case err := <-other:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting transaction never acquired the professor row")
	}
	assert.Equal(t, 12.0, store.get("p1"))
}
