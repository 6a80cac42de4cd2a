package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// ledgerStore is an in-memory stand-in for the school and student repositories.
// Writes follow the same guarded delta rules as the SQL implementation.
type ledgerStore struct {
	mu         sync.Mutex
	schools    map[string]models.School
	students   map[string]models.Student
	imported   int
	accrualErr error
	paymentErr error
	importErr  error
	accruals   []models.AccrualUpdate
	seq        int
}

func newLedgerStore() *ledgerStore {
	return &ledgerStore{schools: map[string]models.School{}, students: map[string]models.Student{}}
}

func (f *ledgerStore) addSchool(owner, id, name string) {
	f.schools[id] = models.School{ID: id, OwnerID: owner, Name: name}
}

func (f *ledgerStore) addStudent(s models.Student) {
	if s.PaymentHistory == nil {
		s.PaymentHistory = []models.PaymentEntry{}
	}
	f.students[s.ID] = s
}

func (f *ledgerStore) student(id string) models.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.students[id]
}

func (f *ledgerStore) ListByOwner(ctx context.Context, ownerID string) ([]models.SchoolSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SchoolSummary
	for _, school := range f.schools {
		if school.OwnerID != ownerID {
			continue
		}
		count := 0
		for _, st := range f.students {
			if st.SchoolID == school.ID {
				count++
			}
		}
		out = append(out, models.SchoolSummary{School: school, StudentCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *ledgerStore) FindByID(ctx context.Context, ownerID, id string) (*models.School, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	school, ok := f.schools[id]
	if !ok || school.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &school, nil
}

func (f *ledgerStore) FindByName(ctx context.Context, ownerID, name string) (*models.School, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, school := range f.schools {
		if school.OwnerID == ownerID && strings.EqualFold(school.Name, name) {
			return &school, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *ledgerStore) Create(ctx context.Context, school *models.School) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	school.ID = fmt.Sprintf("school-%d", f.seq)
	f.schools[school.ID] = *school
	return nil
}

func (f *ledgerStore) DeleteCascade(ctx context.Context, ownerID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	school, ok := f.schools[id]
	if !ok || school.OwnerID != ownerID {
		return 0, sql.ErrNoRows
	}
	var removed int64
	for sid, st := range f.students {
		if st.SchoolID == id {
			delete(f.students, sid)
			removed++
		}
	}
	delete(f.schools, id)
	return removed, nil
}

func (f *ledgerStore) CountByOwner(ctx context.Context, ownerID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var schools, students int
	for _, s := range f.schools {
		if s.OwnerID == ownerID {
			schools++
		}
	}
	for _, s := range f.students {
		if s.OwnerID == ownerID {
			students++
		}
	}
	return schools, students, nil
}

func (f *ledgerStore) Import(ctx context.Context, schools []*models.School, students []*models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.importErr != nil {
		return f.importErr
	}
	for _, school := range schools {
		f.schools[school.ID] = *school
	}
	for _, student := range students {
		f.seq++
		student.ID = fmt.Sprintf("student-%d", f.seq)
		f.students[student.ID] = *student
	}
	f.imported += len(schools) + len(students)
	return nil
}

// studentSide exposes the student half of ledgerStore, whose method names overlap the school half.
type studentSide struct{ *ledgerStore }

func (f studentSide) ListByOwner(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Student
	for _, st := range f.students {
		if st.OwnerID != ownerID {
			continue
		}
		if filter.SchoolID != "" && st.SchoolID != filter.SchoolID {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f studentSide) FindByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok || st.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (f studentSide) Create(ctx context.Context, student *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	student.ID = fmt.Sprintf("student-%d", f.seq)
	f.students[student.ID] = *student
	return nil
}

func (f studentSide) Delete(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok || st.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

func (f studentSide) ApplyAccrual(ctx context.Context, update models.AccrualUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accrualErr != nil {
		return false, f.accrualErr
	}
	st, ok := f.students[update.ID]
	if !ok || st.LastBilledDate != update.PreviousBilledDate {
		return false, nil
	}
	st.PendingFees = st.PendingFees.Add(update.AccruedAmount)
	st.LastBilledDate = update.LastBilledDate
	f.students[update.ID] = st
	f.accruals = append(f.accruals, update)
	return true, nil
}

func (f studentSide) ApplyPayment(ctx context.Context, ownerID string, update models.PaymentUpdate) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	st, ok := f.students[update.ID]
	if !ok || st.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	st.PaidFees = st.PaidFees.Add(update.Amount)
	st.PendingFees = decimal.Max(st.PendingFees.Sub(update.Amount), decimal.Zero)
	history := append([]models.PaymentEntry{{Amount: update.Amount, Date: update.LastPaidDate}}, st.PaymentHistory...)
	st.PaymentHistory = history
	lastPaid := update.LastPaidDate
	st.LastPaidDate = &lastPaid
	f.students[update.ID] = st
	return &st, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

var errStorage = errors.New("storage unavailable")

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func fixedCalendar(d civil.Date) Calendar {
	return NewCalendar(time.UTC, func() time.Time { return d.In(time.UTC).Add(9 * time.Hour) })
}

func rider(id, owner, school, name string, admission, lastBilled civil.Date, fee, paid, pending int64) models.Student {
	return models.Student{
		ID:             id,
		OwnerID:        owner,
		SchoolID:       school,
		Name:           name,
		ParentPhone:    "98765 43210",
		AdmissionDate:  admission,
		LastBilledDate: lastBilled,
		TotalFees:      decimal.NewFromInt(fee),
		PaidFees:       decimal.NewFromInt(paid),
		PendingFees:    decimal.NewFromInt(pending),
		PaymentHistory: []models.PaymentEntry{},
	}
}

type billingFixture struct {
	store         *ledgerStore
	cache         *memoryCache
	notifier      *recordingNotifier
	metrics       *MetricsService
	notifications *NotificationService
	billing       *BillingService
	calendar      Calendar
}

func newBillingFixture(today civil.Date) *billingFixture {
	store := newLedgerStore()
	store.addSchool("owner", "s1", "Green Valley")
	store.addSchool("owner", "s2", "Hill Top")
	store.addSchool("other", "s9", "Elsewhere")

	cache := newMemoryCache()
	metrics := NewMetricsService()
	notifier := &recordingNotifier{}
	notifications := NewNotificationService(NotificationConfig{CountryCode: "91", CurrencySymbol: "₹"}, notifier, nil)
	cacheSvc := NewCacheService(cache, metrics, time.Minute, nil, true)
	calendar := fixedCalendar(today)
	writer := NewDirectAccrualWriter(studentSide{store}, metrics, nil)
	svc := NewBillingService(store, studentSide{store}, writer, notifications, cacheSvc, metrics, calendar, nil)

	return &billingFixture{
		store:         store,
		cache:         cache,
		notifier:      notifier,
		metrics:       metrics,
		notifications: notifications,
		billing:       svc,
		calendar:      calendar,
	}
}

func (f *billingFixture) cacheService() *CacheService {
	return NewCacheService(f.cache, f.metrics, time.Minute, nil, true)
}
