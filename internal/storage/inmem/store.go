// Package inmem is an in-memory implementation of the persistence
// surfaces, used by tests instead of Postgres.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tunewell/studio-server/internal/model"
	"github.com/tunewell/studio-server/internal/repository"
)

// DB holds the shared tables; entity stores hang off it the same way the
// pgx repositories hang off a pool.
type DB struct {
	mu       sync.Mutex
	slots    map[int64]*model.Slot
	bookings map[int64]*model.Booking
	students map[int64]*model.Student
	teachers map[int64]*model.Teacher
	nextID   int64
}

func Open() *DB {
	return &DB{
		slots:    make(map[int64]*model.Slot),
		bookings: make(map[int64]*model.Booking),
		students: make(map[int64]*model.Student),
		teachers: make(map[int64]*model.Teacher),
	}
}

func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *DB) join(booking *model.Booking) {
	if slot, ok := db.slots[booking.SlotID]; ok {
		booking.Slot = slot
	}
	if booking.StudentID != nil {
		if student, ok := db.students[*booking.StudentID]; ok {
			booking.Student = student
		}
	}
}

// AllBookings returns a joined snapshot of every booking row.
func (db *DB) AllBookings() []*model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []*model.Booking
	for _, booking := range db.bookings {
		clone := *booking
		db.join(&clone)
		out = append(out, &clone)
	}
	return out
}

// Slot returns the stored slot, nil when absent.
func (db *DB) Slot(id int64) *model.Slot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.slots[id]
}

// SeedSlot inserts a slot row as-is, assigning an id.
func (db *DB) SeedSlot(slot *model.Slot) *model.Slot {
	db.mu.Lock()
	defer db.mu.Unlock()
	slot.ID = db.id()
	db.slots[slot.ID] = slot
	return slot
}

// SeedBooking inserts a booking row without claim semantics, so several
// rows can share one slot. The slot is marked taken when present.
func (db *DB) SeedBooking(booking *model.Booking) *model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	booking.ID = db.id()
	booking.CreatedAt = time.Now()
	db.bookings[booking.ID] = booking
	if slot, ok := db.slots[booking.SlotID]; ok {
		slot.IsAvailable = false
	}
	return booking
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// --- slots ---

type SlotStore struct{ db *DB }

func NewSlotStore(db *DB) *SlotStore { return &SlotStore{db: db} }

func (s *SlotStore) Create(_ context.Context, slot *model.Slot) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	slot.ID = s.db.id()
	s.db.slots[slot.ID] = slot
	return nil
}

func (s *SlotStore) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.slots[id], nil
}

func (s *SlotStore) ListByDate(_ context.Context, date time.Time) ([]*model.Slot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []*model.Slot
	for _, slot := range s.db.slots {
		if dateKey(slot.SlotDate) == dateKey(date) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime < out[j].SlotTime })
	return out, nil
}

func (s *SlotStore) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.slots[id]; !ok {
		return repository.ErrSlotNotFound
	}
	delete(s.db.slots, id)
	return nil
}

func (s *SlotStore) SetAvailability(_ context.Context, id int64, available bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	slot, ok := s.db.slots[id]
	if !ok {
		return repository.ErrSlotNotFound
	}
	slot.IsAvailable = available
	return nil
}

func (s *SlotStore) FindOrCreate(_ context.Context, teacherID *int64, date time.Time, timeOfDay string, durationMinutes int) (*model.Slot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, slot := range s.db.slots {
		if dateKey(slot.SlotDate) == dateKey(date) && slot.SlotTime == timeOfDay {
			return slot, nil
		}
	}
	slot := &model.Slot{
		ID:              s.db.id(),
		TeacherID:       teacherID,
		SlotDate:        date,
		SlotTime:        timeOfDay,
		DurationMinutes: durationMinutes,
		IsAvailable:     true,
	}
	s.db.slots[slot.ID] = slot
	return slot, nil
}

// --- bookings ---

type BookingStore struct{ db *DB }

func NewBookingStore(db *DB) *BookingStore { return &BookingStore{db: db} }

func (s *BookingStore) CreateWithClaim(_ context.Context, booking *model.Booking) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	slot, ok := s.db.slots[booking.SlotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	if !slot.IsAvailable {
		return repository.ErrSlotTaken
	}
	slot.IsAvailable = false

	booking.ID = s.db.id()
	booking.CreatedAt = time.Now()
	s.db.bookings[booking.ID] = booking
	return nil
}

func (s *BookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.bookings[id], nil
}

func (s *BookingStore) GetDetailed(_ context.Context, id int64) (*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	booking, ok := s.db.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *booking
	s.db.join(&clone)
	return &clone, nil
}

func (s *BookingStore) ListByDate(_ context.Context, date time.Time) ([]*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []*model.Booking
	for _, booking := range s.db.bookings {
		slot, ok := s.db.slots[booking.SlotID]
		if !ok || dateKey(slot.SlotDate) != dateKey(date) {
			continue
		}
		clone := *booking
		s.db.join(&clone)
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.SlotTime < out[j].Slot.SlotTime })
	return out, nil
}

func (s *BookingStore) ListAll(_ context.Context) ([]*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []*model.Booking
	for _, booking := range s.db.bookings {
		if _, ok := s.db.slots[booking.SlotID]; !ok {
			continue
		}
		clone := *booking
		s.db.join(&clone)
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Slot, out[j].Slot
		if !a.SlotDate.Equal(b.SlotDate) {
			return a.SlotDate.After(b.SlotDate)
		}
		return a.SlotTime < b.SlotTime
	})
	return out, nil
}

func (s *BookingStore) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.bookings[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(s.db.bookings, id)
	return nil
}

func (s *BookingStore) FindSiblingCalendarEvent(_ context.Context, slotID, excludeBookingID int64) (*string, *string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, booking := range s.db.bookings {
		if booking.SlotID == slotID && booking.ID != excludeBookingID && booking.CalendarEventID != nil {
			return booking.CalendarEventID, booking.RecurrenceID, nil
		}
	}
	return nil, nil, nil
}

func (s *BookingStore) ExistsForSlotAndRecurrence(_ context.Context, slotID int64, recurrenceID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, booking := range s.db.bookings {
		if booking.SlotID == slotID && booking.RecurrenceID != nil && *booking.RecurrenceID == recurrenceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *BookingStore) SetCalendarRefs(_ context.Context, id int64, eventID, recurrenceID *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	booking, ok := s.db.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if eventID != nil {
		booking.CalendarEventID = eventID
	}
	if recurrenceID != nil {
		booking.RecurrenceID = recurrenceID
	}
	return nil
}

func (s *BookingStore) SetCalendarInstanceID(_ context.Context, id int64, instanceID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	booking, ok := s.db.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.CalendarInstanceID = &instanceID
	return nil
}

// --- roster ---

type StudentStore struct{ db *DB }

func NewStudentStore(db *DB) *StudentStore { return &StudentStore{db: db} }

func (s *StudentStore) Create(_ context.Context, student *model.Student) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	student.ID = s.db.id()
	student.CreatedAt = time.Now()
	s.db.students[student.ID] = student
	return nil
}

func (s *StudentStore) List(_ context.Context) ([]*model.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []*model.Student
	for _, student := range s.db.students {
		out = append(out, student)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type TeacherStore struct{ db *DB }

func NewTeacherStore(db *DB) *TeacherStore { return &TeacherStore{db: db} }

func (s *TeacherStore) Create(_ context.Context, teacher *model.Teacher) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	teacher.ID = s.db.id()
	teacher.CreatedAt = time.Now()
	s.db.teachers[teacher.ID] = teacher
	return nil
}

func (s *TeacherStore) List(_ context.Context) ([]*model.Teacher, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []*model.Teacher
	for _, teacher := range s.db.teachers {
		out = append(out, teacher)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
