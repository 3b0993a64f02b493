package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunewell/studio-server/internal/model"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// CreateWithClaim inserts a booking and claims its slot in one transaction.
// The claim is a conditional update, so two concurrent requests for the
// same slot cannot both succeed: the loser gets ErrSlotTaken.
func (r *BookingRepository) CreateWithClaim(ctx context.Context, booking *model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE slots SET is_available = FALSE WHERE id = $1 AND is_available`, booking.SlotID)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`, booking.SlotID).Scan(&exists); err != nil {
			return fmt.Errorf("check slot exists: %w", err)
		}
		if !exists {
			return ErrSlotNotFound
		}
		return ErrSlotTaken
	}

	query := `
		INSERT INTO bookings (student_id, guest_name, guest_email, guest_phone, slot_id,
			lesson_type, calendar_event_id, recurrence_id, calendar_instance_id, recurrence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err = tx.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.SlotID,
		booking.LessonType,
		booking.CalendarEventID,
		booking.RecurrenceID,
		booking.CalendarInstanceID,
		booking.Recurrence,
	).Scan(&booking.ID, &booking.CreatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID fetches a booking row by id, nil when absent.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := bookingColumns + ` FROM bookings b WHERE b.id = $1`

	var booking model.Booking
	err := r.pool.QueryRow(ctx, query, id).Scan(bookingFields(&booking)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &booking, nil
}

// GetDetailed fetches a booking joined with its slot and student, nil when absent.
func (r *BookingRepository) GetDetailed(ctx context.Context, id int64) (*model.Booking, error) {
	query := joinedBookingColumns + joinedBookingFrom + ` WHERE b.id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	booking, err := scanJoinedBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get detailed booking: %w", err)
	}

	return booking, nil
}

// ListByDate returns bookings whose slot falls on the date, joined with
// slot and student data, ordered by time of day.
func (r *BookingRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	query := joinedBookingColumns + joinedBookingFrom + `
		WHERE s.slot_date = $1
		ORDER BY s.slot_time
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}
	defer rows.Close()

	return scanJoinedBookings(rows)
}

// ListAll returns every booking, newest slot date first.
func (r *BookingRepository) ListAll(ctx context.Context) ([]*model.Booking, error) {
	query := joinedBookingColumns + joinedBookingFrom + `
		ORDER BY s.slot_date DESC, s.slot_time
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	return scanJoinedBookings(rows)
}

// Delete removes a booking row.
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// FindSiblingCalendarEvent looks for another booking on the same slot that
// already carries a calendar event id. Covers worker re-processing.
func (r *BookingRepository) FindSiblingCalendarEvent(ctx context.Context, slotID, excludeBookingID int64) (eventID, recurrenceID *string, err error) {
	query := `
		SELECT calendar_event_id, recurrence_id
		FROM bookings
		WHERE slot_id = $1 AND id <> $2 AND calendar_event_id IS NOT NULL
		LIMIT 1
	`

	err = r.pool.QueryRow(ctx, query, slotID, excludeBookingID).Scan(&eventID, &recurrenceID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("find sibling calendar event: %w", err)
	}

	return eventID, recurrenceID, nil
}

// ExistsForSlotAndRecurrence reports whether a booking already exists for
// the slot under the given recurrence id. Keeps expansion idempotent
// across queue retries.
func (r *BookingRepository) ExistsForSlotAndRecurrence(ctx context.Context, slotID int64, recurrenceID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE slot_id = $1 AND recurrence_id = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, slotID, recurrenceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check booking exists: %w", err)
	}

	return exists, nil
}

// SetCalendarRefs writes the external event id and/or recurrence id back
// onto the booking. Nil arguments leave the stored value untouched.
func (r *BookingRepository) SetCalendarRefs(ctx context.Context, id int64, eventID, recurrenceID *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings
		 SET calendar_event_id = COALESCE($1, calendar_event_id),
		     recurrence_id = COALESCE($2, recurrence_id)
		 WHERE id = $3`,
		eventID, recurrenceID, id)
	if err != nil {
		return fmt.Errorf("set calendar refs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetCalendarInstanceID stores the per-instance id of a recurring event.
func (r *BookingRepository) SetCalendarInstanceID(ctx context.Context, id int64, instanceID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET calendar_instance_id = $1 WHERE id = $2`, instanceID, id)
	if err != nil {
		return fmt.Errorf("set calendar instance id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

const bookingColumns = `
	SELECT b.id, b.student_id, b.guest_name, b.guest_email, b.guest_phone, b.slot_id,
		b.lesson_type, b.calendar_event_id, b.recurrence_id, b.calendar_instance_id,
		b.recurrence, b.created_at`

const joinedBookingColumns = bookingColumns + `,
	s.id, s.teacher_id, s.slot_date, to_char(s.slot_time, 'HH24:MI'), s.duration_minutes, s.is_available,
	st.id, st.name, st.email, st.phone, st.created_at`

const joinedBookingFrom = `
	FROM bookings b
	JOIN slots s ON s.id = b.slot_id
	LEFT JOIN students st ON st.id = b.student_id`

func bookingFields(b *model.Booking) []any {
	return []any{
		&b.ID,
		&b.StudentID,
		&b.GuestName,
		&b.GuestEmail,
		&b.GuestPhone,
		&b.SlotID,
		&b.LessonType,
		&b.CalendarEventID,
		&b.RecurrenceID,
		&b.CalendarInstanceID,
		&b.Recurrence,
		&b.CreatedAt,
	}
}

func scanJoinedBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking      model.Booking
		slot         model.Slot
		studentID    *int64
		studentName  *string
		studentEmail *string
		studentPhone *string
		studentAt    *time.Time
	)

	fields := bookingFields(&booking)
	fields = append(fields,
		&slot.ID,
		&slot.TeacherID,
		&slot.SlotDate,
		&slot.SlotTime,
		&slot.DurationMinutes,
		&slot.IsAvailable,
		&studentID,
		&studentName,
		&studentEmail,
		&studentPhone,
		&studentAt,
	)

	if err := row.Scan(fields...); err != nil {
		return nil, err
	}

	booking.Slot = &slot
	if studentID != nil {
		booking.Student = &model.Student{
			ID:        *studentID,
			Name:      *studentName,
			Email:     *studentEmail,
			Phone:     studentPhone,
			CreatedAt: *studentAt,
		}
	}

	return &booking, nil
}

func scanJoinedBookings(rows pgx.Rows) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanJoinedBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}
