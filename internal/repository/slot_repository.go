package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunewell/studio-server/internal/model"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// Create inserts a new available slot.
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (teacher_id, slot_date, slot_time, duration_minutes, is_available)
		VALUES ($1, $2, $3::time, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.TeacherID,
		slot.SlotDate,
		slot.SlotTime,
		slot.DurationMinutes,
		slot.IsAvailable,
	).Scan(&slot.ID)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID fetches a slot by id, nil when absent.
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		SELECT id, teacher_id, slot_date, to_char(slot_time, 'HH24:MI'), duration_minutes, is_available
		FROM slots
		WHERE id = $1
	`

	var slot model.Slot
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.SlotDate,
		&slot.SlotTime,
		&slot.DurationMinutes,
		&slot.IsAvailable,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return &slot, nil
}

// ListByDate returns all slots on a date, ordered by time of day.
func (r *SlotRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Slot, error) {
	query := `
		SELECT id, teacher_id, slot_date, to_char(slot_time, 'HH24:MI'), duration_minutes, is_available
		FROM slots
		WHERE slot_date = $1
		ORDER BY slot_time
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list slots by date: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		var slot model.Slot
		err := rows.Scan(
			&slot.ID,
			&slot.TeacherID,
			&slot.SlotDate,
			&slot.SlotTime,
			&slot.DurationMinutes,
			&slot.IsAvailable,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, nil
}

// Delete removes a slot unconditionally.
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// SetAvailability flips the availability flag.
func (r *SlotRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE slots SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("set slot availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// DeleteAvailableBefore removes unbooked slots dated before the cutoff
// and reports how many went away. Booked slots are kept for history.
func (r *SlotRepository) DeleteAvailableBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM slots WHERE slot_date < $1 AND is_available`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindOrCreate returns the slot at the given date/time, inserting an
// available one when none exists. Used by recurrence expansion.
func (r *SlotRepository) FindOrCreate(ctx context.Context, teacherID *int64, date time.Time, timeOfDay string, durationMinutes int) (*model.Slot, error) {
	query := `
		SELECT id, teacher_id, slot_date, to_char(slot_time, 'HH24:MI'), duration_minutes, is_available
		FROM slots
		WHERE slot_date = $1 AND slot_time = $2::time
		LIMIT 1
	`

	var slot model.Slot
	err := r.pool.QueryRow(ctx, query, date, timeOfDay).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.SlotDate,
		&slot.SlotTime,
		&slot.DurationMinutes,
		&slot.IsAvailable,
	)
	if err == nil {
		return &slot, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("find slot: %w", err)
	}

	slot = model.Slot{
		TeacherID:       teacherID,
		SlotDate:        date,
		SlotTime:        timeOfDay,
		DurationMinutes: durationMinutes,
		IsAvailable:     true,
	}
	if err := r.Create(ctx, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}
