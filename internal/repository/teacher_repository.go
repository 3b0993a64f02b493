package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunewell/studio-server/internal/model"
)

type TeacherRepository struct {
	pool *pgxpool.Pool
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

func (r *TeacherRepository) Create(ctx context.Context, teacher *model.Teacher) error {
	query := `
		INSERT INTO teachers (name, instrument, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, teacher.Name, teacher.Instrument, teacher.Email).
		Scan(&teacher.ID, &teacher.CreatedAt)
	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}

	return nil
}

func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	query := `
		SELECT id, name, instrument, email, created_at
		FROM teachers
		WHERE id = $1
	`

	var teacher model.Teacher
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&teacher.ID,
		&teacher.Name,
		&teacher.Instrument,
		&teacher.Email,
		&teacher.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by id: %w", err)
	}

	return &teacher, nil
}

func (r *TeacherRepository) List(ctx context.Context) ([]*model.Teacher, error) {
	query := `
		SELECT id, name, instrument, email, created_at
		FROM teachers
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		var teacher model.Teacher
		err := rows.Scan(
			&teacher.ID,
			&teacher.Name,
			&teacher.Instrument,
			&teacher.Email,
			&teacher.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, &teacher)
	}

	return teachers, nil
}
