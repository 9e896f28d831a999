package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Killgreck/agenda/internal/model"
)

// Postgres is a Repository backed by PostgreSQL. Expected schema:
//
//	CREATE TABLE tasks (
//	    id          UUID PRIMARY KEY,
//	    user_id     TEXT NOT NULL,
//	    title       TEXT NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    date        TIMESTAMPTZ NOT NULL,
//	    end_date    TIMESTAMPTZ,
//	    timezone    TEXT NOT NULL DEFAULT 'UTC',
//	    is_all_day  BOOLEAN NOT NULL DEFAULT FALSE,
//	    priority    TEXT NOT NULL DEFAULT 'medium',
//	    location    TEXT NOT NULL DEFAULT '',
//	    reminder    INTEGER[] NOT NULL DEFAULT '{}',
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX tasks_user_date_idx ON tasks (user_id, date);
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against databaseURL and verifies it
// with a ping.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (r *Postgres) Close() error {
	return r.db.Close()
}

const taskColumns = `id, user_id, title, description, date, end_date, timezone,
	is_all_day, priority, location, reminder, created_at, updated_at`

// Save inserts the task, assigning an ID and timestamps when missing.
func (r *Postgres) Save(ctx context.Context, task *model.Task) (*model.Task, error) {
	stored := *task
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	var endDate sql.NullTime
	if stored.EndDate != nil {
		endDate = sql.NullTime{Time: *stored.EndDate, Valid: true}
	}

	reminder := make([]int64, len(stored.Reminder))
	for i, m := range stored.Reminder {
		reminder[i] = int64(m)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		stored.ID, stored.UserID, stored.Title, stored.Description,
		stored.Date, endDate, stored.Timezone, stored.IsAllDay,
		string(stored.Priority), stored.Location, pq.Array(reminder),
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	return &stored, nil
}

// GetTasksForUserOnDay returns the user's tasks on day's calendar date,
// with day boundaries computed in day's zone.
func (r *Postgres) GetTasksForUserOnDay(ctx context.Context, userID string, day time.Time) ([]*model.Task, error) {
	loc := day.Location()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	return r.queryTasks(ctx, query, userID, dayStart, dayEnd)
}

// List returns tasks starting within [start, end), ordered by start time.
// An empty userID matches every user.
func (r *Postgres) List(ctx context.Context, userID string, start, end time.Time) ([]*model.Task, error) {
	if userID == "" {
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE date >= $1 AND date < $2
			ORDER BY date ASC
		`
		return r.queryTasks(ctx, query, start, end)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	return r.queryTasks(ctx, query, userID, start, end)
}

// GetByID returns the task with the given ID.
func (r *Postgres) GetByID(ctx context.Context, id string) (*model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Delete removes the task with the given ID.
func (r *Postgres) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

// Count reports the current number of stored tasks.
func (r *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

func (r *Postgres) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var endDate sql.NullTime
	var priority string
	var reminder []int64

	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Date, &endDate, &task.Timezone, &task.IsAllDay,
		&priority, &task.Location, pq.Array(&reminder),
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		e := endDate.Time
		task.EndDate = &e
	}
	task.Priority = model.Priority(priority)
	for _, m := range reminder {
		task.Reminder = append(task.Reminder, int(m))
	}
	return &task, nil
}
