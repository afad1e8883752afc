package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/egorvla/task-tracker-api/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

const taskColumns = "id, title, description, status, due_date, owner_email, created_at, updated_at"

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, due_date, owner_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns+`
	`, t.Title, t.Description, t.Status, dueTime(t.DueDate), t.Owner)

	created, err := scanTask(row)
	return created, r.mapError(err)
}

func (r *TaskRepo) GetOwned(ctx context.Context, id int64, owner string) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND owner_email = $2
	`, id, owner)

	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, owner string, filter model.TaskFilter, limit, offset int) ([]model.Task, int, error) {
	var (
		total int
		rows  pgx.Rows
		err   error
	)

	if filter.Search != nil {
		// Поиск по подстроке в названии или описании; фильтр по статусу
		// при этом не применяется
		pattern := "%" + escapeLike(*filter.Search) + "%"

		err = r.pool.QueryRow(ctx, `
			SELECT count(*) FROM tasks
			WHERE owner_email = $1 AND (title ILIKE $2 OR description ILIKE $2)
		`, owner, pattern).Scan(&total)
		if err != nil {
			return nil, 0, err
		}

		rows, err = r.pool.Query(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE owner_email = $1 AND (title ILIKE $2 OR description ILIKE $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4
		`, owner, pattern, limit, offset)
	} else {
		err = r.pool.QueryRow(ctx, `
			SELECT count(*) FROM tasks
			WHERE owner_email = $1 AND ($2::text IS NULL OR status = $2)
		`, owner, filter.Status).Scan(&total)
		if err != nil {
			return nil, 0, err
		}

		rows, err = r.pool.Query(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE owner_email = $1 AND ($2::text IS NULL OR status = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4
		`, owner, filter.Status, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, due_date = $6, updated_at = $7
		WHERE id = $1 AND owner_email = $2
		RETURNING `+taskColumns+`
	`, t.ID, t.Owner, t.Title, t.Description, t.Status, dueTime(t.DueDate), t.UpdatedAt.Time())

	updated, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return updated, ErrorNotFound
	}
	return updated, r.mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64, owner string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND owner_email = $2", id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key, owner string, resourceID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, owner_email, resource_id) VALUES ($1, $2, $3)
		ON CONFLICT (key, owner_email) DO NOTHING
	`, key, owner, resourceID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key, owner string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE key = $1 AND owner_email = $2
	`, key, owner).Scan(&id)

	if err == pgx.ErrNoRows {
		return 0, ErrorNotFound
	}
	return id, err
}

// escapeLike экранирует спецсимволы LIKE, чтобы "%" и "_" в поисковой
// строке искались буквально
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t                model.Task
		due              *time.Time
		created, updated time.Time
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &due, &t.Owner, &created, &updated)
	if err != nil {
		return t, err
	}
	if due != nil {
		d := model.DateTime(*due)
		t.DueDate = &d
	}
	t.CreatedAt = model.DateTime(created)
	t.UpdatedAt = model.DateTime(updated)
	return t, nil
}

func dueTime(d *model.DateTime) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
	}
	return err
}
