package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"todoapi/internal/adapter/database/sqlite"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const (
	entityName = "todo"
	tableName  = "todos"
)

type TodoRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
}

func NewTodoRepository(db *sqlite.DB, telemetry port.Telemetry) *TodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoRepository{
		db:        db,
		telemetry: telemetry,
	}
}

// trace opens a repository span; the returned func closes it and records the
// operation duration and outcome.
func (tr *TodoRepository) trace(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, port.Span, func(error)) {
	if attrs == nil {
		attrs = make(map[string]interface{})
	}

	attrs["db.system"] = "sqlite"
	attrs["db.table"] = tableName

	ctx, span := tr.telemetry.StartRepositorySpan(ctx, operation, entityName, attrs)
	startTime := time.Now()

	return ctx, span, func(err error) {
		duration := time.Since(startTime)

		span.SetAttributes(map[string]interface{}{
			"operation.duration_ns": duration.Nanoseconds(),
		})

		if err != nil {
			span.SetStatus("error", err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus("ok", "")
		}

		tr.telemetry.RecordRepositoryOperation(ctx, operation, entityName, duration, err)
		span.End()
	}
}

func (tr *TodoRepository) FindAll(ctx context.Context) (todos []domain.Todo, err error) {
	ctx, span, done := tr.trace(ctx, "FindAll", nil)
	defer func() { done(err) }()

	query, args, err := tr.db.QueryBuilder.
		Select(sqlite.TodoColumns...).
		From(tableName).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindAll", entityName, query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos, err = sqlite.ScanTodos(rows)

	if err != nil {
		return nil, err
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(todos)})

	return todos, nil
}

func (tr *TodoRepository) FindByID(ctx context.Context, id int64) (todo domain.Todo, found bool, err error) {
	ctx, _, done := tr.trace(ctx, "FindByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	return tr.findOne(ctx, "FindByID", sq.Eq{"id": id})
}

func (tr *TodoRepository) FindByTitleAndDescription(ctx context.Context, title, description string) (todo domain.Todo, found bool, err error) {
	ctx, _, done := tr.trace(ctx, "FindByTitleAndDescription", nil)
	defer func() { done(err) }()

	return tr.findOne(ctx, "FindByTitleAndDescription", sq.Eq{"title": title, "description": description})
}

func (tr *TodoRepository) findOne(ctx context.Context, operation string, where sq.Eq) (domain.Todo, bool, error) {
	query, args, err := tr.db.QueryBuilder.
		Select(sqlite.TodoColumns...).
		From(tableName).
		Where(where).
		OrderBy("id ASC").
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Todo{}, false, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, operation, entityName, query, args)

	todo, err := sqlite.ScanTodo(tr.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Todo{}, false, nil
	}

	if err != nil {
		return domain.Todo{}, false, err
	}

	return todo, true, nil
}

// Save inserts todos without an id and updates the mutable columns of the
// rest. created_at is written once.
func (tr *TodoRepository) Save(ctx context.Context, todo domain.Todo) (saved domain.Todo, err error) {
	ctx, _, done := tr.trace(ctx, "Save", map[string]interface{}{"todo.id": todo.ID, "todo.new": todo.IsNew()})
	defer func() { done(err) }()

	if todo.IsNew() {
		return tr.insert(ctx, todo)
	}

	return tr.update(ctx, todo)
}

func (tr *TodoRepository) insert(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}

	query, args, err := tr.db.QueryBuilder.
		Insert(tableName).
		Columns("title", "description", "completed", "created_at").
		Values(todo.Title, todo.Description, todo.Completed, todo.CreatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Save", entityName, query, args)

	if err := tr.db.QueryRowContext(ctx, query, args...).Scan(&todo.ID); err != nil {
		return domain.Todo{}, fmt.Errorf("insert todo: %w", err)
	}

	return todo, nil
}

func (tr *TodoRepository) update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	query, args, err := tr.db.QueryBuilder.
		Update(tableName).
		SetMap(todo.ToMap()).
		Where(sq.Eq{"id": todo.ID}).
		ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Save", entityName, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return domain.Todo{}, fmt.Errorf("update todo %d: %w", todo.ID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.Todo{}, domain.NewNotFoundError(todo.ID)
	}

	stored, found, err := tr.findOne(ctx, "Save", sq.Eq{"id": todo.ID})

	if err != nil {
		return domain.Todo{}, err
	}

	if !found {
		return domain.Todo{}, domain.NewNotFoundError(todo.ID)
	}

	return stored, nil
}

func (tr *TodoRepository) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, span, done := tr.trace(ctx, "DeleteByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	query, args, err := tr.db.QueryBuilder.
		Delete(tableName).
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "DeleteByID", entityName, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil {
		span.SetAttributes(map[string]interface{}{"db.rows_affected": affected})
	}

	return nil
}
