package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"todoapi/internal/adapter/database/postgres"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const (
	entityName = "todo"
	tableName  = "todos"
)

var todoColumns = []string{"id", "title", "description", "completed", "created_at"}

type TodoRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewTodoRepository(db *postgres.DB, telemetry port.Telemetry) *TodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (tr *TodoRepository) trace(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, func(error)) {
	if attrs == nil {
		attrs = make(map[string]interface{})
	}

	attrs["db.system"] = "postgresql"
	attrs["db.table"] = tableName

	ctx, span := tr.telemetry.StartRepositorySpan(ctx, operation, entityName, attrs)
	startTime := time.Now()

	return ctx, func(err error) {
		if err != nil {
			span.SetStatus("error", err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus("ok", "")
		}

		tr.telemetry.RecordRepositoryOperation(ctx, operation, entityName, time.Since(startTime), err)
		span.End()
	}
}

func scanTodo(row pgx.Row) (domain.Todo, error) {
	var todo domain.Todo

	err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.CreatedAt)

	return todo, err
}

func (tr *TodoRepository) FindAll(ctx context.Context) (todos []domain.Todo, err error) {
	ctx, done := tr.trace(ctx, "FindAll", nil)
	defer func() { done(err) }()

	query, args, err := tr.db.QueryBuilder.
		Select(todoColumns...).
		From(tableName).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindAll", entityName, query, args)

	rows, err := tr.db.Query(ctx, query, args...)

	if err != nil {
		return nil, err
	}

	todos, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Todo, error) {
		return scanTodo(row)
	})

	if err != nil {
		return nil, fmt.Errorf("scan todos: %w", err)
	}

	if todos == nil {
		todos = []domain.Todo{}
	}

	return todos, nil
}

func (tr *TodoRepository) FindByID(ctx context.Context, id int64) (todo domain.Todo, found bool, err error) {
	ctx, done := tr.trace(ctx, "FindByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	return tr.findOne(ctx, "FindByID", sq.Eq{"id": id})
}

func (tr *TodoRepository) FindByTitleAndDescription(ctx context.Context, title, description string) (todo domain.Todo, found bool, err error) {
	ctx, done := tr.trace(ctx, "FindByTitleAndDescription", nil)
	defer func() { done(err) }()

	return tr.findOne(ctx, "FindByTitleAndDescription", sq.Eq{"title": title, "description": description})
}

func (tr *TodoRepository) findOne(ctx context.Context, operation string, where sq.Eq) (domain.Todo, bool, error) {
	query, args, err := tr.db.QueryBuilder.
		Select(todoColumns...).
		From(tableName).
		Where(where).
		OrderBy("id ASC").
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Todo{}, false, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, operation, entityName, query, args)

	todo, err := scanTodo(tr.db.QueryRow(ctx, query, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Todo{}, false, nil
	}

	if err != nil {
		return domain.Todo{}, false, err
	}

	return todo, true, nil
}

func (tr *TodoRepository) Save(ctx context.Context, todo domain.Todo) (saved domain.Todo, err error) {
	ctx, done := tr.trace(ctx, "Save", map[string]interface{}{"todo.id": todo.ID, "todo.new": todo.IsNew()})
	defer func() { done(err) }()

	var builder sq.Sqlizer

	if todo.IsNew() {
		if todo.CreatedAt.IsZero() {
			todo.CreatedAt = time.Now()
		}

		builder = tr.db.QueryBuilder.
			Insert(tableName).
			Columns("title", "description", "completed", "created_at").
			Values(todo.Title, todo.Description, todo.Completed, todo.CreatedAt).
			Suffix("RETURNING id, title, description, completed, created_at")
	} else {
		builder = tr.db.QueryBuilder.
			Update(tableName).
			SetMap(todo.ToMap()).
			Where(sq.Eq{"id": todo.ID}).
			Suffix("RETURNING id, title, description, completed, created_at")
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Save", entityName, query, args)

	saved, err = scanTodo(tr.db.QueryRow(ctx, query, args...))

	// Only an update can come back empty: the row was deleted underneath it.
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Todo{}, domain.NewNotFoundError(todo.ID)
	}

	if err != nil {
		return domain.Todo{}, fmt.Errorf("save todo: %w", err)
	}

	return saved, nil
}

func (tr *TodoRepository) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, done := tr.trace(ctx, "DeleteByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	query, args, err := tr.db.QueryBuilder.
		Delete(tableName).
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "DeleteByID", entityName, query, args)

	if _, err := tr.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	return nil
}
