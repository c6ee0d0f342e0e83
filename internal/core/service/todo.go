package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/mapper"
	"todoapi/internal/core/model/dto"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const (
	serviceName = "todo"
	entityName  = "todo"

	msgAlreadyExists = "Todo with the same title and description already exists"
)

type TodoService struct {
	repo      port.TodoRepository
	mapper    *mapper.TodoMapper
	telemetry port.Telemetry
	logger    *otelzap.Logger
}

func NewTodoService(repo port.TodoRepository, m *mapper.TodoMapper, telemetry port.Telemetry, logger *otelzap.Logger) *TodoService {
	if m == nil {
		m = mapper.NewTodoMapper()
	}

	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	return &TodoService{
		repo:      repo,
		mapper:    m,
		telemetry: telemetry,
		logger:    logger,
	}
}

// observe opens a service span; the returned func closes it and records the
// outcome of the operation. Failures that are not domain errors are also
// reported through RecordError.
func (ts *TodoService) observe(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, func(error)) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, operation, attrs)
	startTime := time.Now()

	return ctx, func(err error) {
		ts.telemetry.RecordServiceOperation(ctx, serviceName, operation, time.Since(startTime), err)

		if err != nil {
			span.SetStatus("error", err.Error())

			var domainErr *domain.Error

			if !errors.As(err, &domainErr) {
				ts.telemetry.RecordError(ctx, serviceName+"."+operation, err, attrs)
			}
		} else {
			span.SetStatus("ok", "")
		}

		span.End()
	}
}

func (ts *TodoService) FindAll(ctx context.Context) (data []dto.TodoDTO, err error) {
	ctx, done := ts.observe(ctx, "FindAll", nil)
	defer func() { done(err) }()

	todos, err := ts.repo.FindAll(ctx)

	if err != nil {
		return nil, fmt.Errorf("find all todos: %w", err)
	}

	ts.logger.Ctx(ctx).Info("Found todos", zap.Int("count", len(todos)))

	return ts.mapper.ToDTOs(todos), nil
}

func (ts *TodoService) FindByID(ctx context.Context, id int64) (out dto.TodoDTO, err error) {
	ctx, done := ts.observe(ctx, "FindByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	todo, err := ts.findExisting(ctx, id)

	if err != nil {
		return dto.TodoDTO{}, err
	}

	return ts.mapper.ToDTO(todo), nil
}

// SaveTodo creates a todo. The duplicate lookup and the insert are separate
// statements, so two concurrent identical creates can both succeed.
func (ts *TodoService) SaveTodo(ctx context.Context, in dto.TodoDTO) (out dto.TodoDTO, err error) {
	ctx, done := ts.observe(ctx, "SaveTodo", nil)
	defer func() { done(err) }()

	todo := ts.mapper.ToEntity(in)
	todo.ID = 0

	_, exists, err := ts.repo.FindByTitleAndDescription(ctx, todo.Title, todo.Description)

	if err != nil {
		return dto.TodoDTO{}, fmt.Errorf("look up duplicate todo: %w", err)
	}

	if exists {
		ts.logger.Ctx(ctx).Warn(msgAlreadyExists, zap.String("title", todo.Title))
		return dto.TodoDTO{}, domain.NewAlreadyExistsError(msgAlreadyExists)
	}

	todo.Completed = false
	todo.CreatedAt = time.Now()

	saved, err := ts.repo.Save(ctx, todo)

	if err != nil {
		return dto.TodoDTO{}, fmt.Errorf("save todo: %w", err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "created", entityName, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"title": saved.Title,
	})

	ts.logger.Ctx(ctx).Info("Todo created", zap.Int64("id", saved.ID))

	return ts.mapper.ToDTO(saved), nil
}

// UpdateTodo overwrites only the fields present in the payload. It does not
// re-check title/description uniqueness.
func (ts *TodoService) UpdateTodo(ctx context.Context, id int64, in dto.TodoDTO) (out dto.TodoDTO, err error) {
	ctx, done := ts.observe(ctx, "UpdateTodo", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	existing, err := ts.findExisting(ctx, id)

	if err != nil {
		return dto.TodoDTO{}, err
	}

	changes := make(map[string]interface{})

	if in.Title != nil {
		existing.Title = *in.Title
		changes["title"] = existing.Title
	}

	if in.Description != nil {
		existing.Description = *in.Description
		changes["description"] = existing.Description
	}

	if in.Completed != nil {
		existing.Completed = *in.Completed
		changes["completed"] = existing.Completed
	}

	saved, err := ts.repo.Save(ctx, existing)

	if err != nil {
		return dto.TodoDTO{}, fmt.Errorf("update todo %d: %w", id, err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "updated", entityName, strconv.FormatInt(id, 10), changes)

	return ts.mapper.ToDTO(saved), nil
}

func (ts *TodoService) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, done := ts.observe(ctx, "DeleteByID", map[string]interface{}{"todo.id": id})
	defer func() { done(err) }()

	if _, err = ts.findExisting(ctx, id); err != nil {
		return err
	}

	ts.logger.Ctx(ctx).Warn("Deleting todo", zap.Int64("id", id))

	if err = ts.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "deleted", entityName, strconv.FormatInt(id, 10), nil)

	return nil
}

func (ts *TodoService) findExisting(ctx context.Context, id int64) (domain.Todo, error) {
	todo, found, err := ts.repo.FindByID(ctx, id)

	if err != nil {
		return domain.Todo{}, fmt.Errorf("find todo %d: %w", id, err)
	}

	if !found {
		ts.logger.Ctx(ctx).Warn("Todo not found", zap.Int64("id", id))
		return domain.Todo{}, domain.NewNotFoundError(id)
	}

	return todo, nil
}
