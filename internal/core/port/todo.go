package port

import (
	"context"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/dto"
)

type TodoRepository interface {
	FindAll(ctx context.Context) ([]domain.Todo, error)
	FindByID(ctx context.Context, id int64) (domain.Todo, bool, error)
	FindByTitleAndDescription(ctx context.Context, title, description string) (domain.Todo, bool, error)
	// Save inserts when todo.ID is zero and updates otherwise.
	Save(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	DeleteByID(ctx context.Context, id int64) error
}

type TodoService interface {
	FindAll(ctx context.Context) ([]dto.TodoDTO, error)
	FindByID(ctx context.Context, id int64) (dto.TodoDTO, error)
	SaveTodo(ctx context.Context, todo dto.TodoDTO) (dto.TodoDTO, error)
	UpdateTodo(ctx context.Context, id int64, todo dto.TodoDTO) (dto.TodoDTO, error)
	DeleteByID(ctx context.Context, id int64) error
}
