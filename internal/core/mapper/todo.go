package mapper

import (
	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/dto"
)

type TodoMapper struct{}

func NewTodoMapper() *TodoMapper {
	return &TodoMapper{}
}

// ToDTO drops CreatedAt; it never leaves the server.
func (m *TodoMapper) ToDTO(todo domain.Todo) dto.TodoDTO {
	id := todo.ID
	title := todo.Title
	description := todo.Description
	completed := todo.Completed

	return dto.TodoDTO{
		ID:          &id,
		Title:       &title,
		Description: &description,
		Completed:   &completed,
	}
}

func (m *TodoMapper) ToDTOs(todos []domain.Todo) []dto.TodoDTO {
	data := make([]dto.TodoDTO, 0, len(todos))

	for _, todo := range todos {
		data = append(data, m.ToDTO(todo))
	}

	return data
}

// ToEntity leaves CreatedAt zero; callers creating a todo must set it.
func (m *TodoMapper) ToEntity(in dto.TodoDTO) domain.Todo {
	var todo domain.Todo

	if in.ID != nil {
		todo.ID = *in.ID
	}

	if in.Title != nil {
		todo.Title = *in.Title
	}

	if in.Description != nil {
		todo.Description = *in.Description
	}

	if in.Completed != nil {
		todo.Completed = *in.Completed
	}

	return todo
}
