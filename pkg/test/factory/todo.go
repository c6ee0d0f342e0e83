package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"

	"todoapi/internal/core/domain"
)

// NewTodo builds a persistable todo with random title and description. The id
// is always cleared so repositories take the insert path.
func NewTodo(customData ...map[string]any) domain.Todo {
	instance := fab.New(domain.Todo{})

	todo := instance.Build(customData...)
	todo.ID = 0

	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}

	return todo
}
