package sqlite

import (
	"database/sql"
	"fmt"

	"todoapi/internal/core/domain"
)

// TodoColumns is the column order ScanTodo expects.
var TodoColumns = []string{"id", "title", "description", "completed", "created_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func ScanTodo(row rowScanner) (domain.Todo, error) {
	var todo domain.Todo

	err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.CreatedAt)

	if err != nil {
		return domain.Todo{}, err
	}

	return todo, nil
}

func ScanTodos(rows *sql.Rows) ([]domain.Todo, error) {
	todos := make([]domain.Todo, 0)

	for rows.Next() {
		todo, err := ScanTodo(rows)

		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}

		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}

	return todos, nil
}
