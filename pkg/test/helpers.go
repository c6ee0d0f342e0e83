package test

import (
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"todoapi/internal/adapter/database/sqlite"
)

// InitTestDB opens an isolated in-memory database with migrations applied.
func InitTestDB() *sqlite.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := sqlite.Open(sqlite.Config{Path: dsn, Name: "todoapi_test"}, zerolog.Nop())

	if err != nil {
		log.Fatal(err)
	}

	return db
}

type TestSetup[T any] struct {
	DB   *sqlite.DB
	Repo *T
}

func SetupTest[T any](t *testing.T, build func(db *sqlite.DB) *T) *TestSetup[T] {
	t.Helper()

	db := InitTestDB()

	t.Cleanup(func() { db.Close() })

	return &TestSetup[T]{
		DB:   db,
		Repo: build(db),
	}
}

func CleanDB(t *testing.T, db *sqlite.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM todos"); err != nil {
		t.Fatalf("Failed to clean todos: %v", err)
	}
}
