package repository_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"todoapi/internal/adapter/database/sqlite"
	"todoapi/internal/adapter/database/sqlite/repository"
	"todoapi/internal/core/domain"
	. "todoapi/pkg/test"
	"todoapi/pkg/test/factory"
)

type TodoRepositoryTestSuite struct {
	suite.Suite
	setup *TestSetup[repository.TodoRepository]
	repo  *repository.TodoRepository
	ctx   context.Context
}

func (s *TodoRepositoryTestSuite) SetupTest() {
	s.setup = SetupTest(s.T(), func(db *sqlite.DB) *repository.TodoRepository {
		return repository.NewTodoRepository(db, nil)
	})
	s.repo = s.setup.Repo
	s.ctx = context.Background()
}

func TestTodoRepositoryTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TodoRepositoryTestSuite))
}

func (s *TodoRepositoryTestSuite) TestRepository_FindAll_Empty() {
	todos, err := s.repo.FindAll(s.ctx)

	Expect(err).To(BeNil())
	Expect(todos).NotTo(BeNil())
	Expect(todos).To(BeEmpty())
}

func (s *TodoRepositoryTestSuite) TestRepository_Save_InsertsAndGeneratesID() {
	todo, err := s.repo.Save(s.ctx, factory.NewTodo(map[string]any{
		"Title":       "Buy milk",
		"Description": "2%",
		"Completed":   false,
	}))

	Expect(err).To(BeNil())
	Expect(todo.ID).To(BeNumerically(">", 0))
	Expect(todo.Title).To(Equal("Buy milk"))

	stored, found, err := s.repo.FindByID(s.ctx, todo.ID)

	Expect(err).To(BeNil())
	Expect(found).To(BeTrue())
	Expect(stored.Description).To(Equal("2%"))
	Expect(stored.Completed).To(BeFalse())
	Expect(stored.CreatedAt.IsZero()).To(BeFalse())
}

func (s *TodoRepositoryTestSuite) TestRepository_FindAll_OrderedByID() {
	first, _ := s.repo.Save(s.ctx, factory.NewTodo())
	second, _ := s.repo.Save(s.ctx, factory.NewTodo())

	todos, err := s.repo.FindAll(s.ctx)

	Expect(err).To(BeNil())
	Expect(todos).To(HaveLen(2))
	Expect(todos[0].ID).To(Equal(first.ID))
	Expect(todos[1].ID).To(Equal(second.ID))
}

func (s *TodoRepositoryTestSuite) TestRepository_FindByID_Missing() {
	_, found, err := s.repo.FindByID(s.ctx, 999)

	Expect(err).To(BeNil())
	Expect(found).To(BeFalse())
}

func (s *TodoRepositoryTestSuite) TestRepository_FindByTitleAndDescription() {
	saved, _ := s.repo.Save(s.ctx, factory.NewTodo(map[string]any{
		"Title":       "Read",
		"Description": "A book",
	}))

	todo, found, err := s.repo.FindByTitleAndDescription(s.ctx, "Read", "A book")

	Expect(err).To(BeNil())
	Expect(found).To(BeTrue())
	Expect(todo.ID).To(Equal(saved.ID))

	_, found, err = s.repo.FindByTitleAndDescription(s.ctx, "Read", "A magazine")

	Expect(err).To(BeNil())
	Expect(found).To(BeFalse())
}

func (s *TodoRepositoryTestSuite) TestRepository_Save_UpdatesMutableColumns() {
	saved, _ := s.repo.Save(s.ctx, factory.NewTodo(map[string]any{
		"Title":       "Old",
		"Description": "Desc",
		"Completed":   false,
	}))

	saved.Title = "New"
	saved.Completed = true

	updated, err := s.repo.Save(s.ctx, saved)

	Expect(err).To(BeNil())
	Expect(updated.ID).To(Equal(saved.ID))
	Expect(updated.Title).To(Equal("New"))
	Expect(updated.Description).To(Equal("Desc"))
	Expect(updated.Completed).To(BeTrue())
	Expect(updated.CreatedAt.Unix()).To(Equal(saved.CreatedAt.Unix()))
}

func (s *TodoRepositoryTestSuite) TestRepository_DeleteByID() {
	saved, _ := s.repo.Save(s.ctx, factory.NewTodo())

	Expect(s.repo.DeleteByID(s.ctx, saved.ID)).To(Succeed())

	_, found, err := s.repo.FindByID(s.ctx, saved.ID)

	Expect(err).To(BeNil())
	Expect(found).To(BeFalse())
}

func (s *TodoRepositoryTestSuite) TestRepository_DeleteByID_MissingIsNoop() {
	Expect(s.repo.DeleteByID(s.ctx, 42)).To(Succeed())
}

func (s *TodoRepositoryTestSuite) TestRepository_CleanDB() {
	s.repo.Save(s.ctx, factory.NewTodo())

	CleanDB(s.T(), s.setup.DB)

	todos, err := s.repo.FindAll(s.ctx)

	Expect(err).To(BeNil())
	Expect(todos).To(BeEmpty())
}

func (s *TodoRepositoryTestSuite) TestRepository_DuplicatesAllowedAtStorageLevel() {
	_, err := s.repo.Save(s.ctx, domain.Todo{Title: "Same", Description: "Same"})
	Expect(err).To(BeNil())

	_, err = s.repo.Save(s.ctx, domain.Todo{Title: "Same", Description: "Same"})
	Expect(err).To(BeNil())
}

func (s *TodoRepositoryTestSuite) TestRepository_Save_UpdateOfDeletedRowIsNotFound() {
	saved, _ := s.repo.Save(s.ctx, factory.NewTodo())

	Expect(s.repo.DeleteByID(s.ctx, saved.ID)).To(Succeed())

	saved.Completed = true

	_, err := s.repo.Save(s.ctx, saved)

	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())

	todos, _ := s.repo.FindAll(s.ctx)
	Expect(todos).To(BeEmpty())
}
