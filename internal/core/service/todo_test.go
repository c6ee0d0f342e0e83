package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"todoapi/internal/adapter/database/sqlite/repository"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/mapper"
	"todoapi/internal/core/model/dto"
	"todoapi/internal/core/port"
	"todoapi/internal/core/service"
	"todoapi/internal/core/telemetry"
	. "todoapi/pkg/test"
)

func ptr[T any](v T) *T { return &v }

// staleRepository answers FindByID from a snapshot taken before the row was
// removed, the way a lagging read replica or cache would.
type staleRepository struct {
	port.TodoRepository
	snapshot domain.Todo
}

func (r *staleRepository) FindByID(ctx context.Context, id int64) (domain.Todo, bool, error) {
	return r.snapshot, true, nil
}

type brokenRepository struct {
	port.TodoRepository
}

func (r *brokenRepository) FindAll(ctx context.Context) ([]domain.Todo, error) {
	return nil, errors.New("disk I/O error")
}

func (r *brokenRepository) FindByID(ctx context.Context, id int64) (domain.Todo, bool, error) {
	return domain.Todo{}, false, nil
}

type recordedError struct {
	operation string
	err       error
}

type errorRecorder struct {
	telemetry.NoOpProbe
	mu     sync.Mutex
	errors []recordedError
}

func (r *errorRecorder) RecordError(ctx context.Context, operation string, err error, metadata map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, recordedError{operation: operation, err: err})
}

type TodoServiceTestSuite struct {
	suite.Suite
	Service *service.TodoService
	Repo    *repository.TodoRepository
	ctx     context.Context
}

func (s *TodoServiceTestSuite) SetupTest() {
	db := InitTestDB()
	s.T().Cleanup(func() { db.Close() })

	s.Repo = repository.NewTodoRepository(db, nil)
	s.Service = service.NewTodoService(s.Repo, mapper.NewTodoMapper(), nil, nil)
	s.ctx = context.Background()
}

func TestTodoServiceTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TodoServiceTestSuite))
}

func (s *TodoServiceTestSuite) create(title, description string) dto.TodoDTO {
	out, err := s.Service.SaveTodo(s.ctx, dto.TodoDTO{Title: ptr(title), Description: ptr(description)})
	s.Require().NoError(err)

	return out
}

func (s *TodoServiceTestSuite) TestService_FindAll_Empty() {
	todos, err := s.Service.FindAll(s.ctx)

	Expect(err).To(BeNil())
	Expect(todos).NotTo(BeNil())
	Expect(todos).To(BeEmpty())
}

func (s *TodoServiceTestSuite) TestService_SaveTodo_Defaults() {
	out, err := s.Service.SaveTodo(s.ctx, dto.TodoDTO{
		ID:          ptr(int64(77)),
		Title:       ptr("Buy milk"),
		Description: ptr("2%"),
		Completed:   ptr(true),
	})

	Expect(err).To(BeNil())
	Expect(*out.ID).To(Equal(int64(1)))
	Expect(*out.Title).To(Equal("Buy milk"))
	Expect(*out.Description).To(Equal("2%"))
	Expect(*out.Completed).To(BeFalse())
}

func (s *TodoServiceTestSuite) TestService_FindByID_AfterCreate() {
	created := s.create("Walk", "Dog")

	found, err := s.Service.FindByID(s.ctx, *created.ID)

	Expect(err).To(BeNil())
	Expect(found).To(Equal(created))
}

func (s *TodoServiceTestSuite) TestService_SaveTodo_Duplicate() {
	s.create("Buy milk", "2%")

	_, err := s.Service.SaveTodo(s.ctx, dto.TodoDTO{Title: ptr("Buy milk"), Description: ptr("2%")})

	Expect(errors.Is(err, domain.ErrAlreadyExists)).To(BeTrue())
	Expect(err.Error()).To(Equal("Todo with the same title and description already exists"))

	todos, _ := s.Service.FindAll(s.ctx)
	Expect(todos).To(HaveLen(1))
}

func (s *TodoServiceTestSuite) TestService_SaveTodo_SameTitleDifferentDescription() {
	s.create("Buy milk", "2%")

	_, err := s.Service.SaveTodo(s.ctx, dto.TodoDTO{Title: ptr("Buy milk"), Description: ptr("whole")})

	Expect(err).To(BeNil())
}

func (s *TodoServiceTestSuite) TestService_UnknownID_NotFound() {
	_, err := s.Service.FindByID(s.ctx, 404)
	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
	Expect(err.Error()).To(Equal("Resource not found with id: 404"))

	_, err = s.Service.UpdateTodo(s.ctx, 404, dto.TodoDTO{Title: ptr("x")})
	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())

	err = s.Service.DeleteByID(s.ctx, 404)
	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
}

func (s *TodoServiceTestSuite) TestService_UpdateTodo_OnlyTitle() {
	created := s.create("Old", "Desc")

	updated, err := s.Service.UpdateTodo(s.ctx, *created.ID, dto.TodoDTO{Title: ptr("New")})

	Expect(err).To(BeNil())
	Expect(*updated.ID).To(Equal(*created.ID))
	Expect(*updated.Title).To(Equal("New"))
	Expect(*updated.Description).To(Equal("Desc"))
	Expect(*updated.Completed).To(BeFalse())
}

func (s *TodoServiceTestSuite) TestService_UpdateTodo_KeepsCreatedAt() {
	created := s.create("Task", "Desc")

	before, found, err := s.Repo.FindByID(s.ctx, *created.ID)
	s.Require().NoError(err)
	s.Require().True(found)

	_, err = s.Service.UpdateTodo(s.ctx, *created.ID, dto.TodoDTO{
		Title:       ptr("Renamed"),
		Description: ptr("Changed"),
		Completed:   ptr(true),
	})
	Expect(err).To(BeNil())

	after, _, err := s.Repo.FindByID(s.ctx, *created.ID)
	s.Require().NoError(err)

	Expect(after.CreatedAt.Equal(before.CreatedAt)).To(BeTrue())
	Expect(after.Title).To(Equal("Renamed"))
}

func (s *TodoServiceTestSuite) TestService_UpdateTodo_RowDeletedAfterLookup() {
	created := s.create("Task", "Desc")

	snapshot, _, err := s.Repo.FindByID(s.ctx, *created.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.Repo.DeleteByID(s.ctx, *created.ID))

	svc := service.NewTodoService(&staleRepository{TodoRepository: s.Repo, snapshot: snapshot}, nil, nil, nil)

	_, err = svc.UpdateTodo(s.ctx, *created.ID, dto.TodoDTO{Completed: ptr(true)})

	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())

	todos, _ := s.Service.FindAll(s.ctx)
	Expect(todos).To(BeEmpty())
}

func (s *TodoServiceTestSuite) TestService_RecordsUnexpectedErrors() {
	recorder := &errorRecorder{}
	svc := service.NewTodoService(&brokenRepository{}, nil, recorder, nil)

	_, err := svc.FindAll(s.ctx)
	Expect(err).To(MatchError(ContainSubstring("disk I/O error")))

	_, err = svc.FindByID(s.ctx, 1)
	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())

	Expect(recorder.errors).To(HaveLen(1))
	Expect(recorder.errors[0].operation).To(Equal("todo.FindAll"))
}

func (s *TodoServiceTestSuite) TestService_UpdateTodo_IgnoresPayloadID() {
	created := s.create("Task", "Desc")

	updated, err := s.Service.UpdateTodo(s.ctx, *created.ID, dto.TodoDTO{ID: ptr(int64(999)), Completed: ptr(true)})

	Expect(err).To(BeNil())
	Expect(*updated.ID).To(Equal(*created.ID))
	Expect(*updated.Completed).To(BeTrue())
}

func (s *TodoServiceTestSuite) TestService_UpdateTodo_MayCreateDuplicate() {
	s.create("A", "B")
	other := s.create("C", "D")

	_, err := s.Service.UpdateTodo(s.ctx, *other.ID, dto.TodoDTO{Title: ptr("A"), Description: ptr("B")})

	assert.NoError(s.T(), err)
}

func (s *TodoServiceTestSuite) TestService_DeleteByID() {
	created := s.create("Gone", "Soon")

	Expect(s.Service.DeleteByID(s.ctx, *created.ID)).To(Succeed())

	_, err := s.Service.FindByID(s.ctx, *created.ID)
	Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
}

func (s *TodoServiceTestSuite) TestService_FindAll_StorageOrder() {
	first := s.create("1", "one")
	second := s.create("2", "two")

	todos, err := s.Service.FindAll(s.ctx)

	Expect(err).To(BeNil())
	Expect(todos).To(Equal([]dto.TodoDTO{first, second}))
}

func (s *TodoServiceTestSuite) TestService_ConcurrentDistinctCreates() {
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			_, err := s.Service.SaveTodo(s.ctx, dto.TodoDTO{
				Title:       ptr("Task"),
				Description: ptr(string(rune('a' + n))),
			})
			assert.NoError(s.T(), err)
		}(i)
	}

	wg.Wait()

	todos, _ := s.Service.FindAll(s.ctx)
	Expect(todos).To(HaveLen(10))
}
