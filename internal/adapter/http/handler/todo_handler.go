package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	. "todoapi/internal/adapter/http/helper"
	"todoapi/internal/adapter/http/validation"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/core/model/dto"
	"todoapi/internal/core/model/request"
	"todoapi/internal/core/port"
	"todoapi/internal/core/util"
	ct "todoapi/pkg/context"
	. "todoapi/pkg/tracing"
)

type TodoHandler struct {
	svc    port.TodoService
	Logger *logger.LokiLogger
}

func NewTodoHandler(svc port.TodoService, lokiLogger *logger.LokiLogger) *TodoHandler {
	return &TodoHandler{
		svc:    svc,
		Logger: lokiLogger,
	}
}

// startSpan opens the handler span and swaps it into the request context.
func (t *TodoHandler) startSpan(c *gin.Context, operation string) trace.Span {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo."+operation, []attribute.KeyValue{
		attribute.String("handler.operation", operation),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})

	c.Request = c.Request.WithContext(ctx)

	return span
}

func (t *TodoHandler) fail(c *gin.Context, span trace.Span, err error) {
	status := StatusFor(err)

	AddSpanError(span, err)
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), status)

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()

		t.Logger.Logger.Ctx(ctx).Error("Todo request failed",
			zap.String("request_id", ct.RequestID(ctx)),
			zap.Error(err),
		)
	}

	SendError(c, err)
}

func (t *TodoHandler) GetAllTodos(c *gin.Context) {
	span := t.startSpan(c, "GetAllTodos")
	defer span.End()

	todos, err := t.svc.FindAll(c.Request.Context())

	if err != nil {
		t.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusOK)

	c.JSON(http.StatusOK, todos)
}

func (t *TodoHandler) GetTodo(c *gin.Context) {
	span := t.startSpan(c, "GetTodo")
	defer span.End()

	path, err := util.ParamsFromURI[request.TodoPath](c)

	if err != nil {
		t.fail(c, span, validation.InvalidID())
		return
	}

	span.SetAttributes(attribute.Int64("todo.id", path.ID))

	todo, err := t.svc.FindByID(c.Request.Context(), path.ID)

	if err != nil {
		t.fail(c, span, err)
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (t *TodoHandler) CreateTodo(c *gin.Context) {
	span := t.startSpan(c, "CreateTodo")
	defer span.End()

	params, err := util.ParamsFromJSON[dto.TodoDTO](c)

	if err != nil {
		t.fail(c, span, validation.DecodeError(err))
		return
	}

	if err := validation.ValidateStruct(params); err != nil {
		t.fail(c, span, err)
		return
	}

	todo, err := t.svc.SaveTodo(c.Request.Context(), params)

	if err != nil {
		t.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("todo.id", *todo.ID))

	c.JSON(http.StatusOK, todo)
}

func (t *TodoHandler) UpdateTodo(c *gin.Context) {
	span := t.startSpan(c, "UpdateTodo")
	defer span.End()

	path, err := util.ParamsFromURI[request.TodoPath](c)

	if err != nil {
		t.fail(c, span, validation.InvalidID())
		return
	}

	span.SetAttributes(attribute.Int64("todo.id", path.ID))

	params, err := util.ParamsFromJSON[dto.TodoDTO](c)

	if err != nil {
		t.fail(c, span, validation.DecodeError(err))
		return
	}

	todo, err := t.svc.UpdateTodo(c.Request.Context(), path.ID, params)

	if err != nil {
		t.fail(c, span, err)
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (t *TodoHandler) DeleteTodo(c *gin.Context) {
	span := t.startSpan(c, "DeleteTodo")
	defer span.End()

	path, err := util.ParamsFromURI[request.TodoPath](c)

	if err != nil {
		t.fail(c, span, validation.InvalidID())
		return
	}

	span.SetAttributes(attribute.Int64("todo.id", path.ID))

	if err := t.svc.DeleteByID(c.Request.Context(), path.ID); err != nil {
		t.fail(c, span, err)
		return
	}

	c.Status(http.StatusNoContent)
}
