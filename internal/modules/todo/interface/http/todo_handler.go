package handler

import (
	"errors"
	"io"

	"TaskNest/internal/modules/todo/application/dto/request"
	"TaskNest/internal/modules/todo/application/service"
	"TaskNest/pkg/back"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type TodoHandler struct {
	svc service.TodoService
}

func NewTodoHandler(svc service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var req request.CreateTodoRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.CreateTodo(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	var req request.UpdateTodoRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.UpdateTodo(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	var req request.TodoIdRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.DeleteTodo(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *TodoHandler) CompleteTodo(c *gin.Context) {
	var req request.CompleteTodoRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.CompleteTodo(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *TodoHandler) ListTodos(c *gin.Context) {
	var req request.ListTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.ListTodos(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}
