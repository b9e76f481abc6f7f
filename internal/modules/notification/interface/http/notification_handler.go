package handler

import (
	"errors"
	"io"

	"TaskNest/internal/modules/notification/application/dto/request"
	"TaskNest/internal/modules/notification/application/dto/respond"
	"TaskNest/internal/modules/notification/application/service"
	"TaskNest/pkg/back"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc service.LedgerService
}

func NewNotificationHandler(svc service.LedgerService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	var req request.ListNotificationRequest
	// 允许空 body，使用默认条数
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.ListForUser(c.Request.Context(), c.GetString("uuid"), req.Limit)
	back.Result(c, data, err)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req request.MarkReadRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.MarkRead(c.Request.Context(), req.NotificationId, c.GetString("uuid"))
	back.Result(c, nil, err)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), c.GetString("uuid"))
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.MarkAllReadRespond{Updated: n})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), c.GetString("uuid"))
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.UnreadCountRespond{Count: n})
}
