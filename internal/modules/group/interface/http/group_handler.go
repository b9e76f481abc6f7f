package handler

import (
	"TaskNest/internal/modules/group/application/dto/request"
	"TaskNest/internal/modules/group/application/service"
	"TaskNest/pkg/back"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	svc service.GroupService
}

func NewGroupHandler(svc service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req request.CreateGroupRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.CreateGroup(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *GroupHandler) InviteMember(c *gin.Context) {
	var req request.InviteMemberRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.InviteMember(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *GroupHandler) RespondInvitation(c *gin.Context) {
	var req request.RespondInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.RespondInvitation(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *GroupHandler) ChangeRole(c *gin.Context) {
	var req request.ChangeRoleRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.ChangeRole(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	var req request.RemoveMemberRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.RemoveMember(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	var req request.GroupIdRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	err := h.svc.LeaveGroup(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *GroupHandler) GetGroupMembers(c *gin.Context) {
	var req request.GroupIdRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.GetGroupMembers(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *GroupHandler) MyGroups(c *gin.Context) {
	data, err := h.svc.MyGroups(c.Request.Context(), c.GetString("uuid"))
	back.Result(c, data, err)
}
