package request

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

type InviteMemberRequest struct {
	GroupId string `json:"group_id" binding:"required"`
	UserId  string `json:"user_id" binding:"required"`
}

type RespondInvitationRequest struct {
	GroupId string `json:"group_id" binding:"required"`
	Accept  bool   `json:"accept"`
}

type ChangeRoleRequest struct {
	GroupId string `json:"group_id" binding:"required"`
	UserId  string `json:"user_id" binding:"required"`
	Role    string `json:"role" binding:"required,grouprole"`
}

type RemoveMemberRequest struct {
	GroupId string `json:"group_id" binding:"required"`
	UserId  string `json:"user_id" binding:"required"`
}

type GroupIdRequest struct {
	GroupId string `json:"group_id" binding:"required"`
}
