package respond

type GroupRespond struct {
	GroupId          string `json:"group_id"`
	Name             string `json:"name"`
	OwnerId          string `json:"owner_id"`
	Role             string `json:"role,omitempty"`
	InvitationStatus string `json:"invitation_status,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type GroupMemberRespond struct {
	UserId           string `json:"user_id"`
	Username         string `json:"username"`
	Nickname         string `json:"nickname"`
	Avatar           string `json:"avatar"`
	Role             string `json:"role"`
	InvitationStatus string `json:"invitation_status"`
}
