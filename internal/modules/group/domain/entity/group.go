package entity

import "time"

// 成员角色
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// 邀请状态
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// 群组状态
const (
	GroupStatusNormal    int8 = 0
	GroupStatusDismissed int8 = 1
)

type GroupInfo struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid      string    `gorm:"column:uuid;type:char(20);uniqueIndex;not null"`
	Name      string    `gorm:"column:name;type:varchar(64);not null"`
	OwnerId   string    `gorm:"column:owner_id;type:char(20);index;not null"`
	Status    int8      `gorm:"column:status;type:tinyint;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (GroupInfo) TableName() string {
	return "group_info"
}

// GroupMember 群组成员关系，(group_id, user_id) 唯一
type GroupMember struct {
	Id               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	GroupId          string    `gorm:"column:group_id;type:char(20);not null;uniqueIndex:uk_group_user,priority:1"`
	UserId           string    `gorm:"column:user_id;type:char(20);not null;uniqueIndex:uk_group_user,priority:2;index"`
	Role             string    `gorm:"column:role;type:varchar(16);not null"`
	InvitationStatus string    `gorm:"column:invitation_status;type:varchar(16);not null"`
	InvitedBy        string    `gorm:"column:invited_by;type:char(20)"`
	CreatedAt        time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (GroupMember) TableName() string {
	return "group_member"
}

func (m *GroupMember) Accepted() bool {
	return m != nil && m.InvitationStatus == InvitationAccepted
}

// CanManage owner 与 admin 可以邀请与移除成员
func (m *GroupMember) CanManage() bool {
	return m.Accepted() && (m.Role == RoleOwner || m.Role == RoleAdmin)
}

// MemberWithUser 成员关系联表用户信息
type MemberWithUser struct {
	GroupMember
	Username string `gorm:"column:username"`
	Nickname string `gorm:"column:nickname"`
	Avatar   string `gorm:"column:avatar"`
}

// GroupWithRole 当前用户所在群组及其角色
type GroupWithRole struct {
	GroupInfo
	Role             string `gorm:"column:role"`
	InvitationStatus string `gorm:"column:invitation_status"`
}
