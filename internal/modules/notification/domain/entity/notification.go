package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Kind 通知类型，同时作为下行事件名
type Kind string

const (
	KindGroupInvited     Kind = "group:invited"
	KindGroupJoined      Kind = "group:joined"
	KindGroupRoleChanged Kind = "group:role_changed"
	KindGroupRemoved     Kind = "group:removed"
	KindTodoAdded        Kind = "todo:added"
	KindTodoUpdated      Kind = "todo:updated"
	KindTodoDeleted      Kind = "todo:deleted"
	KindTodoCompleted    Kind = "todo:completed"
)

var knownKinds = map[Kind]struct{}{
	KindGroupInvited:     {},
	KindGroupJoined:      {},
	KindGroupRoleChanged: {},
	KindGroupRemoved:     {},
	KindTodoAdded:        {},
	KindTodoUpdated:      {},
	KindTodoDeleted:      {},
	KindTodoCompleted:    {},
}

func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Notification 每个接收者一行。除 IsRead/ReadAt 外创建后不可修改
type Notification struct {
	Id             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	NotificationId string         `gorm:"column:notification_id;type:char(20);uniqueIndex;not null"`
	RecipientId    string         `gorm:"column:recipient_id;type:char(20);not null;index:idx_recipient_created,priority:1;index:idx_recipient_read,priority:1"`
	ActorId        string         `gorm:"column:actor_id;type:char(20)"`
	Kind           Kind           `gorm:"column:kind;type:varchar(32);not null"`
	Message        string         `gorm:"column:message;type:varchar(512);not null"`
	RelatedGroupId string         `gorm:"column:related_group_id;type:char(20);index"`
	RelatedTodoId  string         `gorm:"column:related_todo_id;type:char(20)"`
	Payload        datatypes.JSON `gorm:"column:payload;type:json"`
	IsRead         bool           `gorm:"column:is_read;not null;default:false;index:idx_recipient_read,priority:2"`
	ReadAt         *time.Time     `gorm:"column:read_at;type:datetime(6)"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:datetime(6);not null;index:idx_recipient_created,priority:2"`
}

func (Notification) TableName() string {
	return "notification"
}

// 成员邀请状态，与群组模块的取值一致
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Member 群组成员快照，受众计算的输入
type Member struct {
	UserId           string
	Role             string
	InvitationStatus string
}

// GroupAudience 群组当前成员视图，每次事件实时查询，不做缓存
type GroupAudience struct {
	GroupId   string
	GroupName string
	Members   []Member
}
