// Package compose 把领域事件翻译成通知文案与受众，纯函数，不做任何 I/O。
package compose

import (
	"fmt"

	"TaskNest/internal/modules/notification/domain/entity"
)

const (
	fallbackGroupName = "the group"
	fallbackActorName = "Someone"
	fallbackTodoTitle = "a todo"
)

// TodoRef 事件发生时的待办快照
type TodoRef struct {
	Id        string
	Title     string
	Completed bool
}

// Event 业务方提交的原始事件
type Event struct {
	Kind      entity.Kind
	ActorId   string
	ActorName string

	GroupId   string
	GroupName string

	Todo *TodoRef

	// 定向事件的接收者；role_changed 时为被修改角色的成员
	TargetUserId   string
	TargetUserName string
	Role           string
}

// Composed 单个接收者的通知
type Composed struct {
	RecipientId string
	Message     string
}

// GroupAudience 已接受邀请的成员去掉操作者，按成员顺序去重
func GroupAudience(members []entity.Member, actorID string) []string {
	out := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.UserId == "" || m.UserId == actorID {
			continue
		}
		if m.InvitationStatus != entity.InvitationAccepted {
			continue
		}
		if _, dup := seen[m.UserId]; dup {
			continue
		}
		seen[m.UserId] = struct{}{}
		out = append(out, m.UserId)
	}
	return out
}

// DirectAudience 定向事件只通知目标用户；目标即操作者时受众为空
func DirectAudience(targetUserID, actorID string) []string {
	if targetUserID == "" || targetUserID == actorID {
		return []string{}
	}
	return []string{targetUserID}
}

// Compose 为受众中的每个人生成文案
func Compose(ev Event, audience []string) []Composed {
	out := make([]Composed, 0, len(audience))
	for _, uid := range audience {
		out = append(out, Composed{RecipientId: uid, Message: Message(ev, uid)})
	}
	return out
}

// Message 按事件类型套用模板。recipientID 为空时生成面向旁观者的文案（用于 topic 广播）
func Message(ev Event, recipientID string) string {
	actor := orDefault(ev.ActorName, fallbackActorName)
	group := orDefault(ev.GroupName, fallbackGroupName)
	title := fallbackTodoTitle
	if ev.Todo != nil && ev.Todo.Title != "" {
		title = ev.Todo.Title
	}

	switch ev.Kind {
	case entity.KindGroupInvited:
		return fmt.Sprintf("%s invited you to join %s", actor, group)
	case entity.KindGroupJoined:
		return fmt.Sprintf("%s joined %s", actor, group)
	case entity.KindGroupRoleChanged:
		role := orDefault(ev.Role, "member")
		if recipientID != "" && recipientID == ev.TargetUserId {
			return fmt.Sprintf("%s changed your role to %s in %s", actor, role, group)
		}
		member := orDefault(ev.TargetUserName, "a member")
		return fmt.Sprintf("%s changed %s's role to %s in %s", actor, member, role, group)
	case entity.KindGroupRemoved:
		return fmt.Sprintf("%s removed you from %s", actor, group)
	case entity.KindTodoAdded:
		return fmt.Sprintf("%s added %q to %s", actor, title, group)
	case entity.KindTodoUpdated:
		return fmt.Sprintf("%s updated %q in %s", actor, title, group)
	case entity.KindTodoDeleted:
		return fmt.Sprintf("%s deleted %q from %s", actor, title, group)
	case entity.KindTodoCompleted:
		return fmt.Sprintf("%s completed %q in %s", actor, title, group)
	default:
		return fmt.Sprintf("%s modified a todo in %s", actor, group)
	}
}

// Payload 事件元数据：写入通知记录，同时作为推送 data 的基础
func Payload(ev Event) map[string]interface{} {
	p := map[string]interface{}{
		"performedBy": map[string]interface{}{
			"userId":   ev.ActorId,
			"username": orDefault(ev.ActorName, fallbackActorName),
		},
	}
	if ev.GroupId != "" {
		name := orDefault(ev.GroupName, fallbackGroupName)
		p["groupId"] = ev.GroupId
		p["groupName"] = name
		p["group"] = map[string]interface{}{"id": ev.GroupId, "name": name}
	}
	if ev.Todo != nil {
		p["todo"] = map[string]interface{}{
			"id":        ev.Todo.Id,
			"title":     ev.Todo.Title,
			"completed": ev.Todo.Completed,
		}
	}
	if ev.Kind == entity.KindGroupRoleChanged {
		p["role"] = ev.Role
		p["targetUserId"] = ev.TargetUserId
		p["targetUsername"] = ev.TargetUserName
	}
	return p
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
