package repository

import "TaskNest/internal/modules/todo/domain/entity"

type TodoRepository interface {
	CreateTodo(todo *entity.Todo) error
	GetTodoByUUID(uuid string) (*entity.Todo, error)
	UpdateTodo(todo *entity.Todo) error
	DeleteTodo(uuid string) error
	ListPersonal(ownerID string) ([]entity.Todo, error)
	ListByGroup(groupID string) ([]entity.Todo, error)
}

// MembershipReader 群组待办的权限来源
type MembershipReader interface {
	// AcceptedGroupName 用户是该群已接受成员时返回群名，否则返回 gorm.ErrRecordNotFound
	AcceptedGroupName(groupID, userID string) (string, error)
}
