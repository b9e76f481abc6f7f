package persistence

import (
	groupEntity "TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/todo/domain/entity"
	"TaskNest/internal/modules/todo/domain/repository"

	"gorm.io/gorm"
)

type todoRepositoryImpl struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) repository.TodoRepository {
	return &todoRepositoryImpl{db: db}
}

func (r *todoRepositoryImpl) CreateTodo(todo *entity.Todo) error {
	return r.db.Create(todo).Error
}

func (r *todoRepositoryImpl) GetTodoByUUID(uuid string) (*entity.Todo, error) {
	var todo entity.Todo
	err := r.db.Where("uuid = ?", uuid).First(&todo).Error
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepositoryImpl) UpdateTodo(todo *entity.Todo) error {
	return r.db.Save(todo).Error
}

func (r *todoRepositoryImpl) DeleteTodo(uuid string) error {
	return r.db.Where("uuid = ?", uuid).Delete(&entity.Todo{}).Error
}

func (r *todoRepositoryImpl) ListPersonal(ownerID string) ([]entity.Todo, error) {
	var out []entity.Todo
	err := r.db.Where("owner_id = ? AND group_id = ?", ownerID, "").
		Order("completed ASC").Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *todoRepositoryImpl) ListByGroup(groupID string) ([]entity.Todo, error) {
	var out []entity.Todo
	err := r.db.Where("group_id = ?", groupID).
		Order("completed ASC").Order("created_at DESC").
		Find(&out).Error
	return out, err
}

type membershipReaderImpl struct {
	db *gorm.DB
}

func NewMembershipReader(db *gorm.DB) repository.MembershipReader {
	return &membershipReaderImpl{db: db}
}

func (m *membershipReaderImpl) AcceptedGroupName(groupID, userID string) (string, error) {
	var row struct {
		Name string
	}
	err := m.db.Table("group_info AS g").
		Select("g.name").
		Joins("JOIN group_member AS m ON m.group_id = g.uuid").
		Where("g.uuid = ? AND g.status = ? AND m.user_id = ? AND m.invitation_status = ?",
			groupID, groupEntity.GroupStatusNormal, userID, groupEntity.InvitationAccepted).
		Take(&row).Error
	if err != nil {
		return "", err
	}
	return row.Name, nil
}
