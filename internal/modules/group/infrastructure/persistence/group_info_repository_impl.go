package persistence

import (
	"TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/group/domain/repository"

	"gorm.io/gorm"
)

type groupInfoRepositoryImpl struct {
	db *gorm.DB
}

func NewGroupInfoRepository(db *gorm.DB) repository.GroupInfoRepository {
	return &groupInfoRepositoryImpl{db: db}
}

func (r *groupInfoRepositoryImpl) CreateGroupInfo(group *entity.GroupInfo) error {
	return r.db.Create(group).Error
}

func (r *groupInfoRepositoryImpl) GetGroupInfoByUUID(uuid string) (*entity.GroupInfo, error) {
	var group entity.GroupInfo
	err := r.db.Where("uuid = ? AND status = ?", uuid, entity.GroupStatusNormal).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupInfoRepositoryImpl) ListGroupsByMember(userID string) ([]entity.GroupWithRole, error) {
	var out []entity.GroupWithRole
	err := r.db.Table("group_info AS g").
		Select("g.*, m.role, m.invitation_status").
		Joins("JOIN group_member AS m ON m.group_id = g.uuid").
		Where("m.user_id = ? AND g.status = ? AND m.invitation_status <> ?", userID, entity.GroupStatusNormal, entity.InvitationDeclined).
		Order("g.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
