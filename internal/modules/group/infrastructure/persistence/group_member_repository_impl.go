package persistence

import (
	"TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/group/domain/repository"

	"gorm.io/gorm"
)

type groupMemberRepositoryImpl struct {
	db *gorm.DB
}

func NewGroupMemberRepository(db *gorm.DB) repository.GroupMemberRepository {
	return &groupMemberRepositoryImpl{db: db}
}

func (r *groupMemberRepositoryImpl) CreateMember(member *entity.GroupMember) error {
	return r.db.Create(member).Error
}

func (r *groupMemberRepositoryImpl) GetMember(groupID, userID string) (*entity.GroupMember, error) {
	var m entity.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *groupMemberRepositoryImpl) UpdateMember(member *entity.GroupMember) error {
	return r.db.Save(member).Error
}

func (r *groupMemberRepositoryImpl) DeleteMember(groupID, userID string) error {
	res := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&entity.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *groupMemberRepositoryImpl) ListMembersWithUser(groupID string) ([]entity.MemberWithUser, error) {
	var out []entity.MemberWithUser
	err := r.db.Table("group_member AS m").
		Select("m.*, u.username, u.nickname, u.avatar").
		Joins("LEFT JOIN user_info AS u ON u.uuid = m.user_id").
		Where("m.group_id = ?", groupID).
		Order("m.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
