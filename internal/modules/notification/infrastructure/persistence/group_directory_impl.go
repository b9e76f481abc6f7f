package persistence

import (
	"context"

	groupEntity "TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

type groupDirectoryImpl struct {
	db *gorm.DB
}

// NewGroupDirectory 直接读取群组表，不缓存成员关系
func NewGroupDirectory(db *gorm.DB) repository.GroupDirectory {
	return &groupDirectoryImpl{db: db}
}

func (d *groupDirectoryImpl) GetGroupAudience(ctx context.Context, groupID string) (*entity.GroupAudience, error) {
	var group groupEntity.GroupInfo
	err := d.db.WithContext(ctx).
		Where("uuid = ? AND status = ?", groupID, groupEntity.GroupStatusNormal).
		First(&group).Error
	if err != nil {
		return nil, err
	}

	var rows []groupEntity.GroupMember
	err = d.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]entity.Member, 0, len(rows))
	for _, m := range rows {
		members = append(members, entity.Member{
			UserId:           m.UserId,
			Role:             m.Role,
			InvitationStatus: m.InvitationStatus,
		})
	}
	return &entity.GroupAudience{
		GroupId:   group.Uuid,
		GroupName: group.Name,
		Members:   members,
	}, nil
}

func (d *groupDirectoryImpl) IsAcceptedMember(ctx context.Context, groupID, userID string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&groupEntity.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND invitation_status = ?", groupID, userID, groupEntity.InvitationAccepted).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
