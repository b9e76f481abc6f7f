package persistence

import (
	"TaskNest/internal/modules/group/domain/repository"

	"gorm.io/gorm"
)

type groupUnitOfWorkImpl struct {
	db *gorm.DB
}

func NewGroupUnitOfWork(db *gorm.DB) repository.GroupUnitOfWork {
	return &groupUnitOfWorkImpl{db: db}
}

func (u *groupUnitOfWorkImpl) Transaction(fn func(groupRepo repository.GroupInfoRepository, memberRepo repository.GroupMemberRepository) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGroupInfoRepository(tx), NewGroupMemberRepository(tx))
	})
}
