package repository

import "TaskNest/internal/modules/user/domain/entity"

// UserInfoRepository 接口定义
type UserInfoRepository interface {
	CreateUserInfo(user *entity.UserInfo) error
	GetUserInfoByUsername(username string) (*entity.UserInfo, error)
	GetUserBriefByUUID(uuid string) (*entity.UserBrief, error)
	GetUserBriefByUUIDs(uuids []string) ([]entity.UserBrief, error)
}
