package persistence

import (
	"TaskNest/internal/modules/user/domain/entity"
	"TaskNest/internal/modules/user/domain/repository"

	"gorm.io/gorm"
)

type userInfoRepositoryImpl struct {
	db *gorm.DB
}

func NewUserInfoRepository(db *gorm.DB) repository.UserInfoRepository {
	return &userInfoRepositoryImpl{db: db}
}

func (r *userInfoRepositoryImpl) CreateUserInfo(user *entity.UserInfo) error {
	return r.db.Create(user).Error
}

func (r *userInfoRepositoryImpl) GetUserInfoByUsername(username string) (*entity.UserInfo, error) {
	var user entity.UserInfo
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userInfoRepositoryImpl) GetUserBriefByUUID(uuid string) (*entity.UserBrief, error) {
	var user entity.UserBrief
	// First 查不到会返回 ErrRecordNotFound
	err := r.db.Model(&entity.UserInfo{}).
		Select("uuid", "username", "nickname", "avatar", "status").
		Where("uuid = ?", uuid).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userInfoRepositoryImpl) GetUserBriefByUUIDs(uuids []string) ([]entity.UserBrief, error) {
	if len(uuids) == 0 {
		return []entity.UserBrief{}, nil
	}

	var users []entity.UserBrief
	err := r.db.Model(&entity.UserInfo{}).
		Select("uuid", "username", "nickname", "avatar", "status").
		Where("uuid IN ?", uuids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
