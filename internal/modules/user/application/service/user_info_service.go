package service

import (
	"errors"
	"strings"
	"time"

	"TaskNest/internal/modules/user/application/dto/request"
	"TaskNest/internal/modules/user/application/dto/respond"
	"TaskNest/internal/modules/user/domain/entity"
	"TaskNest/internal/modules/user/domain/repository"
	"TaskNest/pkg/util"
	"TaskNest/pkg/util/myjwt"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAvatar = "https://cube.elemecdn.com/0/88/03b0d39583f48206768a7534e55bcpng.png"

// UserInfoService 接口定义 (Application Service)
type UserInfoService interface {
	Register(req request.RegisterRequest) (*respond.RegisterRespond, error)
	Login(req request.LoginRequest) (*respond.LoginRespond, error)
}

type userInfoServiceImpl struct {
	repo repository.UserInfoRepository
}

func NewUserInfoService(repo repository.UserInfoRepository) UserInfoService {
	return &userInfoServiceImpl{repo: repo}
}

func (u *userInfoServiceImpl) Register(req request.RegisterRequest) (*respond.RegisterRespond, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Username == "" || req.Password == "" {
		return nil, xerr.ErrParam
	}

	_, err := u.repo.GetUserInfoByUsername(req.Username)
	if err == nil {
		return nil, xerr.New(xerr.Conflict, "用户已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zlog.Error("hash password failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}
	newUser := entity.UserInfo{
		Uuid:      util.GenerateUserID(),
		Username:  req.Username,
		Nickname:  nickname,
		Password:  string(hash),
		Avatar:    defaultAvatar,
		Status:    0,
		CreatedAt: time.Now(),
	}
	if err := u.repo.CreateUserInfo(&newUser); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	return &respond.RegisterRespond{
		Uuid:      newUser.Uuid,
		Username:  newUser.Username,
		Nickname:  newUser.Nickname,
		Avatar:    newUser.Avatar,
		CreatedAt: newUser.CreatedAt.Format(time.DateTime),
	}, nil
}

func (u *userInfoServiceImpl) Login(req request.LoginRequest) (*respond.LoginRespond, error) {
	user, err := u.repo.GetUserInfoByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.Unauthorized, "用户名或密码错误")
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, xerr.New(xerr.Unauthorized, "用户名或密码错误")
	}
	if user.Status != 0 {
		return nil, xerr.New(xerr.Forbidden, "账号已被禁用")
	}

	token, err := myjwt.GenerateToken(user.Uuid, user.Username)
	if err != nil {
		zlog.Error("generate token failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return &respond.LoginRespond{
		Token:    token,
		Uuid:     user.Uuid,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}, nil
}
