package service

import (
	"testing"

	"TaskNest/internal/config"
	"TaskNest/internal/modules/user/application/dto/request"
	"TaskNest/internal/modules/user/domain/entity"
	"TaskNest/internal/modules/user/infrastructure/persistence"
	"TaskNest/pkg/util/myjwt"
	"TaskNest/pkg/xerr"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) UserInfoService {
	t.Helper()
	config.SetConfig(&config.Config{JwtConfig: config.JwtConfig{Key: "test-key"}})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entity.UserInfo{}))

	return NewUserInfoService(persistence.NewUserInfoRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	reg, err := svc.Register(request.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Len(t, reg.Uuid, 20)
	assert.Equal(t, "alice", reg.Nickname)

	login, err := svc.Login(request.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.Uuid, login.Uuid)

	claims, err := myjwt.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Uuid, claims.Uuid)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(request.RegisterRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(request.RegisterRequest{Username: "bob", Password: "other12"})
	assert.True(t, xerr.Is(err, xerr.Conflict))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(request.RegisterRequest{Username: "carol", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(request.LoginRequest{Username: "carol", Password: "nope"})
	assert.True(t, xerr.Is(err, xerr.Unauthorized))

	_, err = svc.Login(request.LoginRequest{Username: "nobody", Password: "nope"})
	assert.True(t, xerr.Is(err, xerr.Unauthorized))
}
