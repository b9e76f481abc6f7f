package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"TaskNest/internal/config"
	groupEntity "TaskNest/internal/modules/group/domain/entity"
	notifyEntity "TaskNest/internal/modules/notification/domain/entity"
	todoEntity "TaskNest/internal/modules/todo/domain/entity"
	userEntity "TaskNest/internal/modules/user/domain/entity"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB 连接 MySQL 并自动迁移全部表结构
func NewGormDB(conf *config.Config) (*gorm.DB, error) {
	mc := conf.MysqlConfig
	dbName := mc.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		mc.User, mc.Password, mc.Host, mc.Port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	// 自动迁移，如果没有建表，会自动创建对应的表
	err = db.AutoMigrate(
		&userEntity.UserInfo{},
		&groupEntity.GroupInfo{},
		&groupEntity.GroupMember{},
		&todoEntity.Todo{},
		&notifyEntity.Notification{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
