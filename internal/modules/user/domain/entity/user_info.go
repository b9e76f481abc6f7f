package entity

import "time"

// UserInfo 用户实体
type UserInfo struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid      string    `gorm:"column:uuid;type:char(20);uniqueIndex;not null"`
	Username  string    `gorm:"column:username;type:varchar(32);uniqueIndex;not null"`
	Nickname  string    `gorm:"column:nickname;type:varchar(32)"`
	Password  string    `gorm:"column:password;type:varchar(100);not null"`
	Avatar    string    `gorm:"column:avatar;type:varchar(255)"`
	Status    int8      `gorm:"column:status;type:tinyint;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (UserInfo) TableName() string {
	return "user_info"
}

// UserBrief 不含密码的用户摘要
type UserBrief struct {
	Uuid     string
	Username string
	Nickname string
	Avatar   string
	Status   int8
}

// DisplayName 昵称优先，缺省回退到用户名
func (b UserBrief) DisplayName() string {
	if b.Nickname != "" {
		return b.Nickname
	}
	return b.Username
}
