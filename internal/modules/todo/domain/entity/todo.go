package entity

import "time"

// Todo GroupId 为空表示个人待办
type Todo struct {
	Id          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid        string     `gorm:"column:uuid;type:char(20);uniqueIndex;not null"`
	OwnerId     string     `gorm:"column:owner_id;type:char(20);index;not null"`
	GroupId     string     `gorm:"column:group_id;type:char(20);index"`
	Title       string     `gorm:"column:title;type:varchar(200);not null"`
	Description string     `gorm:"column:description;type:text"`
	Completed   bool       `gorm:"column:completed;not null;default:false"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:datetime"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:datetime;not null"`
}

func (Todo) TableName() string {
	return "todo"
}

func (t *Todo) Personal() bool {
	return t.GroupId == ""
}
