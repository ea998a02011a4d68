package model

// User 上传方身份，由管理命令预先登记.
type User struct {
	ID      uint   `gorm:"primaryKey"                               json:"id"`
	UUID    string `gorm:"column:uuid;size:36;not null;uniqueIndex" json:"uuid"`
	Enabled bool   `gorm:"not null"                                 json:"enabled"`
}

// TableName 表名.
func (User) TableName() string {
	return "users"
}
