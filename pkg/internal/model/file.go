package model

// File 一次成功上传的元数据记录.
// StoreName 为磁盘上的文件名；Token 为下载时必须同时出示的访问令牌.
type File struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	// 上传时的原始文件名，仅用于下载时的 Content-Disposition
	Name  string `gorm:"size:255;not null"                                 json:"name"`
	Token string `gorm:"size:32;not null;index:idx_files_lookup,priority:2" json:"-"`
	// 上传者标识
	UserUUID  string `gorm:"column:user_uuid;size:36;not null;index"                        json:"user_uuid"`
	StoreName string `gorm:"size:64;not null;uniqueIndex;index:idx_files_lookup,priority:1" json:"store_name"`
	// 创建时间与过期时间均为 Unix 毫秒；DeadAt 为空表示永不过期
	CreatedAt int64  `gorm:"autoCreateTime:milli;not null" json:"created_at"`
	DeadAt    *int64 `gorm:"index"                         json:"dead_at,omitempty"`
	// 软删除标记，只有 available 的记录可以被下载
	Available bool `gorm:"not null;index" json:"available"`
}

// TableName 表名.
func (File) TableName() string {
	return "files"
}

// ExpiredAt 判断记录在 nowMs 时刻是否已过期.
func (f *File) ExpiredAt(nowMs int64) bool {
	return f.DeadAt != nil && *f.DeadAt <= nowMs
}
