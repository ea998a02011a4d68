package configs

import "github.com/spf13/viper"

const (
	DefaultStorageRoot      = "./store" // 默认文件存储根目录
	DefaultMaxFileSizeMB    = 10        // 默认单文件大小上限（MB）
	megabyteShift           = 20
	maxConfigurableFileSize = 1 << 20 // 上限 1 TiB，防止位移溢出
)

// StorageConfig 文件存储配置.
type StorageConfig struct {
	Root          string `mapstructure:"root"             rule:"required"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb" rule:"min=1,max=1048576"`
}

// MaxUploadBytes 返回以字节为单位的上传大小上限.
func (c *StorageConfig) MaxUploadBytes() int64 {
	mb := c.MaxFileSizeMB
	if mb > maxConfigurableFileSize {
		mb = maxConfigurableFileSize
	}

	return mb << megabyteShift
}

func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", DefaultStorageRoot)
	v.SetDefault("storage.max_file_size_mb", DefaultMaxFileSizeMB)
}
