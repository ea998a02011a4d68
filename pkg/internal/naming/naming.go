// Package naming 为上传文件派生磁盘存储名.
package naming

import (
	"encoding/hex"
	"math/rand/v2"

	"github.com/zeebo/xxh3"
)

// NameLen 存储名长度（128 位哈希的十六进制表示）.
const NameLen = 32

// Derive 用原始文件名与新抽取的 64 位随机盐计算 xxh3-128，返回小写十六进制存储名.
// 每次上传都必须重新调用.
func Derive(original string) string {
	return DeriveWithSeed(original, rand.Uint64())
}

// DeriveWithSeed 使用给定盐计算存储名.
func DeriveWithSeed(original string, seed uint64) string {
	sum := xxh3.HashString128Seed(original, seed).Bytes()

	return hex.EncodeToString(sum[:])
}
