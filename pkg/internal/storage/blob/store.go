// Package blob 管理存储根目录下按存储名保存的文件内容.
package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotExist 文件不存在.
	ErrNotExist = errors.New("blob: not exist")
	// ErrInvalidName 存储名不是单一的普通路径元素.
	ErrInvalidName = errors.New("blob: invalid name")
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Store 本地文件系统上的 blob 存储.
type Store struct {
	root string
}

// New 创建 Store，根目录不存在时自动创建.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob: empty storage root")
	}

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// Root 返回存储根目录.
func (s *Store) Root() string {
	return s.root
}

// Path 返回存储名对应的完整路径.
func (s *Store) Path(name string) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}

	return filepath.Join(s.root, name), nil
}

// Create 以独占方式新建 blob，同名文件已存在时失败.
// 调用方负责写入、Sync 与 Close.
func (s *Store) Create(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create blob: %w", err)
	}

	return f, nil
}

// Open 打开 blob 用于读取，不存在或不是普通文件时返回 ErrNotExist.
func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}

		return nil, fmt.Errorf("open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat blob: %w", err)
	}

	if !info.Mode().IsRegular() {
		_ = f.Close()

		return nil, ErrNotExist
	}

	return f, nil
}

// Exists 判断 blob 是否存在.
func (s *Store) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}

	info, err := os.Stat(p)

	return err == nil && info.Mode().IsRegular()
}

// Delete 删除 blob，文件本就不存在时不返回错误.
func (s *Store) Delete(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

// Check 确认根目录存在且可写.
func (s *Store) Check() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}

	f, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}

	name := f.Name()
	_ = f.Close()

	return os.Remove(name)
}

// validName 存储名必须是单一路径元素，且不能是隐藏文件或相对路径.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}

	if strings.ContainsAny(name, `/\`+"\x00") {
		return false
	}

	return filepath.Base(name) == name
}
