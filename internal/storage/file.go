package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/LJTian/NewsAlert/internal/logger"
)

// FileStore 把链接集合保存为一个 JSON 字符串数组
type FileStore struct {
	path string
	log  logger.Logger
}

func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{path: path, log: logger.OrNop(log)}
}

var (
	ErrEmptyState   = errors.New("state file is empty")
	ErrCorruptState = errors.New("state file is not a json string array")
)

// ReadLinksFile 严格读取 JSON 字符串数组文件，供导入等需要报错的场景使用
func ReadLinksFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyState
	}
	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return links, nil
}

func (s *FileStore) Load(_ context.Context) LinkSet {
	links, err := ReadLinksFile(s.path)
	switch {
	case err == nil:
		return NewLinkSet(links...)
	case errors.Is(err, fs.ErrNotExist):
		s.log.Info("state file not found, starting empty", logger.String("path", s.path))
	case errors.Is(err, ErrEmptyState):
		s.log.Warn("state file is empty, starting empty", logger.String("path", s.path))
	case errors.Is(err, ErrCorruptState):
		s.log.Warn("state file is not a json string array, starting empty", logger.String("path", s.path), logger.Err(err))
	default:
		s.log.Warn("read state file failed, starting empty", logger.String("path", s.path), logger.Err(err))
	}
	return NewLinkSet()
}

// Save 先写同目录临时文件再 rename，避免中途崩溃留下半个文件
func (s *FileStore) Save(_ context.Context, links LinkSet) error {
	data, err := json.MarshalIndent(links.Sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
