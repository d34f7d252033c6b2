package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// FilesystemStore 本地文件系统媒体存储
//
// 只承担编排器需要的 Upload 契约；对象存储的生产实现由部署环境替换。
type FilesystemStore struct {
	baseDir string
	baseURL string
}

func NewFilesystemStore(baseDir, baseURL string) domain.MediaStore {
	return &FilesystemStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *FilesystemStore) Upload(ctx context.Context, fileName string, content []byte, ownerID string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty media upload")
	}
	name := filepath.Base(fileName)
	dir := filepath.Join(s.baseDir, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, ownerID, name), nil
}
