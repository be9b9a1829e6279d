package upload

import (
	"context"
	"fmt"
	"os"
)

// DirCheck 检查暂存目录是否可写，用于 /ready
type DirCheck struct {
	dir string
}

// HealthCheck 返回暂存目录的就绪检查
func (s *Store) HealthCheck() *DirCheck {
	return &DirCheck{dir: s.dir}
}

// Name 返回检查名称
func (c *DirCheck) Name() string {
	return "upload_dir"
}

// Check 在目录中创建并删除一个探测文件
func (c *DirCheck) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("upload dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
