package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/types"
)

// =============================================================================
// 📁 临时上传存储
// =============================================================================

const octetStream = "application/octet-stream"

// Upload 是单个请求期间暂存在磁盘上的上传文件
type Upload struct {
	// Path 暂存文件的完整路径
	Path string
	// Filename 客户端声明的原始文件名
	Filename string
	// MIMEType 不含参数的媒体类型，例如 image/jpeg
	MIMEType string
	// Size 写入的字节数
	Size int64
}

// Recorder 接收暂存与清理事件，通常由 metrics.Collector 实现
type Recorder interface {
	RecordUploadStored(bytes int64)
	RecordUploadReleased(ok bool)
}

// Store 把上传内容写入独立的临时文件，并在请求结束后删除
type Store struct {
	dir      string
	logger   *zap.Logger
	recorder Recorder
}

// Option 配置 Store
type Option func(*Store)

// WithRecorder 设置事件记录器
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// NewStore 创建 Store，dir 不存在时自动创建
func NewStore(dir string, logger *zap.Logger, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With(zap.String("component", "upload_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir 返回暂存目录
func (s *Store) Dir() string {
	return s.dir
}

// Save 将 src 完整写入一个新的临时文件后返回。
// declaredType 为空或为 application/octet-stream 时根据内容探测类型。
// 写入失败时不会留下残缺文件。
func (s *Store) Save(ctx context.Context, src io.Reader, filename, declaredType string) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, uuid.NewString()+safeExt(filename))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, types.NewIOError("failed to stage upload", err)
	}

	n, copyErr := io.Copy(f, &contextReader{ctx: ctx, r: src})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		s.remove(path)
		if copyErr != nil {
			return nil, types.NewIOError("failed to stage upload", copyErr)
		}
		return nil, types.NewIOError("failed to stage upload", closeErr)
	}

	u := &Upload{
		Path:     path,
		Filename: filepath.Base(filename),
		MIMEType: s.resolveMIME(path, declaredType),
		Size:     n,
	}

	if s.recorder != nil {
		s.recorder.RecordUploadStored(n)
	}
	s.logger.Debug("upload staged",
		zap.String("path", u.Path),
		zap.String("mime_type", u.MIMEType),
		zap.Int64("size", u.Size),
	)
	return u, nil
}

// Release 删除暂存文件。删除失败只记录日志，不向调用方返回错误。
func (s *Store) Release(u *Upload) {
	if u == nil || u.Path == "" {
		return
	}

	err := os.Remove(u.Path)
	ok := err == nil || errors.Is(err, fs.ErrNotExist)
	if !ok {
		s.logger.Warn("failed to delete upload",
			zap.String("path", u.Path),
			zap.Error(err),
		)
	}
	if s.recorder != nil {
		s.recorder.RecordUploadReleased(ok)
	}
}

func (s *Store) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to delete partial upload", zap.String("path", path), zap.Error(err))
	}
}

func (s *Store) resolveMIME(path, declared string) string {
	if mt := normalizeMIME(declared); mt != "" && mt != octetStream {
		return mt
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		s.logger.Debug("mime detection failed", zap.String("path", path), zap.Error(err))
		return octetStream
	}
	if mt := normalizeMIME(detected.String()); mt != "" {
		return mt
	}
	return octetStream
}

// normalizeMIME 去掉参数并转为小写，无法解析时返回空串
func normalizeMIME(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// safeExt 只保留简单的扩展名，避免客户端文件名影响暂存路径
func safeExt(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}

// contextReader 在 ctx 取消后停止读取
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
