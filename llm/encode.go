package llm

import (
	"os"

	"github.com/BaSui01/genbridge/internal/upload"
	"github.com/BaSui01/genbridge/types"
)

// EncodeText 把字符串原样包装为文本片段
func EncodeText(s string) Part {
	return Text(s)
}

// EncodeBinary 读取暂存文件的全部内容，并标注其声明的 MIME 类型
func EncodeBinary(u *upload.Upload) (Part, error) {
	if u == nil {
		return Part{}, types.NewError(types.ErrInternalError, "no upload to encode")
	}

	data, err := os.ReadFile(u.Path)
	if err != nil {
		return Part{}, types.NewIOError("failed to read upload", err)
	}

	return Binary(data, u.MIMEType), nil
}
