// Package fixtures 提供上传接口测试使用的样例文件内容。
package fixtures

// JPEG 是可被内容嗅探识别为 image/jpeg 的最小文件头
var JPEG = []byte{
	0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0xFF, 0xD9,
}

// PNG 是 PNG 文件签名加一个空的 IHDR 起始块
var PNG = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
}

// PDF 是最小的 PDF 文档片段
var PDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// WAV 是 44 字节 RIFF/WAVE 文件头，数据段为空
var WAV = []byte{
	'R', 'I', 'F', 'F', 0x24, 0x00, 0x00, 0x00, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x44, 0xAC, 0x00, 0x00, 0x88, 0x58, 0x01, 0x00, 0x02, 0x00, 0x10, 0x00,
	'd', 'a', 't', 'a', 0x00, 0x00, 0x00, 0x00,
}

// PlainText 是普通文本文件内容
var PlainText = []byte("quarterly report\nrevenue up 4%\n")
