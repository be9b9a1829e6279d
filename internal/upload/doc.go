// Package upload 实现请求级别的临时上传存储。
//
// 每个上传写入暂存目录下以 UUID 命名的独立文件，并发请求之间互不冲突，
// 无需加锁。调用方在 Save 成功后应立即 defer Release，保证所有退出路径
// 都会删除临时文件。
package upload
