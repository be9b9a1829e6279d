package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// 上游连接池参数，单进程只与一个模型服务商通信
const (
	maxIdleConnsPerHost = 32
	idleConnTimeout     = 90 * time.Second
	handshakeTimeout    = 10 * time.Second
	dialTimeout         = 30 * time.Second
)

// DefaultTLSConfig 返回加固后的 TLS 配置：TLS 1.2+，仅 AEAD 密码套件
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// UpstreamTransport 返回访问模型服务商使用的 Transport，遵循 HTTPS_PROXY 等代理变量
func UpstreamTransport() *http.Transport {
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleConnsPerHost,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   handshakeTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// UpstreamClient 返回模型服务商 SDK 使用的 http.Client。
// 不设整体超时，单次调用的期限由推理分发器的 context 控制。
func UpstreamClient() *http.Client {
	return &http.Client{
		Transport: UpstreamTransport(),
	}
}
