package network

import (
	"net/http"
	"sync"
	"time"
)

var (
	// defaultClient is a shared HTTP client with optimized connection pooling
	defaultClient     *http.Client
	defaultClientOnce sync.Once
)

// ClientConfig holds configuration for HTTP client
type ClientConfig struct {
	Timeout               time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
	DisableKeepAlives     bool
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:               30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewClient creates a new HTTP client with optimized connection pooling
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = DefaultClientConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,

		DisableKeepAlives: config.DisableKeepAlives,

		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// GetDefaultClient returns a shared HTTP client with optimized settings.
// Safe for concurrent use; connections are reused across requests.
func GetDefaultClient() *http.Client {
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultClientConfig())
	})
	return defaultClient
}

// GetTransferClient returns an HTTP client tuned for whole-file audio
// transfers against presigned bucket URLs. The overall client timeout is
// left unset so long transfers are bounded by the per-request context
// instead of a fixed wall clock.
func GetTransferClient() *http.Client {
	config := DefaultClientConfig()
	config.Timeout = 0
	config.MaxIdleConnsPerHost = 50
	config.ResponseHeaderTimeout = 60 * time.Second

	return NewClient(config)
}
