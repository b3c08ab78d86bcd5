package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark bot configuration. ReceiveID is the chat or user the
// bot posts lifecycle updates to.
type Config struct {
	AppID         string
	AppSecret     string
	ReceiveIDType string // "chat_id", "open_id" or "email"
	ReceiveID     string
}

// Client wraps the Lark SDK client.
type Client struct {
	client *lark.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new Lark SDK client wrapper.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}
