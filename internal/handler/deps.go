package handler

import (
	"stagechat/internal/app/chat"
	"stagechat/internal/app/storage"
	"stagechat/internal/configs"
)

type AppDeps struct {
	Hub      *chat.Hub
	ChatDeps *chat.Deps
	Config   *configs.AppConfig

	// ImageHost is nil when no bucket is configured; avatar uploads
	// respond with ErrStorageDisabled in that case.
	ImageHost storage.ImageHost
}
