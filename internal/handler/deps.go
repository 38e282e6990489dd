package handler

import (
	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/configs"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Hub     *chat.Hub
	Store   *store.Store
	Storage storage.Service
	Config  *configs.AppConfig
}
