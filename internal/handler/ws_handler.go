/*
Package handler provides the HTTP handlers and routing setup for the ChatSync Server.

This file contains the WebSocket upgrade handler. The bearer token is verified
before the upgrade; a connection with a missing or invalid token is rejected
with HTTP 401 and no session is ever created for it.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
	"chatsync/internal/pkg/resp"
)

// HandleWebSocket verifies the bearer token, upgrades the connection, and
// starts the client pumps. The session itself is created later, when the
// connection sends user_join.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := jwt.TokenFromRequest(r)
		if tokenString == "" {
			logx.Warn("WebSocket connection rejected: missing bearer token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		claims, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket connection rejected: invalid token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := chat.NewClient(deps.Hub, conn, connID)

		logx.Info("WebSocket connection established",
			"conn_id", connID,
			"username", claims.Username,
		)

		go client.WritePump()
		client.ReadPump()
	}
}
