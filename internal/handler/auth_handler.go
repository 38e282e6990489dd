/*
Package handler provides the HTTP handlers and routing setup for the ChatSync Server.

This file contains the login handler. Login is deliberately thin: any
non-empty username is accepted and exchanged for a signed bearer token, which
then gates the rest of the HTTP surface and the event channel.
*/
package handler

import (
	"net/http"
	"strings"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/req"
	"chatsync/internal/pkg/resp"
)

// LoginInput is the JSON body of POST /api/login.
type LoginInput struct {
	Username string `json:"username"`
}

// LoginResponse is the JSON response of POST /api/login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// HandleLogin issues a bearer token for the given username.
// An empty username is rejected with HTTP 400 before any state is touched.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		username := strings.TrimSpace(input.Username)
		if username == "" || len(username) > chat.MaxDisplayNameLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrDisplayNameInvalid, chat.MaxDisplayNameLen))
			return
		}

		token, err := jwt.GenerateToken(username, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, LoginResponse{
			Token:    token,
			Username: username,
		})
	}
}
