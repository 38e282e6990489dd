/*
Package handler provides the HTTP handlers and routing setup for the ChatSync Server.

This file contains the read-side handlers over the store and the hub: message
history with pagination and search, the room directory, the read-receipt map,
and the member list of the requester's current room.
*/
package handler

import (
	"net/http"
	"strconv"

	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/resp"
)

const (
	// DefaultQueryLimit is the page size when the limit parameter is absent.
	DefaultQueryLimit = 50

	// MaxQueryLimit caps the page size a client can request.
	MaxQueryLimit = 100
)

// HandleQueryMessages serves GET /api/messages: a filtered, newest-first page
// of the retained log.
func HandleQueryMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		roomID := query.Get("roomId")

		limit := DefaultQueryLimit
		if raw := query.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = parsed
		}
		if limit > MaxQueryLimit {
			limit = MaxQueryLimit
		}

		offset := 0
		if raw := query.Get("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			offset = parsed
		}

		result := deps.Store.QueryMessages(roomID, limit, offset, query.Get("search"))
		resp.RespondSuccess(w, r, result)
	}
}

// HandleListRooms serves GET /api/rooms: every registered room name.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Store.Rooms())
	}
}

// HandleReadReceipts serves GET /api/read-receipts: the full receipt map.
func HandleReadReceipts(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Store.ReadReceipts())
	}
}

// HandleRoomUsers serves GET /api/users: the member display names of the
// requesting user's current room. A user without a live session gets an
// empty list.
func HandleRoomUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := jwt.GetClaimsFromContext(r)
		if claims == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		room, ok := deps.Hub.RoomOfUser(claims.Username)
		if !ok {
			resp.RespondSuccess(w, r, []string{})
			return
		}

		resp.RespondSuccess(w, r, deps.Hub.RoomMembers(room))
	}
}
