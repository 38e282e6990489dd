/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

Successful responses serialize the payload directly, matching the shapes the
client synchronization layer expects. Error responses use a small envelope
carrying the business code and a user-friendly message.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

// ErrorResponse is the JSON structure returned to clients for failed requests.
type ErrorResponse struct {
	// Code is the business error code (see the errs package).
	Code int `json:"code"`

	// Message is the client-friendly error description.
	Message string `json:"message"`
}

// RespondJSON sets the Content-Type and sends the JSON-encoded payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends the payload as-is with HTTP 200 OK.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, data)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := ErrorResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
