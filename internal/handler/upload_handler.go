/*
Package handler provides the HTTP handlers and routing setup for the ChatSync Server.

This file contains the file upload handler. Uploads are bearer-authenticated,
capped at 10MB, and restricted to an extension allow-list; the stored blob is
referenced by URL in subsequent send_file events.
*/
package handler

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/randx"
	"chatsync/internal/pkg/req"
	"chatsync/internal/pkg/resp"
)

const (
	// MaxUploadSizeMB is the maximum allowed upload size in megabytes.
	MaxUploadSizeMB = 10

	// MaxUploadSize is the maximum allowed upload size in bytes.
	MaxUploadSize int64 = MaxUploadSizeMB << 20
)

// allowedUploadExts is the set of permitted file extensions for uploads.
var allowedUploadExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".pdf":  {},
	".txt":  {},
}

// UploadResponse is the JSON response of POST /api/upload.
type UploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// HandleUpload accepts one multipart file, validates its size and extension,
// and stores it through the configured storage backend.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := req.SetupMultipart(w, r, MaxUploadSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileMissing))
			return
		}
		defer file.Close()

		if header.Size > MaxUploadSize {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileSizeTooLarge, MaxUploadSizeMB))
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if _, ok := allowedUploadExts[ext]; !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		storedName := randx.StoredFileName(ext)
		url, err := deps.Storage.Save(r.Context(), storedName, contentTypeOf(header), file)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, UploadResponse{
			Filename: header.Filename,
			URL:      url,
			Size:     header.Size,
			MimeType: contentTypeOf(header),
		})
	}
}

// contentTypeOf returns the declared content type of the part, defaulting to
// octet-stream.
func contentTypeOf(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
