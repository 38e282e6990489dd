package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/message"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/configs"
	"chatsync/internal/pkg/auth/jwt"
)

const testSecret = "test-secret"

type testEnv struct {
	deps   *AppDeps
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	backend, err := store.NewFileBackend(filepath.Join(dir, "doc.json"))
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	st, err := store.New(context.Background(), backend, configs.DefaultRetentionCap, "general")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	uploadDir := filepath.Join(dir, "uploads")
	svc, err := storage.NewService(storage.ServiceConfig{UploadDir: uploadDir})
	if err != nil {
		t.Fatalf("storage.NewService: %v", err)
	}

	deps := &AppDeps{
		Hub:     chat.NewHub(st),
		Store:   st,
		Storage: svc,
		Config: &configs.AppConfig{
			Environment:  "development",
			Port:         8080,
			JWTSecret:    testSecret,
			DefaultRoom:  "general",
			RetentionCap: configs.DefaultRetentionCap,
			UploadDir:    uploadDir,
		},
	}

	return &testEnv{deps: deps, router: Router(deps)}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func bearerToken(t *testing.T, username string) string {
	t.Helper()

	token, err := jwt.GenerateToken(username, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var body LoginResponse
	decodeBody(t, rec, &body)
	if body.Username != "alice" || body.Token == "" {
		t.Fatalf("login response = %+v, want alice with a token", body)
	}

	claims, err := jwt.ParseToken(body.Token, testSecret)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("token username = %q, want alice", claims.Username)
	}
}

func TestLoginRejectsInvalidUsername(t *testing.T) {
	env := newTestEnv(t)

	for name, payload := range map[string]string{
		"empty":      `{"username":""}`,
		"whitespace": `{"username":"   "}`,
		"too long":   `{"username":"` + strings.Repeat("a", chat.MaxDisplayNameLen+1) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			rec := env.do(t, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}

			var body struct {
				Code int `json:"code"`
			}
			decodeBody(t, rec, &body)
			if body.Code == 0 {
				t.Errorf("error body %s carries no business code", rec.Body.String())
			}
		})
	}
}

func TestMessagesRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	if rec := env.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with garbage token = %d, want 401", rec.Code)
	}
}

func TestQueryMessagesPagesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, body := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		msg := message.Message{
			ID:        message.NewID(at),
			SenderID:  "conn-alice",
			Sender:    "alice",
			RoomID:    "general",
			Body:      body,
			Kind:      message.KindText,
			Timestamp: at,
		}
		if err := env.deps.Store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/messages?roomId=general&limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Messages []struct {
			Body string `json:"body"`
		} `json:"messages"`
		Total   int  `json:"total"`
		HasMore bool `json:"hasMore"`
	}
	decodeBody(t, rec, &body)

	if body.Total != 3 || !body.HasMore {
		t.Errorf("total = %d hasMore = %v, want 3 and true", body.Total, body.HasMore)
	}
	if len(body.Messages) != 2 || body.Messages[0].Body != "third" || body.Messages[1].Body != "second" {
		t.Errorf("page = %+v, want [third second]", body.Messages)
	}
}

func TestQueryMessagesRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)
	token := bearerToken(t, "alice")

	for _, target := range []string{
		"/api/messages?limit=abc",
		"/api/messages?limit=-1",
		"/api/messages?offset=abc",
		"/api/messages?offset=-1",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestListRoomsIncludesDefault(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var rooms []string
	decodeBody(t, rec, &rooms)

	found := false
	for _, room := range rooms {
		if room == "general" {
			found = true
		}
	}
	if !found {
		t.Errorf("rooms = %v, want general present", rooms)
	}
}

func TestRoomUsersWithoutSessionIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var members []string
	decodeBody(t, rec, &members)
	if len(members) != 0 {
		t.Errorf("members = %v, want empty list for a user with no live session", members)
	}
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadStoresFileLocally(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "file", "notes.txt", "hello upload")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	decodeBody(t, rec, &resp)

	if resp.Filename != "notes.txt" {
		t.Errorf("filename = %q, want notes.txt", resp.Filename)
	}
	if !strings.HasPrefix(resp.URL, "/uploads/") || !strings.HasSuffix(resp.URL, ".txt") {
		t.Errorf("url = %q, want /uploads/<generated>.txt", resp.URL)
	}

	stored := filepath.Join(env.deps.Config.UploadDir, strings.TrimPrefix(resp.URL, "/uploads/"))
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "hello upload" {
		t.Errorf("stored content = %q, want the uploaded bytes", data)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "file", "payload.exe", "nope")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))

	rec := env.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "file", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	if rec := env.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
