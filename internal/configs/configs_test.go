package configs

import (
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET",
		"DEFAULT_ROOM", "MESSAGE_RETENTION_CAP", "DATA_FILE",
		"DATABASE_URL", "UPLOAD_DIR", "S3_BUCKET_NAME",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DefaultRoom != "general" {
		t.Errorf("DefaultRoom = %q, want general", cfg.DefaultRoom)
	}
	if cfg.RetentionCap != DefaultRetentionCap {
		t.Errorf("RetentionCap = %d, want %d", cfg.RetentionCap, DefaultRetentionCap)
	}
	if cfg.DataFile == "" || cfg.UploadDir == "" {
		t.Errorf("DataFile = %q UploadDir = %q, want non-empty defaults", cfg.DataFile, cfg.UploadDir)
	}
	if cfg.JWTSecret == "" {
		t.Error("JWTSecret empty, want the development fallback")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "non-numeric port",
			env:  map[string]string{"PORT": "eighty"},
			want: "PORT",
		},
		{
			name: "privileged port",
			env:  map[string]string{"PORT": "80"},
			want: "port number",
		},
		{
			name: "non-numeric retention cap",
			env:  map[string]string{"MESSAGE_RETENTION_CAP": "many"},
			want: "MESSAGE_RETENTION_CAP",
		},
		{
			name: "zero retention cap",
			env:  map[string]string{"MESSAGE_RETENTION_CAP": "0"},
			want: "at least 1",
		},
		{
			name: "missing secret outside development",
			env:  map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": ""},
			want: "JWT_SECRET",
		},
		{
			name: "bucket without endpoint",
			env:  map[string]string{"S3_BUCKET_NAME": "chat-uploads"},
			want: "S3_ENDPOINT",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{
				"ENVIRONMENT", "PORT", "JWT_SECRET",
				"MESSAGE_RETENTION_CAP", "S3_BUCKET_NAME", "S3_ENDPOINT",
			} {
				t.Setenv(key, "")
			}
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoadConfigParsesAllowedOrigins(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", " https://chat.example.com , https://admin.example.com ,,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := []string{"https://chat.example.com", "https://admin.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}
