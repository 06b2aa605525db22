package security

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewAuditor(t *testing.T) {
	tests := []struct {
		name    string
		logger  *slog.Logger
		enabled bool
	}{
		{
			name:    "enabled with logger",
			logger:  slog.Default(),
			enabled: true,
		},
		{
			name:    "disabled with logger",
			logger:  slog.Default(),
			enabled: false,
		},
		{
			name:    "enabled with nil logger",
			logger:  nil,
			enabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := NewAuditor(tt.logger, tt.enabled)
			if auditor == nil {
				t.Fatal("NewAuditor() returned nil")
			}
			if auditor.enabled != tt.enabled {
				t.Errorf("enabled = %v, want %v", auditor.enabled, tt.enabled)
			}
			if auditor.logger == nil {
				t.Error("logger should not be nil")
			}
		})
	}
}

func TestAuditor_LogEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tests := []struct {
		name    string
		enabled bool
		event   Event
		wantLog bool
	}{
		{
			name:    "enabled",
			enabled: true,
			event: Event{
				Type:      "test_event",
				UserID:    "user-123",
				ClientID:  "client-456",
				IPAddress: "192.168.1.1",
				Details:   map[string]any{"key": "value"},
			},
			wantLog: true,
		},
		{
			name:    "disabled",
			enabled: false,
			event: Event{
				Type:      "test_event",
				UserID:    "user-123",
				ClientID:  "client-456",
				IPAddress: "192.168.1.1",
			},
			wantLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			auditor := NewAuditor(logger, tt.enabled)

			auditor.LogEvent(tt.event)

			hasLog := buf.Len() > 0
			if hasLog != tt.wantLog {
				t.Errorf("LogEvent() logged = %v, want %v", hasLog, tt.wantLog)
			}
		})
	}
}

func TestAuditor_LogEvent_HashesUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	auditor := NewAuditor(logger, true)

	auditor.LogEvent(Event{
		Type:   "test_event",
		UserID: "alice@example.com",
	})

	logOutput := buf.String()
	if strings.Contains(logOutput, "alice@example.com") {
		t.Error("LogEvent() leaked raw user ID into log output")
	}
}

func TestAuditor_EventMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	auditor := NewAuditor(logger, true)

	tests := []struct {
		name      string
		log       func()
		wantEvent string
	}{
		{
			name:      "code issued",
			log:       func() { auditor.LogCodeIssued("user-123", "client-456", "192.168.1.1", "read write") },
			wantEvent: EventAuthorizationCodeIssued,
		},
		{
			name:      "code replay",
			log:       func() { auditor.LogCodeReplayDetected("user-123", "client-456", "192.168.1.1") },
			wantEvent: EventAuthorizationCodeReuseDetected,
		},
		{
			name:      "token issued",
			log:       func() { auditor.LogTokenIssued("user-123", "client-456", "192.168.1.1", "read write") },
			wantEvent: EventTokenIssued,
		},
		{
			name:      "token refreshed",
			log:       func() { auditor.LogTokenRefreshed("user-123", "client-456", "192.168.1.1") },
			wantEvent: EventTokenRefreshed,
		},
		{
			name:      "refresh reuse",
			log:       func() { auditor.LogRefreshReuseDetected("user-123", "client-456", "192.168.1.1", "fam-1") },
			wantEvent: EventRefreshTokenReuseDetected,
		},
		{
			name:      "token revoked",
			log:       func() { auditor.LogTokenRevoked("user-123", "client-456", "192.168.1.1", "refresh_token") },
			wantEvent: EventTokenRevoked,
		},
		{
			name:      "auth failure",
			log:       func() { auditor.LogAuthFailure("user-123", "client-456", "192.168.1.1", "invalid credentials") },
			wantEvent: EventAuthFailure,
		},
		{
			name:      "rate limit",
			log:       func() { auditor.LogRateLimitExceeded("192.168.1.1", "user-123") },
			wantEvent: EventRateLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			if !strings.Contains(buf.String(), tt.wantEvent) {
				t.Errorf("log output missing event type %q:\n%s", tt.wantEvent, buf.String())
			}
		})
	}
}

func Test_hashForLogging(t *testing.T) {
	if got := hashForLogging(""); got != "<empty>" {
		t.Errorf("hashForLogging(\"\") = %q, want %q", got, "<empty>")
	}

	got := hashForLogging("sensitive-data")
	if got == "" || got == "sensitive-data" {
		t.Errorf("hashForLogging() = %q, want truncated hash", got)
	}
	if len(got) != 16 {
		t.Errorf("hashForLogging() returned hash of length %d, want 16", len(got))
	}
}

func Test_hashForLogging_Deterministic(t *testing.T) {
	if hashForLogging("test-data") != hashForLogging("test-data") {
		t.Error("hashForLogging() should return same hash for same input")
	}
	if hashForLogging("data1") == hashForLogging("data2") {
		t.Error("hashForLogging() should return different hashes for different inputs")
	}
}
