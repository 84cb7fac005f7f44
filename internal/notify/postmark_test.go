package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auth-service/internal/logging"
	"auth-service/internal/user/domain"
)

var (
	sender    = domain.MustParseEmail("no-reply@example.com")
	recipient = domain.MustParseEmail("alice@example.com")
)

func TestNewPostmarkClient_Defaults(t *testing.T) {
	client := NewPostmarkClient("token", "", sender, 0)
	if client.BaseURL != defaultPostmarkURL {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}
	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient.Timeout = %v, want %v", client.HTTPClient.Timeout, defaultTimeout)
	}
	if NewPostmarkClient("token", "", sender, 3*time.Second).HTTPClient.Timeout != 3*time.Second {
		t.Error("custom timeout not applied")
	}
}

func TestPostmarkSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want %q", r.Method, http.MethodPost)
		}
		if r.URL.Path != "/email" {
			t.Errorf("path = %q, want /email", r.URL.Path)
		}
		if r.Header.Get("X-Postmark-Server-Token") != "test-token" {
			t.Errorf("X-Postmark-Server-Token = %q, want test-token", r.Header.Get("X-Postmark-Server-Token"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["From"] != "no-reply@example.com" || body["To"] != "alice@example.com" {
			t.Errorf("From/To = %q/%q", body["From"], body["To"])
		}
		if body["Subject"] != "2FA Code" || body["TextBody"] != "Your code is 123456" {
			t.Errorf("Subject/TextBody = %q/%q", body["Subject"], body["TextBody"])
		}
		if body["MessageStream"] != "outbound" {
			t.Errorf("MessageStream = %q, want outbound", body["MessageStream"])
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK"}`))
	}))
	defer server.Close()

	client := NewPostmarkClient("test-token", server.URL, sender, time.Second)
	if err := client.Send(context.Background(), recipient, "2FA Code", "Your code is 123456"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestPostmarkSend_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer server.Close()

	client := NewPostmarkClient("test-token", server.URL, sender, time.Second)
	err := client.Send(context.Background(), recipient, "s", "b")
	if err == nil {
		t.Fatal("Send should fail on 422")
	}
	if !strings.Contains(err.Error(), "status=422") {
		t.Errorf("error = %q, want status in message", err.Error())
	}
}

func TestPostmarkSend_NoToken(t *testing.T) {
	client := NewPostmarkClient("", "http://127.0.0.1:1", sender, time.Second)
	if err := client.Send(context.Background(), recipient, "s", "b"); err == nil {
		t.Fatal("Send without token should fail")
	}
}

func TestPostmarkSend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewPostmarkClient("test-token", server.URL, sender, 20*time.Millisecond)
	if err := client.Send(context.Background(), recipient, "s", "b"); err == nil {
		t.Fatal("Send should time out")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logging.NewJSON(&buf, "info"))
	if err := n.Send(context.Background(), recipient, "2FA Code", "Your code is 123456"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "alice@example.com") || !strings.Contains(out, "2FA Code") {
		t.Errorf("log output missing fields: %s", out)
	}
}
