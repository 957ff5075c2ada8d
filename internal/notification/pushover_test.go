package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSplitCredential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantToken   string
		wantUserKey string
		wantErr     bool
	}{
		{
			name:        "valid credential",
			input:       "azGDORePK8gMaC0QOYAMyEEuzJnyUi:uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
			wantToken:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
			wantUserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
		},
		{
			name:        "whitespace around halves",
			input:       "  azGDORePK8gMaC0QOYAMyEEuzJnyUi : uQiRzpo4DXghDmr9QzzfQu27cmVRsG ",
			wantToken:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
			wantUserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
		},
		{
			name:    "missing colon",
			input:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
			wantErr: true,
		},
		{
			name:    "token too short",
			input:   "short:uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
			wantErr: true,
		},
		{
			name:    "user key too short",
			input:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi:short",
			wantErr: true,
		},
		{
			name:    "extra colon in user key",
			input:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi:uQiRzpo4DXgh:Dmr9QzzfQu27",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			token, userKey, err := SplitCredential(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitCredential(%q) expected error, got token=%q userKey=%q", tt.input, token, userKey)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitCredential(%q) unexpected error: %v", tt.input, err)
			}
			if token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
			if userKey != tt.wantUserKey {
				t.Errorf("userKey = %q, want %q", userKey, tt.wantUserKey)
			}
		})
	}
}

func TestPushoverAdapterInitialize(t *testing.T) {
	t.Parallel()

	adapter := NewPushoverAdapter("", nil)

	if adapter.Ready() {
		t.Error("new adapter should not be ready")
	}

	err := adapter.Initialize(Credentials{Token: "short", UserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG"})
	if err == nil {
		t.Error("expected error for short token")
	}
	if adapter.Ready() {
		t.Error("adapter should stay unready after failed initialization")
	}

	err = adapter.Initialize(Credentials{
		Token:   "azGDORePK8:aC0QOYAMyEEuzJnyUi",
		UserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
	})
	if err == nil {
		t.Error("expected error for colon in token")
	}
	if adapter.Ready() {
		t.Error("adapter should reject a colon-bearing token")
	}

	err = adapter.Initialize(Credentials{
		Token:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
		UserKey: "uQiRzpo4DXgh:mr9QzzfQu27cmVRsG",
	})
	if err == nil {
		t.Error("expected error for colon in user key")
	}

	err = adapter.Initialize(Credentials{
		Token:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
		UserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.Ready() {
		t.Error("adapter should be ready after initialization")
	}

	// bad credentials must not clobber the stored pair
	if err := adapter.Initialize(Credentials{Token: "x", UserKey: "y"}); err == nil {
		t.Error("expected error for invalid pair")
	}
	if !adapter.Ready() {
		t.Error("adapter should keep previous credentials after failed initialization")
	}
}

func TestPushoverAdapterSend(t *testing.T) {
	t.Parallel()

	var received pushoverMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewPushoverAdapter(server.URL, nil)
	if err := adapter.Initialize(Credentials{
		Token:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
		UserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
	}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	msg := &Message{
		Title: "Netflix payment due soon",
		Body:  "Your Netflix subscription payment of $15.99 is due.",
		URL:   "https://example.com/dashboard",
		Sound: "pushover",
	}
	if err := adapter.Send(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if received.Token != "azGDORePK8gMaC0QOYAMyEEuzJnyUi" {
		t.Errorf("token = %q", received.Token)
	}
	if received.User != "uQiRzpo4DXghDmr9QzzfQu27cmVRsG" {
		t.Errorf("user = %q", received.User)
	}
	if received.Title != msg.Title {
		t.Errorf("title = %q, want %q", received.Title, msg.Title)
	}
	if received.Message != msg.Body {
		t.Errorf("message = %q, want %q", received.Message, msg.Body)
	}
	if received.URLTitle != "Open Dashboard" {
		t.Errorf("url_title = %q", received.URLTitle)
	}
}

func TestPushoverAdapterSendErrors(t *testing.T) {
	t.Parallel()

	t.Run("not initialized", func(t *testing.T) {
		t.Parallel()
		adapter := NewPushoverAdapter("http://127.0.0.1:0", nil)
		if err := adapter.Send(context.Background(), &Message{Title: "t"}); err == nil {
			t.Error("expected error from uninitialized adapter")
		}
	})

	t.Run("api error status", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":["user key is invalid"]}`))
		}))
		defer server.Close()

		adapter := NewPushoverAdapter(server.URL, nil)
		if err := adapter.Initialize(Credentials{
			Token:   "azGDORePK8gMaC0QOYAMyEEuzJnyUi",
			UserKey: "uQiRzpo4DXghDmr9QzzfQu27cmVRsG",
		}); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}
		if err := adapter.Send(context.Background(), &Message{Title: "t", Body: "b"}); err == nil {
			t.Error("expected error for 400 response")
		}
	})
}
