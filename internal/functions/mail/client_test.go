package mail

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(serverURL string) (*Client, *[]time.Duration) {
	client := NewClient("test-key", "broker@broker.example", serverURL)
	var slept []time.Duration
	client.sleep = func(d time.Duration) {
		slept = append(slept, d)
	}
	return client, &slept
}

func TestClient_Send(t *testing.T) {
	var received sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("path = %s, want /emails", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(sendResponse{ID: "email-123"})
	}))
	defer server.Close()

	client, slept := newTestClient(server.URL)
	result, err := client.Send(Message{
		To:      "jordan@acme.example",
		Subject: "Re: Office space questions",
		Body:    "Hi Jordan,\nYes, parking is included.\nBest, Alex",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if result.MessageID != "email-123" {
		t.Errorf("message id = %s", result.MessageID)
	}
	if len(received.To) != 1 || received.To[0] != "jordan@acme.example" {
		t.Errorf("to = %v", received.To)
	}
	if received.From != "broker@broker.example" {
		t.Errorf("from = %s, want the configured default", received.From)
	}
	if !strings.Contains(received.HTML, "Yes, parking is included.<br>") {
		t.Errorf("body not formatted to HTML: %q", received.HTML)
	}
	if len(*slept) != 0 {
		t.Errorf("successful first attempt must not back off, slept %v", *slept)
	}
}

func TestClient_SendRetriesWithBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(sendResponse{ID: "email-456"})
	}))
	defer server.Close()

	client, slept := newTestClient(server.URL)
	result, err := client.Send(Message{To: "jordan@acme.example", Subject: "Hi", Body: "Body"})
	if err != nil {
		t.Fatalf("send failed after retries: %v", err)
	}
	if result.MessageID != "email-456" {
		t.Errorf("message id = %s", result.MessageID)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
}

func TestClient_SendExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	_, err := client.Send(Message{To: "jordan@acme.example", Subject: "Hi", Body: "Body"})
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("err = %v, want ErrSendFailed", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestClient_SendInvalidRecipientNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(sendResponse{Error: &struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}{Name: "validation_error", Message: "Invalid `to` field"}})
	}))
	defer server.Close()

	client, slept := newTestClient(server.URL)
	_, err := client.Send(Message{To: "not-an-address", Subject: "Hi", Body: "Body"})
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("err = %v, want ErrInvalidRecipient", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, address failures must not be retried", attempts)
	}
	if len(*slept) != 0 {
		t.Errorf("no backoff expected, slept %v", *slept)
	}
}

func TestClient_SendInvalidRecipientByMessage(t *testing.T) {
	// Some providers report address failures with a 400 and a message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendResponse{Error: &struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}{Name: "validation_error", Message: "invalid email address"}})
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	_, err := client.Send(Message{To: "nope", Subject: "Hi", Body: "Body"})
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("err = %v, want ErrInvalidRecipient", err)
	}
}

func TestClient_SendNotConfigured(t *testing.T) {
	client := NewClient("", "", "http://localhost:0")
	if _, err := client.Send(Message{To: "a@b.c", Subject: "Hi", Body: "Body"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestClient_SendExplicitFromOverridesDefault(t *testing.T) {
	var received sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(sendResponse{ID: "email-789"})
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	if _, err := client.Send(Message{To: "a@b.c", From: "other@broker.example", Subject: "Hi", Body: "Body"}); err != nil {
		t.Fatal(err)
	}
	if received.From != "other@broker.example" {
		t.Errorf("from = %s, want the explicit override", received.From)
	}
}

func TestFormatBody(t *testing.T) {
	html := FormatBody("Hi Jordan,\n  \nBest, Alex")
	if !strings.Contains(html, "Hi Jordan,<br><br>Best, Alex") {
		t.Errorf("lines not joined with breaks: %q", html)
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Error("output must be a full HTML document")
	}
}
