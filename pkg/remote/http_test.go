package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatsync/pkg/models"
)

func TestHTTPClientSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channels/messaging:1/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var m models.Message
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode body: %v", err)
		}
		m.Type = "regular"
		_ = json.NewEncoder(w).Encode(&m)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	got, err := c.SendMessage(context.Background(), &models.Message{ID: "m1", CID: "messaging:1", Text: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ID != "m1" || got.Type != "regular" {
		t.Fatalf("response = %+v", got)
	}
}

func TestHTTPClientClassifiesServerErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"code":9,"message":"slow down"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	err := c.DeleteMessage(context.Background(), "m1")
	re, ok := AsError(err)
	if !ok {
		t.Fatalf("error not classified: %v", err)
	}
	if re.StatusCode != 429 || re.Code != 9 || re.Message != "slow down" {
		t.Fatalf("error = %+v", re)
	}
	if re.Permanent() {
		t.Fatalf("rate limit classified permanent")
	}

	status = http.StatusBadRequest
	err = c.DeleteMessage(context.Background(), "m1")
	if !IsPermanent(err) {
		t.Fatalf("validation failure not permanent: %v", err)
	}
}

func TestHTTPClientWrapsTransportFailures(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1")
	err := c.DeleteMessage(context.Background(), "m1")
	if err == nil {
		t.Fatalf("expected a transport failure")
	}
	re, ok := AsError(err)
	if !ok || re.Code != CodeNetwork {
		t.Fatalf("transport failure not wrapped as network error: %v", err)
	}
	if IsPermanent(err) {
		t.Fatalf("network failure classified permanent")
	}
}
