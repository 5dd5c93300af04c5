//go:build !integration

package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/infra/web"
	"telegram-onboarding-bot/internal/usecase"
)

type memRecords struct {
	mu   sync.Mutex
	byID map[int64]*model.UserRecord
}

func newMemRecords() *memRecords { return &memRecords{byID: make(map[int64]*model.UserRecord)} }

func (m *memRecords) Exists(ctx context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[tgID]
	return ok, nil
}

func (m *memRecords) Upsert(ctx context.Context, rec *model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.TelegramID] = rec
	return nil
}

func (m *memRecords) Append(ctx context.Context, rec *model.UserRecord) error {
	return m.Upsert(ctx, rec)
}

func (m *memRecords) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.UserRecord, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *web.AuthManager, *memRecords) {
	t.Helper()
	l := zerolog.Nop()
	records := newMemRecords()

	rec, err := model.NewUserRecord("", 42, "alice", "Canada")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Interests = []string{"feedback"}
	rec.Platforms = []string{"Flutter"}
	rec.CompletedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_ = records.Append(context.Background(), rec)

	auth := web.NewAuthManager("test-secret", 30*time.Minute)
	srv := web.NewServer(records, usecase.NewAdminUseCase(records, &l), auth, &l)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, auth, records
}

func TestServer_Health(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_RecordsRequiresAuth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/records")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestServer_RecordsWithToken(t *testing.T) {
	ts, auth, _ := newTestServer(t)

	tok, err := auth.Mint()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/records", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count   int `json:"count"`
		Records []struct {
			TelegramID int64  `json:"telegram_id"`
			Country    string `json:"country"`
		} `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Records) != 1 {
		t.Fatalf("expected one record, got %+v", body)
	}
	if body.Records[0].TelegramID != 42 || body.Records[0].Country != "Canada" {
		t.Errorf("unexpected record: %+v", body.Records[0])
	}
}

func TestServer_Export(t *testing.T) {
	ts, auth, _ := newTestServer(t)

	tok, err := auth.Mint()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/records/export", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("unexpected content type %q", ct)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "Telegram ID") || !strings.Contains(buf.String(), "Canada") {
		t.Errorf("unexpected export body: %q", buf.String())
	}
}

func TestServer_BadToken(t *testing.T) {
	ts, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/records", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
