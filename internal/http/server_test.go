package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/services"
	"kakeibo/internal/session"
	"kakeibo/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sessions := session.NewMemoryStore(time.Hour)
	authSvc := auth.NewService(repo)
	summaryCache := cache.NewLRUCache[core.Summary](64, time.Minute)
	ledger := services.NewLedgerService(repo, nil, summaryCache)

	s := NewServer(":0", ledger, authSvc, sessions, time.Hour, false)
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return ts
}

// newClient returns a cookie-keeping client, one per simulated user.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func register(t *testing.T, client *http.Client, baseURL, email string) int64 {
	t.Helper()
	resp, body := doJSON(t, client, http.MethodPost, baseURL+"/api/auth/register",
		map[string]string{"email": email, "password": "hunter2hunter2"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", resp.StatusCode, body)
	}
	var out struct {
		UserID int64 `json:"userId"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.UserID
}

func createItem(t *testing.T, client *http.Client, baseURL string, body map[string]any) core.Item {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodPost, baseURL+"/api/items", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item status = %d, body %s", resp.StatusCode, raw)
	}
	var item core.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

func TestRegisterLogsUserIn(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)

	register(t, client, ts.URL, "alice@example.com")

	resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/auth/session", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	var out struct {
		Authenticated bool  `json:"authenticated"`
		UserID        int64 `json:"userId"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if !out.Authenticated || out.UserID == 0 {
		t.Fatalf("session = %+v, want authenticated", out)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)

	register(t, client, ts.URL, "alice@example.com")
	resp, _ := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/api/auth/register",
		map[string]string{"email": "alice@example.com", "password": "another-password"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	register(t, newClient(t), ts.URL, "alice@example.com")

	_, unknownBody := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"email": "nobody@example.com", "password": "whatever"})
	respWrong, wrongBody := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": "not-the-password"})

	if respWrong.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", respWrong.StatusCode)
	}
	if string(unknownBody) != string(wrongBody) {
		t.Fatalf("rejection bodies differ: %s vs %s", unknownBody, wrongBody)
	}
}

func TestItemsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/items", "/api/items/summary", "/api/items/1"} {
		resp, _ := doJSON(t, newClient(t), http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestItemLifecycle(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	item := createItem(t, client, ts.URL, map[string]any{
		"event": "Salary", "amount": 500000, "kind": "Income", "date": "2024-06-01",
	})
	if item.Event != "Salary" || item.Amount != 500000 || item.Kind != core.Income {
		t.Fatalf("created item = %+v", item)
	}

	url := fmt.Sprintf("%s/api/items/%d", ts.URL, item.ID)

	resp, raw := doJSON(t, client, http.MethodPut, url, map[string]any{
		"event": "Salary (adjusted)", "amount": 510000, "kind": "Income", "date": "2024-06-01",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, raw)
	}
	var updated core.Item
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("decode updated item: %v", err)
	}
	if updated.Amount != 510000 {
		t.Fatalf("updated amount = %d", updated.Amount)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, url, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodGet, url, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateItemValidation(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"event": "Lunch", "amount": 0, "kind": "Expense"}},
		{"negative amount", map[string]any{"event": "Lunch", "amount": -100, "kind": "Expense"}},
		{"empty event", map[string]any{"event": "  ", "amount": 100, "kind": "Expense"}},
		{"bad kind", map[string]any{"event": "Lunch", "amount": 100, "kind": "Transfer"}},
		{"bad date", map[string]any{"event": "Lunch", "amount": 100, "kind": "Expense", "date": "June 1st"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, client, http.MethodPost, ts.URL+"/api/items", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s, want 400", resp.StatusCode, body)
			}
		})
	}
}

func TestCrossUserIsolation(t *testing.T) {
	ts := newTestServer(t)

	alice := newClient(t)
	register(t, alice, ts.URL, "alice@example.com")
	item := createItem(t, alice, ts.URL, map[string]any{
		"event": "Rent", "amount": 120000, "kind": "Expense",
	})

	bob := newClient(t)
	register(t, bob, ts.URL, "bob@example.com")

	url := fmt.Sprintf("%s/api/items/%d", ts.URL, item.ID)

	if resp, _ := doJSON(t, bob, http.MethodGet, url, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", resp.StatusCode)
	}
	if resp, _ := doJSON(t, bob, http.MethodPut, url, map[string]any{
		"event": "Hijack", "amount": 1, "kind": "Expense",
	}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign update status = %d, want 404", resp.StatusCode)
	}
	if resp, _ := doJSON(t, bob, http.MethodDelete, url, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", resp.StatusCode)
	}

	resp, body := doJSON(t, bob, http.MethodGet, ts.URL+"/api/items", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var items []core.Item
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("bob sees %d foreign items", len(items))
	}
}

func TestListFilters(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	createItem(t, client, ts.URL, map[string]any{"event": "Salary", "amount": 500000, "kind": "Income", "date": "2024-01-15"})
	createItem(t, client, ts.URL, map[string]any{"event": "Rent", "amount": 120000, "kind": "Expense", "date": "2024-01-31"})
	createItem(t, client, ts.URL, map[string]any{"event": "Bonus", "amount": 80000, "kind": "Income", "date": "2024-02-01"})

	listEvents := func(query string) []string {
		resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/items"+query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list %q status = %d", query, resp.StatusCode)
		}
		var items []core.Item
		if err := json.Unmarshal(body, &items); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		events := make([]string, len(items))
		for i, item := range items {
			events[i] = item.Event
		}
		return events
	}

	if got := listEvents("?kind=Income"); len(got) != 2 {
		t.Fatalf("kind=Income events = %v", got)
	}
	// endDate covers its entire calendar day.
	if got := listEvents("?startDate=2024-01-01&endDate=2024-01-31"); len(got) != 2 {
		t.Fatalf("january events = %v", got)
	}
	if got := listEvents("?kind=all"); len(got) != 3 {
		t.Fatalf("kind=all events = %v", got)
	}

	resp, _ := doJSON(t, client, http.MethodGet, ts.URL+"/api/items?startDate=yesterday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date filter status = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/items?kind=Transfer", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad kind filter status = %d, want 400", resp.StatusCode)
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	getSummary := func(query string) core.Summary {
		resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/items/summary"+query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("summary status = %d", resp.StatusCode)
		}
		var s core.Summary
		if err := json.Unmarshal(body, &s); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		return s
	}

	if s := getSummary(""); s != (core.Summary{}) {
		t.Fatalf("empty ledger summary = %+v, want zeros", s)
	}

	createItem(t, client, ts.URL, map[string]any{"event": "Salary", "amount": 5000, "kind": "Income"})
	createItem(t, client, ts.URL, map[string]any{"event": "Bonus", "amount": 3000, "kind": "Income"})
	createItem(t, client, ts.URL, map[string]any{"event": "Rent", "amount": 2000, "kind": "Expense"})

	want := core.Summary{TotalIncome: 8000, TotalExpense: 2000, Balance: 6000}
	if s := getSummary(""); s != want {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	resp, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/items", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("list after logout status = %d, want 401", resp.StatusCode)
	}

	// Logging out again is harmless.
	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("second logout status = %d, want 204", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice@example.com")

	resp, _ := doJSON(t, client, http.MethodDelete, ts.URL+"/api/auth/login", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, client, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}
