package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/dynmarket/internal/ledger"
	"github.com/talgya/dynmarket/internal/market"
	"github.com/talgya/dynmarket/internal/pricing"
	"github.com/talgya/dynmarket/internal/sched"
	"github.com/talgya/dynmarket/internal/store/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	catalog := market.NewCatalog(st, nil)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	model := pricing.DefaultModel()
	bank := ledger.NewBank()
	vault := ledger.NewVault(0)

	return &Server{
		Catalog:  catalog,
		Engine:   market.NewEngine(catalog, model, bank, vault, nil),
		Sched:    sched.New(catalog, model, st, sched.DefaultConfig(), nil),
		Gateway:  st,
		Bank:     bank,
		Vault:    vault,
		Model:    model,
		AdminKey: "secret",
		started:  time.Now(),
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["items"].(float64) == 0 {
		t.Error("status reports zero items for seeded catalog")
	}
}

func TestItemDetailResolvesIDAndKind(t *testing.T) {
	s := newTestServer(t)
	for _, ref := range []string{"stone", "iron_pickaxe"} {
		rec := httptest.NewRecorder()
		s.handleItemDetail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/item/"+ref, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("item %q: status = %d, want 200", ref, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	s.handleItemDetail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/item/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown item: status = %d, want 404", rec.Code)
	}
}

func TestAdminOnly(t *testing.T) {
	s := newTestServer(t)
	handler := s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		method string
		auth   string
		want   int
	}{
		{"get rejected", http.MethodGet, "Bearer secret", http.StatusMethodNotAllowed},
		{"no token", http.MethodPost, "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "Bearer wrong", http.StatusUnauthorized},
		{"good token", http.MethodPost, "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/decay", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t)
	s.AdminKey = ""
	handler := s.adminOnly(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decay", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 with admin disabled", rec.Code)
	}
}

func TestTradeEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.Bank.Deposit("alice", 1000)

	rec := httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade",
		strings.NewReader(`{"actor":"alice","item":"stone","direction":"BUY","amount":5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("trade status = %d: %s", rec.Code, rec.Body.String())
	}

	var receipt market.Receipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Amount != 5 || receipt.Kind != "stone" {
		t.Errorf("receipt = %+v, want 5 stone", receipt)
	}
	if got := s.Vault.Count("alice", "stone"); got != 5 {
		t.Errorf("holdings = %d, want 5", got)
	}
}

func TestTradeEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad direction", `{"actor":"a","item":"stone","direction":"HOLD","amount":1}`, http.StatusBadRequest},
		{"missing actor", `{"item":"stone","direction":"BUY","amount":1}`, http.StatusBadRequest},
		{"unknown item", `{"actor":"a","item":"nope","direction":"BUY","amount":1}`, http.StatusNotFound},
		{"no funds", `{"actor":"a","item":"stone","direction":"BUY","amount":1}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade", strings.NewReader(tc.body)))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestTradeEndpointThrottled(t *testing.T) {
	s := newTestServer(t)
	s.Throttle = NewThrottle(1, time.Minute)
	s.Bank.Deposit("alice", 1000)

	body := `{"actor":"alice","item":"stone","direction":"BUY","amount":1}`
	rec := httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("first trade status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade", strings.NewReader(body)))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second trade status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled response missing Retry-After")
	}
}

func TestAdjustEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleAdjust(rec, httptest.NewRequest(http.MethodPost, "/api/v1/adjust",
		strings.NewReader(`{"item":"stone","buy_price":8,"sell_price":4}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("price adjust status = %d: %s", rec.Code, rec.Body.String())
	}
	var it market.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &it); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if it.BuyPrice != 8 || it.SellPrice != 4 {
		t.Errorf("prices = %v/%v, want 8/4", it.BuyPrice, it.SellPrice)
	}

	rec = httptest.NewRecorder()
	s.handleAdjust(rec, httptest.NewRequest(http.MethodPost, "/api/v1/adjust",
		strings.NewReader(`{"item":"stone","stock":77}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("stock adjust status = %d", rec.Code)
	}
	got, _ := s.Catalog.FindByID("stone")
	if got.Stock != 77 {
		t.Errorf("stock = %d, want 77", got.Stock)
	}

	rec = httptest.NewRecorder()
	s.handleAdjust(rec, httptest.NewRequest(http.MethodPost, "/api/v1/adjust",
		strings.NewReader(`{"item":"stone","stock_delta":-80}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("delta adjust status = %d", rec.Code)
	}
	got, _ = s.Catalog.FindByID("stone")
	if got.Stock != 0 {
		t.Errorf("stock = %d, want floored at 0", got.Stock)
	}
}

func TestAdjustEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing item", `{"buy_price":1,"sell_price":1}`, http.StatusBadRequest},
		{"half a price pair", `{"item":"stone","buy_price":5}`, http.StatusBadRequest},
		{"unknown item", `{"item":"nope","stock":5}`, http.StatusNotFound},
		{"negative stock", `{"item":"stone","stock":-1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleAdjust(rec, httptest.NewRequest(http.MethodPost, "/api/v1/adjust", strings.NewReader(tc.body)))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestFundEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleFund(rec, httptest.NewRequest(http.MethodPost, "/api/v1/fund",
		strings.NewReader(`{"actor":"alice","funds":250,"kind":"bread","amount":8}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("fund status = %d", rec.Code)
	}
	if got := s.Bank.Balance("alice"); got != 250 {
		t.Errorf("balance = %v, want 250", got)
	}
	if got := s.Vault.Count("alice", "bread"); got != 8 {
		t.Errorf("holdings = %d, want 8", got)
	}
}
