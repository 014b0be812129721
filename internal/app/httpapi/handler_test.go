package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/bro-Nik/portfolio-backend/internal/app"
	"github.com/bro-Nik/portfolio-backend/internal/logging"
)

func marshal(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(data)
}

func request(method, path string, body *bytes.Buffer, userID string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req = req.WithContext(logging.WithUserID(req.Context(), userID))
	return req
}

func do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHandlerLifecycle(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	// create a portfolio and a wallet
	resp := do(handler, request(http.MethodPost, "/portfolios", marshal(t, map[string]any{
		"name":   "Main",
		"market": "crypto",
	}), "u1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create portfolio: expected 201, got %d: %s", resp.Code, resp.Body)
	}
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal portfolio: %v", err)
	}

	resp = do(handler, request(http.MethodPost, "/wallets", marshal(t, map[string]any{
		"name": "Binance",
	}), "u1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create wallet: expected 201, got %d: %s", resp.Code, resp.Body)
	}
	var w struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &w); err != nil {
		t.Fatalf("unmarshal wallet: %v", err)
	}

	// record a buy
	resp = do(handler, request(http.MethodPost, "/transactions", marshal(t, map[string]any{
		"type":          "Buy",
		"ticker_id":     "btc",
		"ticker2_id":    "usdt",
		"quantity":      2,
		"quantity2":     100,
		"price":         50,
		"ticker2_price": 1,
		"portfolio_id":  p.ID,
		"wallet_id":     w.ID,
	}), "u1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", resp.Code, resp.Body)
	}
	var result struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
		PortfolioAssets []json.RawMessage `json:"portfolio_assets"`
		WalletAssets    []json.RawMessage `json:"wallet_assets"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.PortfolioAssets) != 2 || len(result.WalletAssets) != 2 {
		t.Fatalf("expected 2+2 affected assets, got %d+%d", len(result.PortfolioAssets), len(result.WalletAssets))
	}

	// portfolio list reflects the holdings
	resp = do(handler, request(http.MethodGet, "/portfolios", nil, "u1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("list portfolios: expected 200, got %d", resp.Code)
	}
	var portfolios []struct {
		Assets []struct {
			ID       string `json:"id"`
			TickerID string `json:"ticker_id"`
			Quantity string `json:"quantity"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &portfolios); err != nil {
		t.Fatalf("unmarshal portfolios: %v", err)
	}
	if len(portfolios) != 1 || len(portfolios[0].Assets) != 2 {
		t.Fatalf("expected 1 portfolio with 2 assets, got %+v", portfolios)
	}

	var assetID string
	for _, a := range portfolios[0].Assets {
		if a.TickerID == "btc" {
			assetID = a.ID
			if a.Quantity != "2" {
				t.Errorf("btc quantity = %s, want 2", a.Quantity)
			}
		}
	}
	if assetID == "" {
		t.Fatal("btc asset not found in portfolio list")
	}

	// asset detail with distribution and transactions
	resp = do(handler, request(http.MethodGet, "/portfolios/assets/"+assetID, nil, "u1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("asset detail: expected 200, got %d: %s", resp.Code, resp.Body)
	}
	var detail struct {
		Transactions []json.RawMessage `json:"transactions"`
		Distribution struct {
			Portfolios []struct {
				Share string `json:"percentage_of_total"`
			} `json:"portfolios"`
		} `json:"distribution"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if len(detail.Transactions) != 1 {
		t.Fatalf("expected 1 transaction in detail, got %d", len(detail.Transactions))
	}
	if len(detail.Distribution.Portfolios) != 1 || detail.Distribution.Portfolios[0].Share != "100" {
		t.Fatalf("unexpected distribution: %+v", detail.Distribution)
	}

	// used tickers
	resp = do(handler, request(http.MethodGet, "/internal/tickers", nil, "u1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("used tickers: expected 200, got %d", resp.Code)
	}
	var tickers []string
	if err := json.Unmarshal(resp.Body.Bytes(), &tickers); err != nil {
		t.Fatalf("unmarshal tickers: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("expected 2 used tickers, got %v", tickers)
	}

	// deleting the transaction reverses holdings
	resp = do(handler, request(http.MethodDelete, "/transactions/"+result.Transaction.ID, nil, "u1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("delete transaction: expected 200, got %d: %s", resp.Code, resp.Body)
	}
}

func TestDuplicatePortfolioName(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	body := map[string]any{"name": "Main"}
	resp := do(handler, request(http.MethodPost, "/portfolios", marshal(t, body), "u1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	resp = do(handler, request(http.MethodPost, "/portfolios", marshal(t, body), "u1"))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body)
	}
}

func TestForeignPortfolioIsNotFound(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	resp := do(handler, request(http.MethodPost, "/portfolios", marshal(t, map[string]any{"name": "Main"}), "u1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp = do(handler, request(http.MethodGet, "/portfolios/"+p.ID, nil, "u2"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign portfolio, got %d", resp.Code)
	}
}

func TestUnknownTransactionKind(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	resp := do(handler, request(http.MethodPost, "/portfolios", marshal(t, map[string]any{"name": "Main"}), "u1"))
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp = do(handler, request(http.MethodPost, "/transactions", marshal(t, map[string]any{
		"type":         "Swap",
		"ticker_id":    "btc",
		"quantity":     1,
		"portfolio_id": p.ID,
	}), "u1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d: %s", resp.Code, resp.Body)
	}
}

func TestUnknownPayloadFieldRejected(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	resp := do(handler, request(http.MethodPost, "/portfolios", marshal(t, map[string]any{
		"name":       "Main",
		"unexpected": true,
	}), "u1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.Code)
	}
}

func TestHealthz(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	resp := do(handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	application := app.New(app.Stores{}, app.Options{})
	handler := NewHandler(application)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/portfolios"},
		{http.MethodGet, "/transactions"},
		{http.MethodPost, "/internal/tickers"},
	} {
		resp := do(handler, request(tc.method, tc.path, nil, "u1"))
		if resp.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.path, resp.Code)
		}
	}
}
