// Package httpapi exposes the REST surface of the application services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/bro-Nik/portfolio-backend/internal/app"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/metrics"
	"github.com/bro-Nik/portfolio-backend/internal/app/services/portfolios"
	"github.com/bro-Nik/portfolio-backend/internal/app/services/transactions"
	"github.com/bro-Nik/portfolio-backend/internal/app/services/wallets"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
	"github.com/bro-Nik/portfolio-backend/internal/logging"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/portfolios", h.portfolios)
	mux.HandleFunc("/portfolios/", h.portfolioResources)
	mux.HandleFunc("/wallets", h.wallets)
	mux.HandleFunc("/wallets/", h.walletResources)
	mux.HandleFunc("/transactions", h.transactions)
	mux.HandleFunc("/transactions/", h.transactionResources)
	mux.HandleFunc("/internal/tickers", h.usedTickers)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

type portfolioPayload struct {
	Name    string `json:"name"`
	Market  string `json:"market"`
	Comment string `json:"comment"`
}

func (h *handler) portfolios(w http.ResponseWriter, r *http.Request) {
	userID := logging.GetUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Portfolios.List(r.Context(), userID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload portfolioPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p, err := h.app.Portfolios.Create(r.Context(), userID, payload.Name, payload.Market, payload.Comment)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, p)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) portfolioResources(w http.ResponseWriter, r *http.Request) {
	userID := logging.GetUserID(r.Context())

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/portfolios"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// /portfolios/assets/{assetID} is the asset detail endpoint.
	if parts[0] == "assets" {
		if len(parts) != 2 || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		detail, err := h.app.Portfolios.Detail(r.Context(), userID, parts[1])
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}

	portfolioID := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := h.app.Portfolios.Get(r.Context(), userID, portfolioID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)

		case http.MethodPut:
			var payload portfolioPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			p, err := h.app.Portfolios.Update(r.Context(), userID, portfolioID, payload.Name, payload.Market, payload.Comment)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)

		case http.MethodDelete:
			if err := h.app.Portfolios.Delete(r.Context(), userID, portfolioID); err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if parts[1] != "assets" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch len(parts) {
	case 2:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			TickerID string `json:"ticker_id"`
			Comment  string `json:"comment"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a, err := h.app.Portfolios.AddAsset(r.Context(), userID, portfolioID, payload.TickerID, payload.Comment)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, a)

	case 3:
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Portfolios.RemoveAsset(r.Context(), userID, portfolioID, parts[2]); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type walletPayload struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

func (h *handler) wallets(w http.ResponseWriter, r *http.Request) {
	userID := logging.GetUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Wallets.List(r.Context(), userID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload walletPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		wl, err := h.app.Wallets.Create(r.Context(), userID, payload.Name, payload.Comment)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, wl)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) walletResources(w http.ResponseWriter, r *http.Request) {
	userID := logging.GetUserID(r.Context())

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/wallets"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "assets" {
		if len(parts) != 2 || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		detail, err := h.app.Wallets.Detail(r.Context(), userID, parts[1])
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}

	walletID := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			wl, err := h.app.Wallets.Get(r.Context(), userID, walletID)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, wl)

		case http.MethodPut:
			var payload walletPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			wl, err := h.app.Wallets.Update(r.Context(), userID, walletID, payload.Name, payload.Comment)
			if err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, wl)

		case http.MethodDelete:
			if err := h.app.Wallets.Delete(r.Context(), userID, walletID); err != nil {
				writeError(w, errStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if parts[1] != "assets" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch len(parts) {
	case 2:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			TickerID string `json:"ticker_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a, err := h.app.Wallets.AddAsset(r.Context(), userID, walletID, payload.TickerID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, a)

	case 3:
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Wallets.RemoveAsset(r.Context(), userID, walletID, parts[2]); err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type transactionPayload struct {
	Date         string          `json:"date"`
	Type         string          `json:"type"`
	TickerID     string          `json:"ticker_id"`
	Ticker2ID    string          `json:"ticker2_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Quantity2    decimal.Decimal `json:"quantity2"`
	Price        decimal.Decimal `json:"price"`
	Ticker2Price decimal.Decimal `json:"ticker2_price"`
	Comment      string          `json:"comment"`
	PortfolioID  string          `json:"portfolio_id"`
	Portfolio2   string          `json:"portfolio2_id"`
	WalletID     string          `json:"wallet_id"`
	Wallet2      string          `json:"wallet2_id"`
	Order        bool            `json:"order"`
}

func (p transactionPayload) toInput() (transactions.Input, error) {
	in := transactions.Input{
		Kind:         transaction.Kind(p.Type),
		TickerID:     p.TickerID,
		Ticker2ID:    p.Ticker2ID,
		Quantity:     p.Quantity,
		Quantity2:    p.Quantity2,
		Price:        p.Price,
		Ticker2Price: p.Ticker2Price,
		Comment:      p.Comment,
		PortfolioID:  p.PortfolioID,
		Portfolio2:   p.Portfolio2,
		WalletID:     p.WalletID,
		Wallet2:      p.Wallet2,
		Order:        p.Order,
	}
	if strings.TrimSpace(p.Date) != "" {
		parsed, err := time.Parse(time.RFC3339, p.Date)
		if err != nil {
			return transactions.Input{}, errors.New("date must be RFC3339 timestamp")
		}
		in.Date = parsed
	}
	return in, nil
}

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := logging.GetUserID(r.Context())

	var payload transactionPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := payload.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Transactions.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	metrics.RecordTransaction(string(result.Transaction.Kind), "create")
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) transactionResources(w http.ResponseWriter, r *http.Request) {
	userID := logging.GetUserID(r.Context())

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/transactions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	transactionID := parts[0]

	switch r.Method {
	case http.MethodPut:
		var payload transactionPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		in, err := payload.toInput()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := h.app.Transactions.Update(r.Context(), userID, transactionID, in)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		metrics.RecordTransaction(string(result.Transaction.Kind), "update")
		writeJSON(w, http.StatusOK, result)

	case http.MethodDelete:
		result, err := h.app.Transactions.Delete(r.Context(), userID, transactionID)
		if err != nil {
			writeError(w, errStatus(err), err)
			return
		}
		metrics.RecordTransaction(string(result.Transaction.Kind), "delete")
		writeJSON(w, http.StatusOK, result)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) usedTickers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tickers, err := h.app.Transactions.UsedTickers(r.Context())
	if err != nil {
		writeError(w, errStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tickers)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errStatus maps service errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portfolios.ErrNameTaken),
		errors.Is(err, portfolios.ErrAssetExists),
		errors.Is(err, wallets.ErrAssetExists):
		return http.StatusConflict
	case errors.Is(err, transaction.ErrUnknownKind),
		errors.Is(err, transactions.ErrNoContainer),
		errors.Is(err, portfolios.ErrInvalidName),
		errors.Is(err, portfolios.ErrInvalidTicker),
		errors.Is(err, wallets.ErrInvalidName),
		errors.Is(err, wallets.ErrInvalidTicker):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
