package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/joseph475/e-commerce/internal/domain"
	"github.com/joseph475/e-commerce/internal/emvqr"
	"github.com/joseph475/e-commerce/internal/usecase"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	uc       *usecase.QRUsecase
	db       Pinger
	validate *validator.Validate
}

func NewHandler(uc *usecase.QRUsecase, db Pinger) *Handler {
	v := validator.New()
	// Decimal fields validate as float64 so numeric tags apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Handler{
		uc:       uc,
		db:       db,
		validate: v,
	}
}

type RouterOptions struct {
	Sig            SigConfig
	AllowedOrigins []string
}

func (h *Handler) Routes(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderTimestamp, HeaderSignature},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/qr-payments", func(r chi.Router) {
		r.Post("/create", h.CreateTransaction)
		r.Get("/status/{transactionID}", h.GetStatus)
		r.With(SignatureMiddleware(opts.Sig)).Post("/confirm/{transactionID}", h.ConfirmTransaction)
		r.Post("/cancel/{transactionID}", h.CancelTransaction)
		r.Get("/history", h.ListHistory)
		r.Get("/qr/{transactionID}.png", h.QRImage)
		r.Get("/healthz", h.Healthz)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Success: false, Error: msg})
}

// writeUsecaseError maps lifecycle errors to responses. notFoundMsg is used
// for both unknown ids and state conflicts, which callers see as 404.
func writeUsecaseError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusBadRequest, "transaction has expired")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrStateConflict):
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		log.Printf("[api] %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody reads an optional JSON body; an empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func amountJSON(t domain.Transaction) json.Number {
	return json.Number(t.Amount.StringFixed(2))
}

// POST /api/qr-payments/create
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := usecase.CreateRequest{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		MerchantID:    req.MerchantID,
		PaymentMethod: req.PaymentMethod,
	}
	if c := req.CustomerInfo; c != nil {
		in.Customer = domain.Customer{Name: c.Name, Email: c.Email, Phone: c.Phone}
	}

	res, err := h.uc.Create(r.Context(), in)
	if err != nil {
		writeUsecaseError(w, err, "transaction not found")
		return
	}

	writeData(w, http.StatusCreated, CreateResp{
		TransactionID: res.Transaction.TransactionID,
		QRData:        res.QRData,
		ExpiresAt:     res.Transaction.ExpiresAt,
	})
}

// GET /api/qr-payments/status/{transactionID}
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	t, err := h.uc.GetStatus(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeUsecaseError(w, err, "transaction not found")
		return
	}

	writeData(w, http.StatusOK, StatusResp{
		TransactionID: t.TransactionID,
		Status:        string(t.Status),
		Amount:        amountJSON(*t),
		Currency:      t.Currency,
		CreatedAt:     t.CreatedAt,
		ExpiresAt:     t.ExpiresAt,
		CompletedAt:   t.CompletedAt,
	})
}

// POST /api/qr-payments/confirm/{transactionID}
//
// Gateway webhook, also used for manual confirmation.
func (h *Handler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	var req ConfirmReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var response string
	if len(req.GatewayResponse) > 0 && string(req.GatewayResponse) != "null" {
		var buf bytes.Buffer
		if err := json.Compact(&buf, req.GatewayResponse); err != nil {
			writeError(w, http.StatusBadRequest, "invalid gateway_response")
			return
		}
		response = buf.String()
	}

	t, err := h.uc.Confirm(r.Context(), chi.URLParam(r, "transactionID"), usecase.ConfirmRequest{
		GatewayTransactionID: req.GatewayTransactionID,
		GatewayReference:     req.GatewayReference,
		PaymentGateway:       req.PaymentGateway,
		GatewayResponse:      response,
	})
	if err != nil {
		writeUsecaseError(w, err, "transaction not found or not pending")
		return
	}

	writeData(w, http.StatusOK, ConfirmResp{
		TransactionID: t.TransactionID,
		Status:        string(t.Status),
		CompletedAt:   t.CompletedAt,
	})
}

// POST /api/qr-payments/cancel/{transactionID}
func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.uc.Cancel(r.Context(), chi.URLParam(r, "transactionID"), req.Reason)
	if err != nil {
		writeUsecaseError(w, err, "transaction not found or cannot be cancelled")
		return
	}

	writeData(w, http.StatusOK, CancelResp{
		TransactionID: t.TransactionID,
		Status:        string(t.Status),
		CancelledAt:   t.CancelledAt,
	})
}

// GET /api/qr-payments/history?status=&date_from=&date_to=&limit=&offset=
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	hq := HistoryQuery{Status: q.Get("status")}
	if err := h.validate.Struct(hq); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := usecase.HistoryFilter{Status: domain.TxStatus(hq.Status)}

	var ok bool
	if filter.From, ok = parseTime(q.Get("date_from"), false); !ok {
		writeError(w, http.StatusBadRequest, "invalid date_from")
		return
	}
	if filter.To, ok = parseTime(q.Get("date_to"), true); !ok {
		writeError(w, http.StatusBadRequest, "invalid date_to")
		return
	}

	limit := usecase.DefaultHistoryLimit
	offset := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= usecase.MaxHistoryLimit {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	items, err := h.uc.ListHistory(r.Context(), filter, limit, offset)
	if err != nil {
		writeUsecaseError(w, err, "transaction not found")
		return
	}

	out := make([]TxItem, 0, len(items))
	for _, t := range items {
		out = append(out, toTxItem(t))
	}
	writeData(w, http.StatusOK, out)
}

// parseTime accepts RFC3339 or a bare date. A bare date_to covers the whole
// day. An empty value yields nil.
func parseTime(s string, endOfDay bool) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func toTxItem(t domain.Transaction) TxItem {
	item := TxItem{
		TransactionID:   t.TransactionID,
		OrderID:         t.OrderID,
		Amount:          amountJSON(t),
		Currency:        t.Currency,
		MerchantID:      t.MerchantID,
		CustomerName:    t.Customer.Name,
		CustomerEmail:   t.Customer.Email,
		CustomerPhone:   t.Customer.Phone,
		PaymentMethod:   t.PaymentMethod,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
		ExpiresAt:       t.ExpiresAt,
		CompletedAt:     t.CompletedAt,
		CancelledAt:     t.CancelledAt,
		CancelledReason: t.CancelledReason,
	}
	if gw := t.Gateway; gw != nil {
		item.GatewayTransactionID = gw.TransactionID
		item.GatewayReference = gw.Reference
		item.PaymentGateway = gw.Gateway
		item.GatewayResponse = gw.Response
	}
	return item
}

// GET /api/qr-payments/qr/{transactionID}.png
func (h *Handler) QRImage(w http.ResponseWriter, r *http.Request) {
	payload, err := h.uc.QRData(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeUsecaseError(w, err, "transaction not found or not pending")
		return
	}

	png, err := emvqr.RenderPNG(payload, emvqr.DefaultImageSize)
	if err != nil {
		log.Printf("[api] render qr: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Printf("[api] health: %v", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
