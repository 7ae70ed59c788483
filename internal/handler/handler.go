// Package handler содержит HTTP-обработчики API сервиса аукциона.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/auction"
	"github.com/mmeshcher/escrow-auction/internal/middleware"
	"github.com/mmeshcher/escrow-auction/internal/model"
	"github.com/mmeshcher/escrow-auction/internal/service"
	"github.com/mmeshcher/escrow-auction/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	PlaceBid(ctx context.Context, bidder string, amount int64) error
	RequestRefund(ctx context.Context, requester string) (int64, error)
	EndAuction(ctx context.Context, caller string) error
	ProcessPayments(ctx context.Context) error
	Winner() (string, int64, error)
	Bidders() []model.Bidder
	RemainingTime() time.Duration
	Info() model.AuctionInfo
	RefundHistory(identity string) []int64
	Events(ctx context.Context, limit int) ([]model.Event, error)
}

// Handler реализует HTTP-обработчики API аукциона.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	stream         http.Handler
	metrics        http.Handler
}

// NewHandler создаёт обработчик. stream и metrics могут быть nil, тогда маршруты не регистрируются.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, stream, metrics http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		stream:         stream,
		metrics:        metrics,
	}
}

type bidRequest struct {
	Amount int64 `json:"amount"`
}

type winnerResponse struct {
	Winner string `json:"winner"`
	Amount int64  `json:"amount"`
}

type remainingResponse struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
}

type refundResponse struct {
	Amount int64 `json:"amount"`
}

type refundHistoryResponse struct {
	Identity   string  `json:"identity"`
	History    []int64 `json:"history"`
	Refundable int64   `json:"refundable"`
}

// GetAuction возвращает текущее состояние аукциона.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Info())
}

// GetWinner возвращает победителя. До завершения аукциона отвечает 409.
func (h *Handler) GetWinner(w http.ResponseWriter, r *http.Request) {
	winner, amount, err := h.service.Winner()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, winnerResponse{Winner: winner, Amount: amount})
}

// GetBidders возвращает участников в порядке регистрации.
func (h *Handler) GetBidders(w http.ResponseWriter, r *http.Request) {
	bidders := h.service.Bidders()
	if len(bidders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, bidders)
}

// GetRemaining возвращает оставшееся время торгов в секундах.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	rem := h.service.RemainingTime()
	h.writeJSON(w, http.StatusOK, remainingResponse{RemainingSeconds: int64(rem / time.Second)})
}

// GetRefundHistory возвращает вытесненные суммы участника.
func (h *Handler) GetRefundHistory(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if !validation.IsValidIdentity(identity) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	history := h.service.RefundHistory(identity)
	var sum int64
	for _, v := range history {
		sum += v
	}

	h.writeJSON(w, http.StatusOK, refundHistoryResponse{
		Identity:   identity,
		History:    history,
		Refundable: sum,
	})
}

// GetEvents возвращает последние события из журнала. Параметр limit необязателен.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = v
	}

	events, err := h.service.Events(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrJournalDisabled) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error("get events error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(events) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// PlaceBid принимает ставку текущего участника.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.PlaceBid(r.Context(), identity, req.Amount); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Info())
}

// RequestRefund возвращает текущему участнику вытесненные суммы.
func (h *Handler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	amount, err := h.service.RequestRefund(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, refundResponse{Amount: amount})
}

// EndAuction завершает аукцион по запросу владельца.
func (h *Handler) EndAuction(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.EndAuction(r.Context(), identity); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ProcessPayments повторяет расчёт завершённого аукциона.
func (h *Handler) ProcessPayments(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ProcessPayments(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("auction operation failed", zap.Error(err), zap.Int("status", code))
	}
	http.Error(w, http.StatusText(code), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrBidTooLow), errors.Is(err, auction.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auction.ErrAuctionNotActive),
		errors.Is(err, auction.ErrAlreadyEnded),
		errors.Is(err, auction.ErrAuctionNotEnded),
		errors.Is(err, auction.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, auction.ErrNotEligible), errors.Is(err, auction.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, auction.ErrReentrantCall):
		return http.StatusLocked
	case errors.Is(err, auction.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
