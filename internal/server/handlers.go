package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/match"
	"github.com/luckykangaroo/backend/internal/repository"
	"github.com/luckykangaroo/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the matching and catalogue API.
type APIHandlers struct {
	logger   *slog.Logger
	engine   *match.Engine
	exchange *service.ExchangeService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, engine *match.Engine, exchange *service.ExchangeService) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		engine:   engine,
		exchange: exchange,
	}
}

// --- Matching endpoints ---

func (h *APIHandlers) suggestPairs(w http.ResponseWriter, r *http.Request) {
	seedID := chi.URLParam(r, "listingID")
	query := r.URL.Query()

	filters := match.PairFilters{
		K: parseInt(query.Get("k"), 0),
	}
	if v := query.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		filters.MinScore = &f
	}
	if v := query.Get("max_distance_km"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_distance_km")
			return
		}
		filters.MaxDistanceKm = &f
	}
	if v := query.Get("categories"); v != "" {
		filters.Categories = splitCSV(v)
	}
	if v := query.Get("exchange_types"); v != "" {
		for _, t := range splitCSV(v) {
			filters.ExchangeTypes = append(filters.ExchangeTypes, domain.ExchangeType(t))
		}
	}

	result, err := h.engine.SuggestPairs(r.Context(), seedID, filters)
	if err != nil && !partialKind(match.KindOf(err)) {
		h.respondMatchError(w, r, err, "suggest pairs failed", "seedId", seedID)
		return
	}

	respondJSON(w, http.StatusOK, pairsResponse{
		Suggestions: emptyIfNilPairs(result.Suggestions),
		Truncated:   result.Truncated,
		Unexamined:  result.Unexamined,
		ErrorKind:   string(result.ErrorKind),
	})
}

func (h *APIHandlers) suggestChains(w http.ResponseWriter, r *http.Request) {
	seedID := chi.URLParam(r, "listingID")
	query := r.URL.Query()

	params := match.ChainParams{
		LMax:      parseInt(query.Get("l_max"), 0),
		MaxChains: parseInt(query.Get("max_chains"), 0),
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"min_edge_score", &params.MinEdgeScore},
		{"min_chain_score", &params.MinChainScore},
		{"max_total_km", &params.MaxTotalDistanceKm},
	}
	for _, f := range floats {
		if v := query.Get(f.key); v != "" {
			val, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+f.key)
				return
			}
			*f.dst = val
		}
	}

	result, err := h.engine.SuggestChains(r.Context(), seedID, params)
	if err != nil && !partialKind(match.KindOf(err)) {
		h.respondMatchError(w, r, err, "suggest chains failed", "seedId", seedID)
		return
	}

	respondJSON(w, http.StatusOK, chainsResponse{
		Chains:    emptyIfNilChains(result.Chains),
		Truncated: result.Truncated,
		ErrorKind: string(result.ErrorKind),
	})
}

func (h *APIHandlers) analyzePair(w http.ResponseWriter, r *http.Request) {
	idA := strings.TrimSpace(r.URL.Query().Get("a"))
	idB := strings.TrimSpace(r.URL.Query().Get("b"))
	if idA == "" || idB == "" {
		writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	suggestion, err := h.engine.AnalyzePair(r.Context(), idA, idB)
	if err != nil {
		h.respondMatchError(w, r, err, "analyze pair failed", "a", idA, "b", idB)
		return
	}

	respondJSON(w, http.StatusOK, suggestion)
}

// respondMatchError maps the engine error taxonomy onto HTTP statuses.
func (h *APIHandlers) respondMatchError(w http.ResponseWriter, r *http.Request, err error, msg string, args ...any) {
	kind := match.KindOf(err)
	switch kind {
	case match.KindNotFound:
		writeKindError(w, http.StatusNotFound, kind, err.Error())
	case match.KindInvalidRequest:
		writeKindError(w, http.StatusBadRequest, kind, err.Error())
	case match.KindRepositoryUnavailable:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		writeKindError(w, http.StatusServiceUnavailable, kind, "listing store unavailable")
	default:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		writeKindError(w, http.StatusInternalServerError, match.KindInternal, "internal error")
	}
}

// partialKind reports whether a failure still carries partial results that
// should be returned with a 200 and an error_kind discriminator.
func partialKind(kind match.ErrorKind) bool {
	return kind == match.KindRepositoryTimeout || kind == match.KindDeadlineExceeded
}

// --- Catalogue endpoints ---

func (h *APIHandlers) upsertListing(w http.ResponseWriter, r *http.Request) {
	var payload listingRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing, err := h.exchange.UpsertListing(r.Context(), payload.toServiceInput())
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to upsert listing", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist listing")
		return
	}

	respondJSON(w, http.StatusCreated, listingResponseFrom(listing))
}

func (h *APIHandlers) getListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")

	listing, err := h.exchange.GetListing(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "listing not found")
		default:
			h.logger.Error("failed to fetch listing", "error", err, "listingId", id)
			writeError(w, http.StatusInternalServerError, "failed to fetch listing")
		}
		return
	}

	respondJSON(w, http.StatusOK, listingResponseFrom(listing))
}

func (h *APIHandlers) upsertUser(w http.ResponseWriter, r *http.Request) {
	var payload userRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.exchange.UpsertUser(r.Context(), service.UserInput{
		ID:          payload.UserID,
		TrustScore:  payload.TrustScore,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
		MaxTravelKm: payload.MaxTravelKm,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to upsert user", "error", err, "userId", payload.UserID)
		writeError(w, http.StatusInternalServerError, "failed to persist user")
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: user.ID})
}

func (h *APIHandlers) markPending(w http.ResponseWriter, r *http.Request) {
	var payload pendingExchangeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.exchange.MarkPendingExchange(r.Context(), payload.ListingA, payload.ListingB); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to mark pending exchange", "error", err,
			"listingA", payload.ListingA, "listingB", payload.ListingB)
		writeError(w, http.StatusInternalServerError, "failed to mark pending exchange")
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok"})
}

// --- Request & Response DTOs ---

type pairsResponse struct {
	Suggestions []domain.PairSuggestion `json:"suggestions"`
	Truncated   bool                    `json:"truncated"`
	Unexamined  int                     `json:"unexamined,omitempty"`
	ErrorKind   string                  `json:"error_kind,omitempty"`
}

type chainsResponse struct {
	Chains    []domain.Chain `json:"chains"`
	Truncated bool           `json:"truncated"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

type listingRequest struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"owner_id"`
	Title          string   `json:"title"`
	CategoryID     string   `json:"category_id"`
	Condition      string   `json:"condition"`
	EstimatedValue float64  `json:"estimated_value"`
	Currency       string   `json:"currency"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	DesiredItems   []string `json:"desired_items"`
	ExcludedItems  []string `json:"excluded_items"`
	Tags           []string `json:"tags"`
	ExchangeType   string   `json:"exchange_type"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
}

func (req listingRequest) toServiceInput() service.ListingInput {
	input := service.ListingInput{
		ID:             req.ID,
		OwnerID:        req.OwnerID,
		Title:          req.Title,
		CategoryID:     req.CategoryID,
		Condition:      req.Condition,
		EstimatedValue: req.EstimatedValue,
		Currency:       req.Currency,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DesiredItems:   req.DesiredItems,
		ExcludedItems:  req.ExcludedItems,
		Tags:           req.Tags,
		ExchangeType:   req.ExchangeType,
		Status:         req.Status,
	}
	if req.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, req.CreatedAt); err == nil {
			input.CreatedAt = &ts
		}
	}
	return input
}

type listingResponse struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"owner_id"`
	Title          string   `json:"title"`
	CategoryID     string   `json:"category_id"`
	Condition      string   `json:"condition"`
	EstimatedValue float64  `json:"estimated_value"`
	Currency       string   `json:"currency"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	DesiredItems   []string `json:"desired_items"`
	ExcludedItems  []string `json:"excluded_items"`
	Tags           []string `json:"tags"`
	ExchangeType   string   `json:"exchange_type"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
}

func listingResponseFrom(l domain.Listing) listingResponse {
	return listingResponse{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		Title:          l.Title,
		CategoryID:     l.CategoryID,
		Condition:      string(l.Condition),
		EstimatedValue: l.EstimatedValue,
		Currency:       l.Currency,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		DesiredItems:   emptyIfNil(l.DesiredItems),
		ExcludedItems:  emptyIfNil(l.ExcludedItems),
		Tags:           emptyIfNil(l.Tags),
		ExchangeType:   string(l.ExchangeType),
		Status:         string(l.Status),
		CreatedAt:      formatTime(l.CreatedAt),
	}
}

type userRequest struct {
	UserID      string   `json:"id"`
	TrustScore  float64  `json:"trust_score"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	MaxTravelKm *float64 `json:"max_travel_km"`
}

type pendingExchangeRequest struct {
	ListingA string `json:"listing_a"`
	ListingB string `json:"listing_b"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func writeKindError(w http.ResponseWriter, status int, kind match.ErrorKind, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, ErrorKind: string(kind)})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilPairs(s []domain.PairSuggestion) []domain.PairSuggestion {
	if s == nil {
		return []domain.PairSuggestion{}
	}
	return s
}

func emptyIfNilChains(s []domain.Chain) []domain.Chain {
	if s == nil {
		return []domain.Chain{}
	}
	return s
}
