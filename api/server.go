package main

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/DeafMist/credibility-engine/backend/internal/backend"
	"github.com/DeafMist/credibility-engine/backend/internal/config"
	"github.com/DeafMist/credibility-engine/backend/internal/elasticsearch"
	"github.com/DeafMist/credibility-engine/backend/internal/history"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
	"github.com/DeafMist/credibility-engine/backend/internal/tier"
	"github.com/DeafMist/credibility-engine/backend/internal/translate"
	"github.com/DeafMist/credibility-engine/backend/internal/verification"
)

// Dashboard thresholds for the "likely true" and "likely false" counters.
const (
	likelyTrueAbove  = 75
	likelyFalseBelow = 25
)

const maxRequestBytes = 1 << 20

type analysisService interface {
	Ingest(ctx context.Context, text, source string) error
	Health(ctx context.Context) (backend.Health, error)
}

type archive interface {
	SearchRecords(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	session  *verification.Session
	backend  analysisService
	archive  archive
	sanitize *bluemonday.Policy
}

func newServer(log *slog.Logger, cfg *config.API, session *verification.Session, b analysisService, arch archive) *server {
	return &server{
		log:      log,
		cfg:      cfg,
		session:  session,
		backend:  b,
		archive:  arch,
		sanitize: bluemonday.StrictPolicy(),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/ingest", s.handleIngest)
	r.Get("/history", s.handleHistory)
	r.Get("/history/stats", s.handleStats)
	r.Get("/archive", s.handleArchive)
	r.Get("/languages", s.handleLanguages)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Backend backend.Health `json:"backend"`
	Archive string         `json:"archive,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	h, err := s.backend.Health(r.Context())
	if err != nil {
		s.log.Debug("backend offline", slog.Any("err", err))
	}
	resp.Backend = h

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Archive = "ok"
		if err := s.archive.Health(ctx); err != nil {
			resp.Archive = "unavailable"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Claim    string `json:"claim"`
	Language string `json:"language"`
}

type analyzeResponse struct {
	Record models.VerificationRecord `json:"record"`
	Tier   models.Tier               `json:"tier"`
	Color  string                    `json:"color"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	language := s.cfg.DefaultLanguage
	if strings.TrimSpace(req.Language) != "" {
		parsed, ok := translate.ParseLanguage(req.Language)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported language " + strconv.Quote(req.Language)})
			return
		}
		language = parsed
	}

	bundle, err := s.session.Analyze(r.Context(), s.clean(req.Claim), language)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Record: bundle.Record,
		Tier:   bundle.Record.Tier,
		Color:  bundle.Record.Color,
	})
}

type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	text := s.clean(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text must not be empty"})
		return
	}
	source := s.clean(req.Source)
	if source == "" {
		source = "manual"
	}

	if err := s.backend.Ingest(r.Context(), text, source); err != nil {
		s.log.Warn("ingest failed", slog.Int("text_len", len(text)), slog.Any("err", err))
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type historyRow struct {
	ID        string      `json:"id"`
	Claim     string      `json:"claim"`
	Score     int         `json:"score"`
	Category  string      `json:"category"`
	Verdict   string      `json:"verdict"`
	Tier      models.Tier `json:"tier"`
	Color     string      `json:"color"`
	Timestamp time.Time   `json:"timestamp"`
}

type historyResponse struct {
	Order string       `json:"order"`
	Total int          `json:"total"`
	Items []historyRow `json:"items"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := history.Query{
		Verdict:  strings.TrimSpace(q.Get("verdict")),
		Category: strings.TrimSpace(q.Get("category")),
		Tier:     models.Tier(strings.TrimSpace(q.Get("tier"))),
	}

	var err error
	if query.MinScore, err = parseScore(q.Get("min_score")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "min_score: " + err.Error()})
		return
	}
	if query.MaxScore, err = parseScore(q.Get("max_score")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max_score: " + err.Error()})
		return
	}

	store := s.session.History()
	records := store.Filter(query.Match)
	limit := clampInt(q.Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage)
	offset := clampInt(q.Get("offset"), 0, len(records))
	end := min(offset+limit, len(records))

	rows := make([]historyRow, 0, end-offset)
	for _, rec := range records[offset:end] {
		rows = append(rows, historyRow{
			ID:        rec.ID,
			Claim:     rec.Claim,
			Score:     rec.Result.Score,
			Category:  rec.Result.Category,
			Verdict:   rec.Result.Verdict,
			Tier:      rec.Tier,
			Color:     rec.Color,
			Timestamp: rec.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Order: store.Order().String(),
		Total: len(records),
		Items: rows,
	})
}

type statsResponse struct {
	Count       int                 `json:"count"`
	MeanScore   any                 `json:"mean_score"`
	LikelyTrue  int                 `json:"likely_true"`
	LikelyFalse int                 `json:"likely_false"`
	ByTier      map[models.Tier]int `json:"by_tier"`
	ByCategory  map[string]int      `json:"by_category"`
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	sum := s.session.History().Aggregate()
	resp := statsResponse{
		Count:       sum.Count,
		MeanScore:   "no data",
		LikelyTrue:  sum.CountAbove(likelyTrueAbove),
		LikelyFalse: sum.CountBelow(likelyFalseBelow),
		ByTier:      sum.ByTier(),
		ByCategory:  sum.ByCategory(),
	}
	if mean, ok := sum.MeanScore(); ok {
		resp.MeanScore = mean
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "archive disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Verdict:  strings.TrimSpace(q.Get("verdict")),
		Category: strings.TrimSpace(q.Get("category")),
		Tier:     strings.TrimSpace(q.Get("tier")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
	}

	var err error
	if params.MinScore, err = parseScore(q.Get("min_score")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "min_score: " + err.Error()})
		return
	}
	if params.MaxScore, err = parseScore(q.Get("max_score")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max_score: " + err.Error()})
		return
	}
	if _, _, err := elasticsearch.ParseSort(params.Sort); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sort: " + err.Error()})
		return
	}

	result, err := s.archive.SearchRecords(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type languagesResponse struct {
	Default   translate.Language   `json:"default"`
	Languages []translate.Language `json:"languages"`
	Tiers     []tierInfo           `json:"tiers"`
}

type tierInfo struct {
	Tier  models.Tier `json:"tier"`
	Color string      `json:"color"`
}

func (s *server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	policy := s.session.Policy()
	tiers := make([]tierInfo, 0, len(tier.Tiers()))
	for _, t := range tier.Tiers() {
		tiers = append(tiers, tierInfo{Tier: t, Color: policy.Colors[t]})
	}
	writeJSON(w, http.StatusOK, languagesResponse{
		Default:   s.cfg.DefaultLanguage,
		Languages: translate.Languages(),
		Tiers:     tiers,
	})
}

// clean strips markup from user-entered text.
func (s *server) clean(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitize.Sanitize(raw)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, verification.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func parseScore(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("must be an integer")
	}
	if v < 0 || v > 100 {
		return nil, errors.New("must be within 0..100")
	}
	return &v, nil
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
