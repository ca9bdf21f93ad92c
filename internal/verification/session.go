package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/credibility-engine/backend/internal/backend"
	"github.com/DeafMist/credibility-engine/backend/internal/history"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
	"github.com/DeafMist/credibility-engine/backend/internal/normalize"
	"github.com/DeafMist/credibility-engine/backend/internal/tier"
	"github.com/DeafMist/credibility-engine/backend/internal/translate"
)

var (
	// ErrInvalidInput is returned for an empty or whitespace-only claim.
	ErrInvalidInput = errors.New("claim must not be empty")
	// ErrBackendUnavailable is returned when the analysis backend call fails or times out.
	ErrBackendUnavailable = backend.ErrUnavailable
)

// AnalysisBackend is the external service that scores claims.
type AnalysisBackend interface {
	Analyze(ctx context.Context, claim string) (map[string]any, error)
}

// Archiver receives every recorded verification. Failures never affect the session.
type Archiver interface {
	ArchiveRecord(ctx context.Context, rec models.VerificationRecord) error
}

// Options configures a Session. Zero values pick the defaults.
type Options struct {
	Timeout         time.Duration
	DefaultLanguage translate.Language
	Policy          *tier.Policy
	Translator      translate.Translator
	Archiver        Archiver
	Logger          *slog.Logger
	Now             func() time.Time
}

// Session runs verification requests and owns their history.
type Session struct {
	backend    AnalysisBackend
	history    *history.Store
	timeout    time.Duration
	language   translate.Language
	policy     tier.Policy
	translator translate.Translator
	archiver   Archiver
	log        *slog.Logger
	now        func() time.Time
}

// Bundle is what a caller renders after a successful analysis.
type Bundle struct {
	Result models.VerificationResult `json:"result"`
	Record models.VerificationRecord `json:"record"`
}

// NewSession wires a session around an analysis backend and a history store.
func NewSession(b AnalysisBackend, store *history.Store, opts Options) *Session {
	s := &Session{
		backend:    b,
		history:    store,
		timeout:    opts.Timeout,
		language:   opts.DefaultLanguage,
		policy:     tier.DefaultPolicy(),
		translator: opts.Translator,
		archiver:   opts.Archiver,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if s.history == nil {
		s.history = history.NewStore(history.NewestFirst)
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.language == "" {
		s.language = translate.DefaultLanguage
	}
	if opts.Policy != nil {
		s.policy = *opts.Policy
	}
	if s.translator == nil {
		s.translator = translate.Identity{}
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// History exposes the session's store for read access.
func (s *Session) History() *history.Store {
	return s.history
}

// Policy returns the tier policy in use.
func (s *Session) Policy() tier.Policy {
	return s.policy
}

// Analyze verifies one claim. On success exactly one record is appended to history;
// on failure history is untouched.
func (s *Session) Analyze(ctx context.Context, claim string, language translate.Language) (Bundle, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return Bundle{}, ErrInvalidInput
	}

	raw, err := s.call(ctx, claim)
	if err != nil {
		s.log.Warn("analysis failed", slog.Int("claim_len", len(claim)), slog.Any("err", err))
		return Bundle{}, err
	}

	result := normalize.Normalize(raw)
	if language != s.language {
		result = s.localize(ctx, result, language)
	}
	class := s.policy.Classify(result.Score)

	rec := models.VerificationRecord{
		ID:        uuid.NewString(),
		Claim:     claim,
		Language:  string(language),
		Result:    result,
		Tier:      class.Tier,
		Color:     class.Color,
		Timestamp: s.now().UTC(),
	}
	s.history.Append(rec)
	s.archive(ctx, rec)

	s.log.Info("claim verified",
		slog.String("id", rec.ID),
		slog.Int("score", result.Score),
		slog.String("verdict", result.Verdict),
		slog.String("tier", string(class.Tier)),
	)
	return Bundle{Result: result, Record: rec}, nil
}

// call bounds the backend by the session timeout and guarantees every failure
// is reported as ErrBackendUnavailable.
func (s *Session) call(ctx context.Context, claim string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		raw map[string]any
		err error
	}
	done := make(chan reply, 1)
	go func() {
		raw, err := s.backend.Analyze(ctx, claim)
		done <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, ErrBackendUnavailable) {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, r.err)
		}
		return r.raw, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ctx.Err())
	}
}

func (s *Session) localize(ctx context.Context, result models.VerificationResult, language translate.Language) models.VerificationResult {
	result.Reasoning = s.translator.Translate(ctx, result.Reasoning, language)
	evidence := make([]string, len(result.KeyEvidence))
	for i, item := range result.KeyEvidence {
		evidence[i] = s.translator.Translate(ctx, item, language)
	}
	result.KeyEvidence = evidence
	return result
}

func (s *Session) archive(ctx context.Context, rec models.VerificationRecord) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveRecord(ctx, rec); err != nil {
		s.log.Warn("archive record", slog.String("id", rec.ID), slog.Any("err", err))
	}
}
