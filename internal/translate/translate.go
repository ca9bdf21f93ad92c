package translate

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Translator converts text into a target language. Implementations never fail:
// on any problem they return the input unchanged.
type Translator interface {
	Translate(ctx context.Context, text string, target Language) string
}

// Capability is an external translation service addressed by language code.
type Capability interface {
	Translate(ctx context.Context, text, targetCode string) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, text, targetCode string) (string, error)

func (f CapabilityFunc) Translate(ctx context.Context, text, targetCode string) (string, error) {
	return f(ctx, text, targetCode)
}

// Identity returns text unchanged.
type Identity struct{}

func (Identity) Translate(_ context.Context, text string, _ Language) string {
	return text
}

// External delegates to a Capability and falls back to the source text on failure.
type External struct {
	capability Capability
	source     Language
	log        *slog.Logger
}

// NewExternal wraps capability. Text already in source language is passed through.
func NewExternal(capability Capability, source Language, logger *slog.Logger) *External {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &External{capability: capability, source: source, log: logger}
}

func (e *External) Translate(ctx context.Context, text string, target Language) string {
	if strings.TrimSpace(text) == "" || target == e.source || e.capability == nil {
		return text
	}
	code, ok := target.Code()
	if !ok {
		return text
	}

	out, err := e.capability.Translate(ctx, text, code)
	if err != nil {
		e.log.Warn("translation failed, keeping source text",
			slog.String("target", code),
			slog.Any("err", err),
		)
		return text
	}
	if strings.TrimSpace(out) == "" {
		return text
	}
	return out
}
