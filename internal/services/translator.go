package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thientv98/slack-oauth/internal/metrics"
)

// Translator turns text from one language into another. An empty result with
// a nil error means there is nothing to post.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Name() string
}

// ShouldTranslate reports whether a translation call makes sense at all:
// the text is not blank and the languages differ. "auto" never equals a
// concrete target.
func ShouldTranslate(text, sourceLang, targetLang string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return !strings.EqualFold(sourceLang, targetLang)
}

// EchoTranslator is the stub gateway: it tags the input instead of translating
type EchoTranslator struct{}

func NewEchoTranslator() *EchoTranslator {
	return &EchoTranslator{}
}

func (EchoTranslator) Name() string { return "echo" }

func (EchoTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !ShouldTranslate(text, sourceLang, targetLang) {
		return "", nil
	}
	return fmt.Sprintf("[TRANSLATED %s → %s] %s", sourceLang, targetLang, text), nil
}

// Instrumented records call counts and latency for any Translator
type Instrumented struct {
	Translator
}

func (t Instrumented) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	start := time.Now()
	translated, err := t.Translator.Translate(ctx, text, sourceLang, targetLang)

	status := metrics.Status(err)
	if err == nil && translated == "" {
		status = "skipped"
	}
	metrics.Translations.WithLabelValues(t.Name(), status).Inc()
	metrics.TranslationDuration.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())

	return translated, err
}
