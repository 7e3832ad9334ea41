// Package convert wraps the external conversion tools (image encoders,
// ffmpeg, LibreOffice) behind a uniform adapter contract.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/filewarp/filewarp/internal/format"
)

// Kind classifies conversion failures.
type Kind string

const (
	KindBadRequest            Kind = "bad_request"
	KindUnsupportedFormat     Kind = "unsupported_format"
	KindUnsupportedConversion Kind = "unsupported_conversion"
	KindImageFailed           Kind = "image_conversion_failed"
	KindMediaFailed           Kind = "media_conversion_failed"
	KindDocumentFailed        Kind = "document_conversion_failed"
	KindOutputMissing         Kind = "output_missing"
	KindTimeout               Kind = "conversion_timeout"
	KindDependency            Kind = "dependency_unavailable"
)

// Error is the uniform failure shape surfaced by adapters and the
// orchestrator. Reason is safe to show to clients; Detail carries tool
// output and is exposed in development builds only.
type Error struct {
	Kind   Kind
	Reason string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Errf builds an Error with a formatted reason.
func Errf(kind Kind, formatStr string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(formatStr, args...)}
}

// KindOf extracts the Kind of err, mapping context deadline expiry to
// KindTimeout. Unclassified errors report as bad request.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindBadRequest
}

// Outcome is the result of a successful adapter invocation.
type Outcome struct {
	OutputPath string
	OutputSize int64
	Elapsed    time.Duration
	Options    format.Options
	// SourceMeta holds best-effort diagnostics about the input
	// (dimensions, EXIF timestamps). Never required for control flow.
	SourceMeta map[string]string
}

// ProgressFunc receives best-effort progress events from adapters that
// report them (currently the media adapter). Stage is one of
// "start", "progress", "done", "error"; percent is meaningful for
// "progress" only.
type ProgressFunc func(stage string, percent float64, detail string)

// Converter is the uniform adapter contract. Implementations must honor
// ctx cancellation and leave no file at outputPath on failure.
type Converter interface {
	Name() string
	Convert(ctx context.Context, inputPath, outputPath, target string, opts format.Options) (*Outcome, error)
}

func extOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
