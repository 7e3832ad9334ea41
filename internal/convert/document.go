package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/filewarp/filewarp/internal/format"
)

// errListenerUnavailable tags a primary-strategy failure caused by the
// conversion listener (or its binary) being absent, which is the only
// failure that advances to the next strategy.
var errListenerUnavailable = errors.New("document listener unavailable")

// documentStrategy is one way of producing outputPath from inputPath.
type documentStrategy interface {
	name() string
	run(ctx context.Context, inputPath, outputPath, target string) error
}

// DocumentAdapter converts office documents through an ordered strategy
// chain: unoconv first (fast, needs a running LibreOffice listener), then
// the self-contained soffice CLI.
type DocumentAdapter struct {
	catalog    *format.Catalog
	strategies []documentStrategy
}

func NewDocumentAdapter(catalog *format.Catalog, unoconvPath, sofficePath string) *DocumentAdapter {
	return &DocumentAdapter{
		catalog: catalog,
		strategies: []documentStrategy{
			&unoconvStrategy{path: unoconvPath},
			&sofficeStrategy{path: sofficePath},
		},
	}
}

func (a *DocumentAdapter) Name() string { return "document" }

func (a *DocumentAdapter) Convert(ctx context.Context, inputPath, outputPath, target string, opts format.Options) (*Outcome, error) {
	start := time.Now()
	target = format.Normalize(target)

	if cat, ok := a.catalog.CategoryOf(target); !ok || cat != format.Document {
		return nil, Errf(KindUnsupportedFormat, "Unsupported document format: %s", target)
	}
	merged := a.catalog.DefaultOptions(format.Document, target).Merge(opts)

	var lastErr error
	for _, s := range a.strategies {
		err := s.run(ctx, inputPath, outputPath, target)
		if err == nil {
			fi, statErr := os.Stat(outputPath)
			if statErr != nil {
				return nil, &Error{
					Kind:   KindDocumentFailed,
					Reason: "Document conversion completed but output file not found",
					Detail: statErr.Error(),
				}
			}
			return &Outcome{
				OutputPath: outputPath,
				OutputSize: fi.Size(),
				Elapsed:    time.Since(start),
				Options:    merged,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = fmt.Errorf("%s: %w", s.name(), err)
		if !errors.Is(err, errListenerUnavailable) {
			break
		}
	}

	return nil, &Error{
		Kind:   KindDocumentFailed,
		Reason: "Document conversion failed",
		Detail: lastErr.Error(),
	}
}

// unoconvStrategy drives a long-lived LibreOffice listener through the
// unoconv wrapper. A missing binary or a failed listener connection is
// reported as errListenerUnavailable so the chain can fall back.
type unoconvStrategy struct {
	path string
}

func (s *unoconvStrategy) name() string { return "unoconv" }

func (s *unoconvStrategy) run(ctx context.Context, inputPath, outputPath, target string) error {
	if _, err := exec.LookPath(s.path); err != nil {
		return fmt.Errorf("%w: %s not installed", errListenerUnavailable, s.path)
	}

	cmd := exec.CommandContext(ctx, s.path, "-f", target, "-o", outputPath, inputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// unoconv fails with a connection error when no listener is up;
		// that is a tool-availability failure, not a document failure.
		text := strings.ToLower(string(out))
		if strings.Contains(text, "connection") || strings.Contains(text, "could not find") {
			return fmt.Errorf("%w: %s", errListenerUnavailable, strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("unoconv: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// sofficeStrategy invokes the LibreOffice CLI headless. soffice names the
// output after the input file, so the result is moved into place.
type sofficeStrategy struct {
	path string
}

func (s *sofficeStrategy) name() string { return "soffice" }

func (s *sofficeStrategy) run(ctx context.Context, inputPath, outputPath, target string) error {
	outDir := filepath.Dir(outputPath)
	cmd := exec.CommandContext(ctx, s.path, "--headless", "--convert-to", target, "--outdir", outDir, inputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("soffice: %v: %s", err, strings.TrimSpace(string(out)))
	}

	base := filepath.Base(inputPath)
	produced := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"."+target)
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("soffice output relocation: %w", err)
		}
	}
	return nil
}
