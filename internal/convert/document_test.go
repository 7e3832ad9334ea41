package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/filewarp/filewarp/internal/format"
)

type fakeStrategy struct {
	label string
	err   error
	calls int
	write bool
}

func (f *fakeStrategy) name() string { return f.label }

func (f *fakeStrategy) run(ctx context.Context, inputPath, outputPath, target string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.write {
		return os.WriteFile(outputPath, []byte("doc"), 0o644)
	}
	return nil
}

func docAdapter(strategies ...documentStrategy) *DocumentAdapter {
	return &DocumentAdapter{catalog: format.NewCatalog(), strategies: strategies}
}

func TestDocumentPrimarySucceeds(t *testing.T) {
	dir := t.TempDir()
	primary := &fakeStrategy{label: "primary", write: true}
	fallback := &fakeStrategy{label: "fallback", write: true}
	a := docAdapter(primary, fallback)

	out := filepath.Join(dir, "out.pdf")
	outcome, err := a.Convert(context.Background(), filepath.Join(dir, "in.docx"), out, "pdf", format.Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if outcome.OutputSize != 3 {
		t.Errorf("OutputSize = %d", outcome.OutputSize)
	}
	if fallback.calls != 0 {
		t.Error("fallback ran despite primary success")
	}
}

func TestDocumentFallsBackOnListenerUnavailable(t *testing.T) {
	dir := t.TempDir()
	primary := &fakeStrategy{label: "primary", err: fmt.Errorf("%w: no listener", errListenerUnavailable)}
	fallback := &fakeStrategy{label: "fallback", write: true}
	a := docAdapter(primary, fallback)

	out := filepath.Join(dir, "out.pdf")
	if _, err := a.Convert(context.Background(), filepath.Join(dir, "in.docx"), out, "pdf", format.Options{}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestDocumentNoFallbackOnRealFailure(t *testing.T) {
	dir := t.TempDir()
	primary := &fakeStrategy{label: "primary", err: errors.New("corrupt document")}
	fallback := &fakeStrategy{label: "fallback", write: true}
	a := docAdapter(primary, fallback)

	_, err := a.Convert(context.Background(), filepath.Join(dir, "in.docx"), filepath.Join(dir, "out.pdf"), "pdf", format.Options{})
	if err == nil {
		t.Fatal("want failure")
	}
	if KindOf(err) != KindDocumentFailed {
		t.Errorf("kind = %s", KindOf(err))
	}
	if fallback.calls != 0 {
		t.Error("fallback ran on a non-availability failure")
	}
}

func TestDocumentMissingOutputIsFailure(t *testing.T) {
	dir := t.TempDir()
	// Strategy claims success but never writes the file.
	a := docAdapter(&fakeStrategy{label: "liar"})

	_, err := a.Convert(context.Background(), filepath.Join(dir, "in.docx"), filepath.Join(dir, "out.pdf"), "pdf", format.Options{})
	if err == nil {
		t.Fatal("missing output accepted")
	}
	if KindOf(err) != KindDocumentFailed {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestDocumentRejectsNonDocumentTarget(t *testing.T) {
	a := docAdapter(&fakeStrategy{label: "primary", write: true})
	_, err := a.Convert(context.Background(), "in.docx", "out.mp3", "mp3", format.Options{})
	if err == nil {
		t.Fatal("media target accepted by document adapter")
	}
	if KindOf(err) != KindUnsupportedFormat {
		t.Errorf("kind = %s", KindOf(err))
	}
}
