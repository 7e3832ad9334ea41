package convert

import (
	"context"
	"errors"
	"testing"

	"github.com/filewarp/filewarp/internal/format"
)

type stubConverter struct {
	name  string
	calls int
}

func (s *stubConverter) Name() string { return s.name }

func (s *stubConverter) Convert(ctx context.Context, inputPath, outputPath, target string, opts format.Options) (*Outcome, error) {
	s.calls++
	return &Outcome{OutputPath: outputPath}, nil
}

func newStubRegistry() (*Registry, *stubConverter, *stubConverter, *stubConverter) {
	catalog := format.NewCatalog()
	img := &stubConverter{name: "image"}
	med := &stubConverter{name: "media"}
	doc := &stubConverter{name: "document"}
	return NewRegistry(catalog, img, med, doc), img, med, doc
}

func TestRegistrySelectRouting(t *testing.T) {
	r, img, med, doc := newStubRegistry()

	cases := []struct {
		src, dst string
		want     Converter
	}{
		{"jpg", "png", img},
		{"jpg", "pdf", img}, // image to pdf composition
		{"mp3", "flac", med},
		{"mp4", "webm", med},
		{"mp4", "mp3", med}, // audio extraction
		{"docx", "pdf", doc},
	}
	for _, tc := range cases {
		got, err := r.Select(tc.src, tc.dst)
		if err != nil {
			t.Errorf("Select(%s, %s): %v", tc.src, tc.dst, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Select(%s, %s) = %s, want %s", tc.src, tc.dst, got.Name(), tc.want.Name())
		}
	}
}

func TestRegistrySelectRejectsUnroutablePairs(t *testing.T) {
	r, _, _, _ := newStubRegistry()

	if _, err := r.Select("pdf", "jpg"); err == nil {
		t.Error("document to image routed, want error")
	} else if KindOf(err) != KindUnsupportedConversion {
		t.Errorf("kind = %s", KindOf(err))
	}

	if _, err := r.Select("xyz", "mp3"); err == nil {
		t.Error("unknown source routed, want error")
	} else if KindOf(err) != KindUnsupportedFormat {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestRegistryValidatePassesWithRealImageAdapter(t *testing.T) {
	catalog := format.NewCatalog()
	r := NewRegistry(catalog,
		NewImageAdapter(catalog, "magick"),
		&stubConverter{name: "media"},
		&stubConverter{name: "document"},
	)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRegistryValidateFailsWithoutAdapter(t *testing.T) {
	catalog := format.NewCatalog()
	r := NewRegistry(catalog, nil, &stubConverter{}, &stubConverter{})
	if err := r.Validate(); err == nil {
		t.Fatal("Validate passed with a missing image adapter")
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(Errf(KindMediaFailed, "boom")); k != KindMediaFailed {
		t.Errorf("kind = %s", k)
	}
	if k := KindOf(context.DeadlineExceeded); k != KindTimeout {
		t.Errorf("kind = %s", k)
	}
	if k := KindOf(errors.New("plain")); k != KindBadRequest {
		t.Errorf("kind = %s", k)
	}
}
