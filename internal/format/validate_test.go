package format

import "testing"

func TestValidateSameCategory(t *testing.T) {
	c := NewCatalog()
	cases := [][2]string{
		{"jpg", "webp"},
		{"png", "avif"},
		{"mp3", "flac"},
		{"mp4", "webm"},
		{"docx", "pdf"},
	}
	for _, pair := range cases {
		d := c.Validate(pair[0], pair[1])
		if !d.Allowed {
			t.Errorf("Validate(%s, %s) denied: %s", pair[0], pair[1], d.Reason)
		}
	}
}

func TestValidateUnknownFormat(t *testing.T) {
	c := NewCatalog()
	for _, pair := range [][2]string{{"xyz", "mp3"}, {"mp3", "xyz"}, {"xyz", "abc"}} {
		d := c.Validate(pair[0], pair[1])
		if d.Allowed {
			t.Errorf("Validate(%s, %s) allowed, want denied", pair[0], pair[1])
		}
		if d.Reason != "Unsupported format" {
			t.Errorf("Validate(%s, %s) reason = %q, want %q", pair[0], pair[1], d.Reason, "Unsupported format")
		}
	}
}

func TestValidateCrossCategoryDirectional(t *testing.T) {
	c := NewCatalog()

	if d := c.Validate("mp4", "mp3"); !d.Allowed {
		t.Errorf("video to audio denied: %s", d.Reason)
	}
	if d := c.Validate("mp3", "mp4"); d.Allowed {
		t.Error("audio to video allowed, want denied")
	}
	if d := c.Validate("jpg", "pdf"); !d.Allowed {
		t.Errorf("image to document denied: %s", d.Reason)
	}
	if d := c.Validate("pdf", "jpg"); d.Allowed {
		t.Error("document to image allowed, want denied")
	}

	d := c.Validate("mp3", "mp4")
	if d.Reason != "Cannot convert audio to video" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestValidateNormalizesInput(t *testing.T) {
	c := NewCatalog()
	if d := c.Validate(".JPG", ".WebP"); !d.Allowed {
		t.Errorf("normalized pair denied: %s", d.Reason)
	}
}

func TestCatalogLookups(t *testing.T) {
	c := NewCatalog()

	cats := c.Categories()
	want := []Category{Image, Audio, Video, Document}
	if len(cats) != len(want) {
		t.Fatalf("Categories() len = %d, want %d", len(cats), len(want))
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories()[%d] = %s, want %s", i, cats[i], want[i])
		}
	}

	if cat, ok := c.CategoryOf("flac"); !ok || cat != Audio {
		t.Errorf("CategoryOf(flac) = %s, %v", cat, ok)
	}
	if _, ok := c.CategoryOf("xyz"); ok {
		t.Error("CategoryOf(xyz) found")
	}

	opts := c.DefaultOptions(Image, "jpg")
	if opts.Quality != 80 || !opts.Progressive {
		t.Errorf("DefaultOptions(image, jpg) = %+v", opts)
	}
	if opts := c.DefaultOptions(Document, "pdf"); opts != (Options{}) {
		t.Errorf("DefaultOptions(document, pdf) = %+v, want empty", opts)
	}
}

func TestOptionsMergeOverridesWin(t *testing.T) {
	base := Options{Quality: 80, Progressive: true, AudioBitrate: "192k"}
	merged := base.Merge(Options{Quality: 55, AudioChannels: 1})
	if merged.Quality != 55 {
		t.Errorf("Quality = %d, want 55", merged.Quality)
	}
	if !merged.Progressive {
		t.Error("Progressive lost in merge")
	}
	if merged.AudioBitrate != "192k" {
		t.Errorf("AudioBitrate = %s", merged.AudioBitrate)
	}
	if merged.AudioChannels != 1 {
		t.Errorf("AudioChannels = %d", merged.AudioChannels)
	}
}
