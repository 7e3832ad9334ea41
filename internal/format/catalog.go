// Package format holds the static catalog of supported conversion formats
// and the rules deciding which source/target pairs are permitted.
package format

// Category is the top-level grouping of formats.
type Category string

const (
	Image    Category = "image"
	Audio    Category = "audio"
	Video    Category = "video"
	Document Category = "document"
)

// Options is a per-format default option bundle. Zero values mean
// "no default"; callers merge their overrides on top.
type Options struct {
	Quality          int    `json:"quality,omitempty"`
	Progressive      bool   `json:"progressive,omitempty"`
	CompressionLevel int    `json:"compressionLevel,omitempty"`
	Lossless         bool   `json:"lossless,omitempty"`
	AudioBitrate     string `json:"audioBitrate,omitempty"`
	AudioChannels    int    `json:"audioChannels,omitempty"`
	VideoBitrate     string `json:"videoBitrate,omitempty"`
	Preset           string `json:"preset,omitempty"`
}

// Merge returns o with non-zero fields of override applied on top.
func (o Options) Merge(override Options) Options {
	if override.Quality != 0 {
		o.Quality = override.Quality
	}
	if override.Progressive {
		o.Progressive = true
	}
	if override.CompressionLevel != 0 {
		o.CompressionLevel = override.CompressionLevel
	}
	if override.Lossless {
		o.Lossless = true
	}
	if override.AudioBitrate != "" {
		o.AudioBitrate = override.AudioBitrate
	}
	if override.AudioChannels != 0 {
		o.AudioChannels = override.AudioChannels
	}
	if override.VideoBitrate != "" {
		o.VideoBitrate = override.VideoBitrate
	}
	if override.Preset != "" {
		o.Preset = override.Preset
	}
	return o
}

type categoryEntry struct {
	formats  []string
	defaults map[string]Options
}

// Catalog is the single source of truth for supported formats. It is
// immutable after construction.
type Catalog struct {
	order   []Category
	entries map[Category]categoryEntry
}

// NewCatalog builds the built-in catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		order: []Category{Image, Audio, Video, Document},
		entries: map[Category]categoryEntry{
			Image: {
				formats: []string{"jpg", "jpeg", "png", "webp", "gif", "bmp", "avif", "tiff"},
				defaults: map[string]Options{
					"jpg":  {Quality: 80, Progressive: true},
					"jpeg": {Quality: 80, Progressive: true},
					"png":  {CompressionLevel: 6},
					"webp": {Quality: 80},
					"avif": {Quality: 50},
				},
			},
			Audio: {
				formats: []string{"mp3", "wav", "ogg", "aac", "flac", "m4a"},
				defaults: map[string]Options{
					"mp3": {AudioBitrate: "192k", AudioChannels: 2},
					"aac": {AudioBitrate: "128k", AudioChannels: 2},
					"ogg": {AudioBitrate: "192k", AudioChannels: 2},
				},
			},
			Video: {
				formats: []string{"mp4", "webm", "mov", "avi", "mkv", "flv"},
				defaults: map[string]Options{
					"mp4":  {VideoBitrate: "1000k", AudioBitrate: "128k", Preset: "medium"},
					"webm": {VideoBitrate: "1000k", AudioBitrate: "128k"},
					"mov":  {VideoBitrate: "1000k", AudioBitrate: "128k"},
				},
			},
			Document: {
				formats:  []string{"pdf", "docx", "txt", "odt", "rtf", "html", "pptx", "xlsx"},
				defaults: map[string]Options{},
			},
		},
	}
}

// Categories returns the categories in their fixed order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.order))
	copy(out, c.order)
	return out
}

// Formats returns the format identifiers of a category.
func (c *Catalog) Formats(cat Category) []string {
	e, ok := c.entries[cat]
	if !ok {
		return nil
	}
	out := make([]string, len(e.formats))
	copy(out, e.formats)
	return out
}

// CategoryOf looks up the category owning a format identifier.
func (c *Catalog) CategoryOf(format string) (Category, bool) {
	for _, cat := range c.order {
		for _, f := range c.entries[cat].formats {
			if f == format {
				return cat, true
			}
		}
	}
	return "", false
}

// DefaultOptions returns the default option bundle of a format. The empty
// bundle is returned for formats without defaults.
func (c *Catalog) DefaultOptions(cat Category, format string) Options {
	e, ok := c.entries[cat]
	if !ok {
		return Options{}
	}
	return e.defaults[format]
}

// Snapshot renders the whole catalog for the /formats endpoint.
func (c *Catalog) Snapshot() map[string]any {
	out := make(map[string]any, len(c.order))
	for _, cat := range c.order {
		e := c.entries[cat]
		out[string(cat)] = map[string]any{
			"formats":        e.formats,
			"qualityOptions": e.defaults,
		}
	}
	return out
}
