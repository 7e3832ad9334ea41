package convert

import (
	"fmt"

	"github.com/filewarp/filewarp/internal/format"
)

// Registry selects the adapter for a (source category, target category)
// pair. The routing table is fixed; Validate checks it against the
// catalog at startup so an unroutable format fails at boot, not at
// request time.
type Registry struct {
	catalog  *format.Catalog
	image    Converter
	media    Converter
	document Converter
}

func NewRegistry(catalog *format.Catalog, image, media, document Converter) *Registry {
	return &Registry{catalog: catalog, image: image, media: media, document: document}
}

// route maps a category pair to the adapter handling it. Pairs not listed
// are not convertible (the validator rejects them before dispatch).
func (r *Registry) route(src, dst format.Category) Converter {
	switch {
	case src == format.Image && dst == format.Image:
		return r.image
	case src == format.Image && dst == format.Document:
		// image to pdf composition goes through the image adapter's
		// ImageMagick path
		return r.image
	case (src == format.Audio || src == format.Video) &&
		(dst == format.Audio || dst == format.Video):
		return r.media
	case src == format.Document && dst == format.Document:
		return r.document
	default:
		return nil
	}
}

// Select returns the adapter for a source/target format pair. Both formats
// must already have passed validation.
func (r *Registry) Select(sourceExt, targetExt string) (Converter, error) {
	src, ok := r.catalog.CategoryOf(format.Normalize(sourceExt))
	if !ok {
		return nil, Errf(KindUnsupportedFormat, "Unsupported format: %s", sourceExt)
	}
	dst, ok := r.catalog.CategoryOf(format.Normalize(targetExt))
	if !ok {
		return nil, Errf(KindUnsupportedFormat, "Unsupported format: %s", targetExt)
	}
	c := r.route(src, dst)
	if c == nil {
		return nil, Errf(KindUnsupportedConversion, "Cannot convert %s to %s", src, dst)
	}
	return c, nil
}

// Validate checks at startup that every format the catalog advertises has
// an implemented encode path.
func (r *Registry) Validate() error {
	img, ok := r.image.(*ImageAdapter)
	if ok {
		for _, f := range r.catalog.Formats(format.Image) {
			if !img.EncoderFor(f) {
				return fmt.Errorf("image format %q has no encoder", f)
			}
		}
	}
	for _, cat := range r.catalog.Categories() {
		for _, f := range r.catalog.Formats(cat) {
			if _, ok := r.catalog.CategoryOf(f); !ok {
				return fmt.Errorf("format %q missing from catalog lookup", f)
			}
		}
		if r.route(cat, cat) == nil {
			return fmt.Errorf("category %q has no same-category adapter", cat)
		}
	}
	return nil
}
