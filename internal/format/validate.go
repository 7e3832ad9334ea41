package format

import (
	"fmt"
	"strings"
)

// Decision is the outcome of a conversion validity check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// crossCategory is the directional allow-list for conversions between
// different categories. It is policy, not derived from the catalog;
// review it whenever a category is added.
var crossCategory = map[Category][]Category{
	Video: {Audio},    // audio extraction
	Image: {Document}, // image to pdf composition
}

// Validate decides whether sourceExt may be converted to targetExt.
// Extensions are matched case-insensitively and without a leading dot.
func (c *Catalog) Validate(sourceExt, targetExt string) Decision {
	src := Normalize(sourceExt)
	dst := Normalize(targetExt)

	srcCat, srcOK := c.CategoryOf(src)
	dstCat, dstOK := c.CategoryOf(dst)
	if !srcOK || !dstOK {
		return Decision{Allowed: false, Reason: "Unsupported format"}
	}

	if srcCat == dstCat {
		return Decision{Allowed: true, Reason: "Same category conversion"}
	}

	for _, cat := range crossCategory[srcCat] {
		if cat == dstCat {
			return Decision{Allowed: true, Reason: "Cross-category conversion allowed"}
		}
	}

	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("Cannot convert %s to %s", srcCat, dstCat),
	}
}

// Normalize lowercases a format identifier and strips a leading dot.
func Normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
