package models

import (
	"fmt"
	"strings"
)

// ElementRef is a weak handle to a DOM node: a relation plus a descriptor
// captured at observation time, never ownership of the live element. The
// referenced node may be removed from the document at any point, so lookups
// always fall back to the captured description instead of dereferencing.
type ElementRef struct {
	NodeID        string `json:"node_id,omitempty"`
	Tag           string `json:"tag,omitempty"`
	ElementID     string `json:"element_id,omitempty"`
	ClassName     string `json:"class_name,omitempty"`
	Selector      string `json:"selector,omitempty"`
	IsImage       bool   `json:"is_image,omitempty"`
	ExplicitSize  bool   `json:"explicit_size,omitempty"`
	ContainsText  bool   `json:"contains_text,omitempty"`
	NewlyInserted bool   `json:"newly_inserted,omitempty"`
	Detached      bool   `json:"detached,omitempty"`
}

// Describe returns a stable textual descriptor for the element. It never
// fails: a stale or detached reference still resolves to whatever was
// captured when the record was observed.
func (e ElementRef) Describe() string {
	if e.Selector != "" {
		return e.Selector
	}
	tag := strings.ToLower(e.Tag)
	if tag == "" {
		return "(unknown element)"
	}
	switch {
	case e.ElementID != "":
		return fmt.Sprintf("%s#%s", tag, e.ElementID)
	case e.ClassName != "":
		return fmt.Sprintf("%s.%s", tag, firstClass(e.ClassName))
	default:
		return tag
	}
}

// Resolvable reports whether the handle still points at a live node.
func (e ElementRef) Resolvable() bool {
	return !e.Detached && (e.NodeID != "" || e.Selector != "" || e.Tag != "")
}

// HasExplicitDimensions reports whether the element declared width and
// height up front, reserving layout space before it loaded.
func (e ElementRef) HasExplicitDimensions() bool {
	return e.ExplicitSize
}

// AspectRatio returns width/height for the box, or 0 for a degenerate box.
func AspectRatio(r Rect) float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width / r.Height
}

func firstClass(className string) string {
	fields := strings.Fields(className)
	if len(fields) == 0 {
		return className
	}
	return fields[0]
}
