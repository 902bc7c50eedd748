package models

import "testing"

func TestElementRefDescribe(t *testing.T) {
	cases := []struct {
		name string
		el   ElementRef
		want string
	}{
		{"selector wins", ElementRef{Selector: "div#hero > img", Tag: "img", ElementID: "x"}, "div#hero > img"},
		{"id next", ElementRef{Tag: "IMG", ElementID: "hero"}, "img#hero"},
		{"first class", ElementRef{Tag: "div", ClassName: "card promoted"}, "div.card"},
		{"bare tag", ElementRef{Tag: "section"}, "section"},
		{"nothing captured", ElementRef{}, "(unknown element)"},
	}
	for _, tc := range cases {
		if got := tc.el.Describe(); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestElementRefDescribeSurvivesDetach(t *testing.T) {
	el := ElementRef{Tag: "img", ElementID: "hero", Detached: true}
	if el.Resolvable() {
		t.Fatal("detached element must not resolve")
	}
	if got := el.Describe(); got != "img#hero" {
		t.Fatalf("descriptor must survive detachment, got %q", got)
	}
}

func TestAspectRatio(t *testing.T) {
	if got := AspectRatio(Rect{Width: 200, Height: 100}); got != 2 {
		t.Fatalf("expected 2, got %f", got)
	}
	if got := AspectRatio(Rect{Width: 100}); got != 0 {
		t.Fatalf("degenerate box must yield 0, got %f", got)
	}
}

func TestRectArea(t *testing.T) {
	if got := (Rect{Width: 30, Height: 20}).Area(); got != 600 {
		t.Fatalf("expected 600, got %f", got)
	}
	if got := (Rect{Width: -5, Height: 10}).Area(); got != 0 {
		t.Fatalf("negative width must clamp to 0, got %f", got)
	}
}
