package engine

import (
	"math"
	"testing"

	"github.com/vitalstack/vitals-engine/internal/models"
)

func hasIssue(issues []models.Issue, t models.IssueType) bool {
	for _, i := range issues {
		if i.Type == t {
			return true
		}
	}
	return false
}

func TestClassifyShiftImageWithoutDimensions(t *testing.T) {
	rec := models.LayoutShiftRecord{
		Score:     0.2,
		StartTime: 100,
		Sources: []models.ShiftSource{{
			Element:     models.ElementRef{Tag: "img", Selector: "img.hero", IsImage: true},
			CurrentRect: models.Rect{Width: 100, Height: 100},
		}},
	}
	issues := ClassifyShift(rec, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueImageWithoutDimensions) {
		t.Fatal("expected image-without-dimensions issue")
	}
	if issues[0].ElementDescriptor != "img.hero" {
		t.Fatalf("unexpected descriptor %q", issues[0].ElementDescriptor)
	}

	rec.Sources[0].Element.ExplicitSize = true
	issues = ClassifyShift(rec, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if hasIssue(issues, models.IssueImageWithoutDimensions) {
		t.Fatal("explicitly sized images must not fire the rule")
	}
}

func TestClassifyShiftWebFontShift(t *testing.T) {
	rec := models.LayoutShiftRecord{
		Score:     0.05,
		StartTime: 1000,
		Sources: []models.ShiftSource{{
			Element: models.ElementRef{Tag: "p", ContainsText: true},
		}},
	}

	issues := ClassifyShift(rec, ShiftEvidence{FontLoadTimes: []float64{700}}, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueWebFontShift) {
		t.Fatal("expected web-font-shift with a font load 300ms earlier")
	}

	// A load outside the 500ms window is unrelated.
	issues = ClassifyShift(rec, ShiftEvidence{FontLoadTimes: []float64{400}}, DefaultOptions(), DefaultRulePack())
	if hasIssue(issues, models.IssueWebFontShift) {
		t.Fatal("stale font load must not fire the rule")
	}

	// Without evidence the rule skips silently.
	issues = ClassifyShift(rec, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if hasIssue(issues, models.IssueWebFontShift) {
		t.Fatal("missing evidence must skip, not fire")
	}
}

func TestClassifyShiftInsertionRules(t *testing.T) {
	iframe := models.LayoutShiftRecord{
		Score:     0.3,
		StartTime: 200,
		Sources: []models.ShiftSource{{
			Element:     models.ElementRef{Tag: "iframe", ClassName: "ad-slot", NewlyInserted: true},
			CurrentRect: models.Rect{Width: 300, Height: 250},
		}},
	}
	issues := ClassifyShift(iframe, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueAdEmbedShift) {
		t.Fatal("expected ad-embed-shift for a newly inserted iframe")
	}

	div := iframe
	div.Sources = []models.ShiftSource{{
		Element:     models.ElementRef{Tag: "div", ClassName: "recommendations", NewlyInserted: true},
		CurrentRect: models.Rect{Width: 300, Height: 250},
	}}
	issues = ClassifyShift(div, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueDynamicContent) {
		t.Fatal("expected dynamic-content for a newly inserted div")
	}
	if hasIssue(issues, models.IssueAdEmbedShift) {
		t.Fatal("insertion rules are mutually exclusive per source")
	}

	// An element that already had layout space is not an insertion shift.
	div.Sources[0].PreviousRect = models.Rect{Width: 300, Height: 100}
	issues = ClassifyShift(div, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if hasIssue(issues, models.IssueDynamicContent) {
		t.Fatal("pre-existing elements must not fire insertion rules")
	}
}

func TestClassifyShiftAnimation(t *testing.T) {
	el := models.ElementRef{Tag: "div", ElementID: "ticker"}
	rec := models.LayoutShiftRecord{
		Score:     0.01,
		StartTime: 5000,
		Sources:   []models.ShiftSource{{Element: el}},
	}
	ev := ShiftEvidence{WindowStreaks: map[string]int{el.Describe(): 3}}

	issues := ClassifyShift(rec, ev, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueAnimationShift) {
		t.Fatal("expected animation-shift for a small repeated shift")
	}

	big := rec
	big.Score = 0.2
	if issues := ClassifyShift(big, ev, DefaultOptions(), DefaultRulePack()); hasIssue(issues, models.IssueAnimationShift) {
		t.Fatal("large shifts are not animation noise")
	}

	short := ShiftEvidence{WindowStreaks: map[string]int{el.Describe(): 2}}
	if issues := ClassifyShift(rec, short, DefaultOptions(), DefaultRulePack()); hasIssue(issues, models.IssueAnimationShift) {
		t.Fatal("two windows are not yet a streak")
	}
}

func TestClassifyShiftRequiresAttribution(t *testing.T) {
	rec := models.LayoutShiftRecord{
		Score:     0.2,
		StartTime: 100,
		Sources: []models.ShiftSource{{
			Element: models.ElementRef{Tag: "img", IsImage: true},
		}},
	}

	opts := DefaultOptions()
	opts.TrackAttribution = false
	if issues := ClassifyShift(rec, ShiftEvidence{}, opts, DefaultRulePack()); issues != nil {
		t.Fatal("shift rules need attribution evidence")
	}

	opts = DefaultOptions()
	opts.DetectIssues = false
	if issues := ClassifyShift(rec, ShiftEvidence{}, opts, DefaultRulePack()); issues != nil {
		t.Fatal("classification must be off when detection is disabled")
	}
}

func TestClassifyShiftContributions(t *testing.T) {
	rec := models.LayoutShiftRecord{
		Score:     0.3,
		StartTime: 100,
		Sources: []models.ShiftSource{
			{
				Element:     models.ElementRef{Tag: "img", IsImage: true},
				CurrentRect: models.Rect{Width: 100, Height: 100}, // area 10000
			},
			{
				Element:     models.ElementRef{Tag: "img", ElementID: "side", IsImage: true},
				CurrentRect: models.Rect{Width: 50, Height: 100}, // area 5000
			},
		},
	}
	issues := ClassifyShift(rec, ShiftEvidence{}, DefaultOptions(), DefaultRulePack())
	if len(issues) != 2 {
		t.Fatalf("expected one issue per source, got %d", len(issues))
	}
	if math.Abs(issues[0].Contribution-0.2) > 1e-9 || math.Abs(issues[1].Contribution-0.1) > 1e-9 {
		t.Fatalf("contributions must split by moved area, got %f and %f",
			issues[0].Contribution, issues[1].Contribution)
	}
}

func TestClassifyInteractionProcessingRules(t *testing.T) {
	opts := DefaultOptions() // long-task threshold 50ms

	rec := models.InteractionRecord{
		ID: 1, Type: models.InteractionClick, Latency: 120,
		Phases: models.PhaseBreakdown{InputDelay: 10, ProcessingDuration: 80, PresentationDelay: 30},
	}
	issues := ClassifyInteraction(rec, opts, DefaultRulePack())
	if !hasIssue(issues, models.IssueLongTask) {
		t.Fatal("expected long-task at 80ms processing")
	}
	if hasIssue(issues, models.IssueHeavyEventHandler) {
		t.Fatal("long-task and heavy-event-handler are mutually exclusive")
	}

	rec.Phases = models.PhaseBreakdown{InputDelay: 10, ProcessingDuration: 30, PresentationDelay: 10}
	rec.Latency = 50
	issues = ClassifyInteraction(rec, opts, DefaultRulePack())
	if !hasIssue(issues, models.IssueHeavyEventHandler) {
		t.Fatal("expected heavy-event-handler at half the budget")
	}
	if hasIssue(issues, models.IssueLongTask) {
		t.Fatal("30ms processing is below the long-task budget")
	}
}

func TestClassifyInteractionDominantPhases(t *testing.T) {
	rec := models.InteractionRecord{
		ID: 1, Type: models.InteractionKeypress, Latency: 300,
		Phases: models.PhaseBreakdown{InputDelay: 200, ProcessingDuration: 40, PresentationDelay: 60},
	}
	issues := ClassifyInteraction(rec, DefaultOptions(), DefaultRulePack())
	if !hasIssue(issues, models.IssueHighInputDelay) {
		t.Fatal("expected high-input-delay when the phase dominates")
	}
	if hasIssue(issues, models.IssueHighPresentationDelay) {
		t.Fatal("presentation delay does not dominate here")
	}
}

func TestClassifyInteractionPhaseRulesSurviveAttributionOff(t *testing.T) {
	opts := DefaultOptions()
	opts.TrackAttribution = false

	rec := models.InteractionRecord{
		ID: 1, Type: models.InteractionTap, Latency: 400,
		Phases: models.PhaseBreakdown{InputDelay: 300, ProcessingDuration: 60, PresentationDelay: 40},
		Scripts: []models.ScriptAttribution{
			{SourceURL: "https://cdn.example.net/widget.js", Duration: 55, ThirdParty: true},
		},
	}
	issues := ClassifyInteraction(rec, opts, DefaultRulePack())
	if !hasIssue(issues, models.IssueHighInputDelay) {
		t.Fatal("numeric phase rules stay active without attribution")
	}
	if hasIssue(issues, models.IssueThirdPartyScript) {
		t.Fatal("script rules need attribution tracking")
	}
}

func TestClassifyInteractionThirdPartyScripts(t *testing.T) {
	opts := DefaultOptions()
	opts.PageOrigin = "https://shop.example.com"

	rec := models.InteractionRecord{
		ID: 1, Type: models.InteractionClick, Latency: 250,
		Phases: models.PhaseBreakdown{InputDelay: 20, ProcessingDuration: 10, PresentationDelay: 20},
		Scripts: []models.ScriptAttribution{
			{SourceURL: "https://shop.example.com/app.js", Duration: 100},
			{SourceURL: "https://analytics.example.net/t.js", Duration: 80},
			{SourceURL: "https://shop.example.com/vendor.js", Duration: 40, ThirdParty: true},
		},
	}
	issues := ClassifyInteraction(rec, opts, DefaultRulePack())

	count := 0
	for _, i := range issues {
		if i.Type == models.IssueThirdPartyScript {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected the foreign-origin and flagged scripts only, got %d", count)
	}
}
