package engine

import (
	"net/url"
	"strings"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// Classification heuristics. A phase dominates when it exceeds 60% of total
// latency; the heavy-handler rule fires at half the long-task budget; font
// shifts are blamed on loads within the preceding 500ms; animation shifts
// are small repeated shifts across three or more consecutive windows.
const (
	dominantPhaseShare    = 0.6
	heavyHandlerFraction  = 0.5
	fontShiftWindowMs     = 500.0
	animationStreakMin    = 3
	animationMaxShiftSize = 0.05
)

// ShiftEvidence is the auxiliary evidence consulted by shift rules. The
// aggregator assembles it; the classifier never reads aggregator state.
type ShiftEvidence struct {
	// FontLoadTimes are recent font-load signal times in page-relative ms.
	FontLoadTimes []float64
	// WindowStreaks maps element descriptors to the number of consecutive
	// session windows the element has shifted in.
	WindowStreaks map[string]int
}

// ClassifyShift inspects one layout-shift record and emits zero or more
// issues. Pure: identical inputs always produce identical issues. Rules
// whose evidence is unavailable skip silently rather than failing the pass.
func ClassifyShift(rec models.LayoutShiftRecord, ev ShiftEvidence, opts Options, pack *RulePack) []models.Issue {
	if !opts.DetectIssues || pack == nil {
		return nil
	}
	if !opts.TrackAttribution || len(rec.Sources) == 0 {
		// Every shift rule needs source evidence; nothing can fire.
		return nil
	}

	var issues []models.Issue
	shares := sourceShares(rec)

	for i, src := range rec.Sources {
		desc := src.Element.Describe()

		if pack.Enabled(models.IssueImageWithoutDimensions) &&
			src.Element.IsImage && !src.Element.HasExplicitDimensions() {
			issues = append(issues, models.Issue{
				Type:              models.IssueImageWithoutDimensions,
				ElementDescriptor: desc,
				Contribution:      shares[i],
				Suggestion:        pack.Suggestion(models.IssueImageWithoutDimensions),
				Timestamp:         rec.StartTime,
			})
		}

		if pack.Enabled(models.IssueWebFontShift) &&
			src.Element.ContainsText && recentFontLoad(rec.StartTime, ev.FontLoadTimes) {
			issues = append(issues, models.Issue{
				Type:              models.IssueWebFontShift,
				ElementDescriptor: desc,
				Contribution:      shares[i],
				Suggestion:        pack.Suggestion(models.IssueWebFontShift),
				Timestamp:         rec.StartTime,
			})
		}

		if src.Element.NewlyInserted && src.PreviousRect.Area() == 0 {
			t := models.IssueDynamicContent
			if adLike(src.Element) {
				t = models.IssueAdEmbedShift
			}
			if pack.Enabled(t) {
				issues = append(issues, models.Issue{
					Type:              t,
					ElementDescriptor: desc,
					Contribution:      shares[i],
					Suggestion:        pack.Suggestion(t),
					Timestamp:         rec.StartTime,
				})
			}
		}

		if pack.Enabled(models.IssueAnimationShift) &&
			rec.Score < animationMaxShiftSize &&
			ev.WindowStreaks[desc] >= animationStreakMin {
			issues = append(issues, models.Issue{
				Type:              models.IssueAnimationShift,
				ElementDescriptor: desc,
				Contribution:      shares[i],
				Suggestion:        pack.Suggestion(models.IssueAnimationShift),
				Timestamp:         rec.StartTime,
			})
		}
	}
	return issues
}

// ClassifyInteraction inspects one interaction record and emits zero or
// more issues. Numeric phase rules stay active even when attribution
// tracking is disabled.
func ClassifyInteraction(rec models.InteractionRecord, opts Options, pack *RulePack) []models.Issue {
	if !opts.DetectIssues || pack == nil {
		return nil
	}
	longTask := opts.LongTaskThreshold
	if longTask <= 0 {
		longTask = DefaultOptions().LongTaskThreshold
	}

	var issues []models.Issue
	target := rec.Target.Describe()

	switch {
	case pack.Enabled(models.IssueLongTask) && rec.Phases.ProcessingDuration >= longTask:
		issues = append(issues, models.Issue{
			Type:              models.IssueLongTask,
			ElementDescriptor: target,
			Contribution:      rec.Phases.ProcessingDuration,
			Suggestion:        pack.Suggestion(models.IssueLongTask),
			Timestamp:         rec.StartTime,
			Phase:             models.PhaseProcessing,
		})
	case pack.Enabled(models.IssueHeavyEventHandler) && rec.Phases.ProcessingDuration >= heavyHandlerFraction*longTask:
		issues = append(issues, models.Issue{
			Type:              models.IssueHeavyEventHandler,
			ElementDescriptor: target,
			Contribution:      rec.Phases.ProcessingDuration,
			Suggestion:        pack.Suggestion(models.IssueHeavyEventHandler),
			Timestamp:         rec.StartTime,
			Phase:             models.PhaseProcessing,
		})
	}

	if rec.Latency > 0 {
		if pack.Enabled(models.IssueHighInputDelay) && rec.Phases.InputDelay > dominantPhaseShare*rec.Latency {
			issues = append(issues, models.Issue{
				Type:              models.IssueHighInputDelay,
				ElementDescriptor: target,
				Contribution:      rec.Phases.InputDelay,
				Suggestion:        pack.Suggestion(models.IssueHighInputDelay),
				Timestamp:         rec.StartTime,
				Phase:             models.PhaseInputDelay,
			})
		}
		if pack.Enabled(models.IssueHighPresentationDelay) && rec.Phases.PresentationDelay > dominantPhaseShare*rec.Latency {
			issues = append(issues, models.Issue{
				Type:              models.IssueHighPresentationDelay,
				ElementDescriptor: target,
				Contribution:      rec.Phases.PresentationDelay,
				Suggestion:        pack.Suggestion(models.IssueHighPresentationDelay),
				Timestamp:         rec.StartTime,
				Phase:             models.PhasePresentation,
			})
		}
	}

	if opts.TrackAttribution && pack.Enabled(models.IssueThirdPartyScript) {
		for _, script := range rec.Scripts {
			if script.SourceURL == "" {
				continue
			}
			if !script.ThirdParty && !foreignOrigin(script.SourceURL, opts.PageOrigin) {
				continue
			}
			issues = append(issues, models.Issue{
				Type:              models.IssueThirdPartyScript,
				ElementDescriptor: script.SourceURL,
				Contribution:      script.Duration,
				Suggestion:        pack.Suggestion(models.IssueThirdPartyScript),
				Timestamp:         rec.StartTime,
				Phase:             models.PhaseProcessing,
			})
		}
	}
	return issues
}

// sourceShares splits the shift score across sources in proportion to the
// screen area each one moved. Degenerate geometry falls back to an even
// split so the contributions still sum to the shift score.
func sourceShares(rec models.LayoutShiftRecord) []float64 {
	shares := make([]float64, len(rec.Sources))
	total := 0.0
	for i, src := range rec.Sources {
		impact := src.PreviousRect.Area() + src.CurrentRect.Area()
		shares[i] = impact
		total += impact
	}
	if total == 0 {
		for i := range shares {
			shares[i] = rec.Score / float64(len(shares))
		}
		return shares
	}
	for i := range shares {
		shares[i] = shares[i] / total * rec.Score
	}
	return shares
}

func recentFontLoad(shiftTime float64, fontLoads []float64) bool {
	for _, t := range fontLoads {
		if delta := shiftTime - t; delta >= 0 && delta <= fontShiftWindowMs {
			return true
		}
	}
	return false
}

func adLike(e models.ElementRef) bool {
	if strings.EqualFold(e.Tag, "iframe") {
		return true
	}
	for _, hint := range []string{e.ElementID, e.ClassName, e.Selector} {
		lower := strings.ToLower(hint)
		if strings.Contains(lower, "ad-") || strings.Contains(lower, "-ad") ||
			strings.Contains(lower, "advert") || strings.Contains(lower, "sponsor") {
			return true
		}
	}
	return false
}

func foreignOrigin(scriptURL, pageOrigin string) bool {
	if pageOrigin == "" {
		return false
	}
	script, err := url.Parse(scriptURL)
	if err != nil || script.Host == "" {
		return false
	}
	page, err := url.Parse(pageOrigin)
	if err != nil || page.Host == "" {
		return false
	}
	return !strings.EqualFold(script.Host, page.Host)
}
