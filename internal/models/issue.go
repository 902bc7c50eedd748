package models

// IssueType is the closed taxonomy of diagnosable root causes. Adding a type
// requires extending the classifier's exhaustive switch.
type IssueType string

const (
	IssueImageWithoutDimensions IssueType = "image-without-dimensions"
	IssueWebFontShift           IssueType = "web-font-shift"
	IssueAdEmbedShift           IssueType = "ad-embed-shift"
	IssueDynamicContent         IssueType = "dynamic-content"
	IssueAnimationShift         IssueType = "animation-shift"
	IssueLongTask               IssueType = "long-task"
	IssueHeavyEventHandler      IssueType = "heavy-event-handler"
	IssueHighInputDelay         IssueType = "high-input-delay"
	IssueHighPresentationDelay  IssueType = "high-presentation-delay"
	IssueThirdPartyScript       IssueType = "third-party-script"
)

// IssueTypes lists every taxonomy member in a stable order.
func IssueTypes() []IssueType {
	return []IssueType{
		IssueImageWithoutDimensions,
		IssueWebFontShift,
		IssueAdEmbedShift,
		IssueDynamicContent,
		IssueAnimationShift,
		IssueLongTask,
		IssueHeavyEventHandler,
		IssueHighInputDelay,
		IssueHighPresentationDelay,
		IssueThirdPartyScript,
	}
}

// InteractionPhase labels which latency phase an interaction issue blames.
type InteractionPhase string

const (
	PhaseInputDelay   InteractionPhase = "input-delay"
	PhaseProcessing   InteractionPhase = "processing"
	PhasePresentation InteractionPhase = "presentation-delay"
)

// Issue is one classified observation with an actionable suggestion.
// ElementDescriptor is empty when no element evidence was available and
// Phase is set only for interaction issues.
type Issue struct {
	Type              IssueType        `json:"type"`
	ElementDescriptor string           `json:"element_descriptor,omitempty"`
	Contribution      float64          `json:"contribution"`
	Suggestion        string           `json:"suggestion"`
	Timestamp         float64          `json:"timestamp"`
	Phase             InteractionPhase `json:"phase,omitempty"`
}
