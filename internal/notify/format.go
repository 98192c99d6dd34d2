package notify

import (
	"fmt"
	"strings"

	"github.com/zulandar/atelier/internal/lifecycle"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// stateVerb returns a human-friendly verb for a state change.
func stateVerb(newState string) string {
	switch newState {
	case lifecycle.StateInProgress:
		return "started"
	case lifecycle.StateApproved:
		return "approved"
	default:
		return "moved to " + newState
	}
}

// stateColor returns the sidebar color for a state.
func stateColor(newState string) string {
	switch newState {
	case lifecycle.StateApproved:
		return ColorSuccess
	default:
		return ColorInfo
	}
}

// Format converts a detected event into its chat representation.
func Format(event Event) FormattedEvent {
	switch event.Type {
	case EventNewArtifact:
		return formatNewArtifact(event)
	case EventDigest:
		return FormatDigest(event.Digest)
	default:
		return formatStateChange(event)
	}
}

func formatStateChange(event Event) FormattedEvent {
	title := fmt.Sprintf("%s %s", event.ArtifactName, stateVerb(event.NewState))

	var bodyParts []string
	if event.ProjectName != "" {
		bodyParts = append(bodyParts, event.ProjectName)
	}
	if event.OldState != "" {
		bodyParts = append(bodyParts, fmt.Sprintf("%s to %s", event.OldState, event.NewState))
	}

	fields := []Field{
		{Name: "Project", Value: event.ProjectName, Short: true},
		{Name: "State", Value: event.NewState, Short: true},
	}
	if event.TypeName != "" {
		fields = append(fields, Field{Name: "Type", Value: event.TypeName, Short: true})
	}

	return FormattedEvent{
		Title:  title,
		Body:   strings.Join(bodyParts, "\n"),
		Color:  stateColor(event.NewState),
		Fields: fields,
	}
}

func formatNewArtifact(event Event) FormattedEvent {
	return FormattedEvent{
		Title: fmt.Sprintf("New artifact: %s", event.ArtifactName),
		Body:  fmt.Sprintf("%s (%s) created in %s", event.ArtifactName, event.TypeName, event.ProjectName),
		Color: ColorInfo,
		Fields: []Field{
			{Name: "Project", Value: event.ProjectName, Short: true},
			{Name: "Type", Value: event.TypeName, Short: true},
		},
	}
}
