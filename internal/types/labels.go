package types

// DefaultSpeakerLabel is the placeholder used until a display name is resolved downstream.
const DefaultSpeakerLabel = "Speaker"

// SpeakerLabels maps speaker ids to display labels for a single run.
type SpeakerLabels map[string]string

func (l SpeakerLabels) Label(speakerID *string) string {
	if speakerID == nil {
		return DefaultSpeakerLabel
	}
	if v, ok := l[*speakerID]; ok && v != "" {
		return v
	}
	return DefaultSpeakerLabel
}
