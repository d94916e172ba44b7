package provision

import "encoding/json"

const (
	// BotProfile is the voice bot profile requested for every session.
	BotProfile = "voice_2024_08"
	// MaxDurationSeconds caps the lifetime of a provisioned session.
	MaxDurationSeconds = 600
)

// Payload is the body sent to the bot provisioning API.
type Payload struct {
	BotProfile  string            `json:"bot_profile"`
	MaxDuration int               `json:"max_duration"`
	Services    json.RawMessage   `json:"services"`
	Config      []json.RawMessage `json:"config"`
}

// BuildPayload combines the caller's services and config with the fixed
// profile fields. Config gets a fresh backing array; Services and every
// config entry are cloned so the payload never aliases the inbound body.
func BuildPayload(services json.RawMessage, config []json.RawMessage) Payload {
	cfg := make([]json.RawMessage, 0, len(config))
	for _, entry := range config {
		cfg = append(cfg, cloneRaw(entry))
	}
	return Payload{
		BotProfile:  BotProfile,
		MaxDuration: MaxDurationSeconds,
		Services:    cloneRaw(services),
		Config:      cfg,
	}
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
