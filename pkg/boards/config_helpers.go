package boards

import "strings"

// ConfigString returns the trimmed string value for key from board.Config or a fallback.
func ConfigString(b Board, key, fallback string) string {
	if b.Config != nil {
		if raw, ok := b.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
)

// Headers builds the extra request headers a board asks for. Accept defaults
// to JSON since every board endpoint answers with it.
func Headers(b Board) map[string]string {
	headers := map[string]string{"Accept": "application/json"}

	if v := ConfigString(b, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(b, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(b, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}
	return headers
}
