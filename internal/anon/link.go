package anon

import "strings"

// payloadPrefix marks anonymous-message deep links inside /start payloads.
const payloadPrefix = "anon_"

// DeepLink builds the t.me link a group member taps to send an anonymous
// message through the bot.
func DeepLink(botUsername, token string) string {
	return "https://t.me/" + strings.TrimPrefix(botUsername, "@") + "?start=" + payloadPrefix + token
}

// ParseStartPayload extracts the group token from a /start payload. Returns
// false for payloads that are not anonymous-message links.
func ParseStartPayload(payload string) (string, bool) {
	token, ok := strings.CutPrefix(strings.TrimSpace(payload), payloadPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
