// Package trigger classifies inbound group messages into at most one
// trigger category. Classification is a pure function of the message text
// and reply context: the same input always yields the same category.
package trigger

import (
	"strings"
)

// Category is the classification outcome for one inbound message.
type Category string

const (
	None                  Category = ""
	MediaPhotoRequest     Category = "media_photo_request"
	MediaVideoRequest     Category = "media_video_request"
	SadMediaRequest       Category = "sad_media_request"
	DecorationTrigger     Category = "decoration_trigger"
	StretchedVowelTrigger Category = "stretched_vowel_trigger"
	SorrowTrigger         Category = "sorrow_trigger"
	GreetingTrigger       Category = "greeting_trigger"
	DecisionTrigger       Category = "decision_trigger"
	IdentityQuery         Category = "identity_query"
	AnonLinkRequest       Category = "anon_link_request"
	NameMention           Category = "name_mention"
	ModeratorWord         Category = "moderator_word"
	SpecialUserReply      Category = "special_user_reply"
)

// Event is the immutable classification input built from one inbound message.
type Event struct {
	RawText    string
	Normalized string
	Tokens     []string

	ChatID    int64
	MessageID int
	SenderID  int64

	// SenderUsername and ReplyToUsername feed the special-user gate.
	SenderUsername  string
	ReplyToUsername string
}

// NewEvent normalizes raw text and fills the derived fields.
func NewEvent(rawText string, chatID int64, messageID int, senderID int64) Event {
	normalized := Normalize(rawText)
	return Event{
		RawText:    rawText,
		Normalized: normalized,
		Tokens:     Tokens(normalized),
		ChatID:     chatID,
		MessageID:  messageID,
		SenderID:   senderID,
	}
}

var (
	nameTriggers = map[string]bool{
		"алдик":  true,
		"алдияр": true,
		"алдош":  true,
		"алдок":  true,
		"адиял":  true,
		"одеяло": true,
	}

	photoPrefixes = []string{"пото", "фото", "фотк"}
	videoPrefixes = []string{"видо", "видео"}
	sadPrefixes   = []string{"груст", "печал"}

	greetingTokens = map[string]bool{
		"салам":             true,
		"салем":             true,
		"привет":            true,
		"здарова":           true,
		"ассаламуалейкум":   true,
		"ассалаумагалейкум": true,
	}

	whoAmIPhrases = map[string]bool{
		"алдик кто я":    true,
		"алдик мен кммн": true,
	}

	decisionPhrases = map[string]bool{
		"делать или не делать": true,
		"алдик делать или нет": true,
	}

	// Exact-phrase set only: phrases containing a sad prefix ("мне
	// грустно") are already claimed by the sad-media rule above it.
	sorrowPhrases = map[string]bool{
		"жылагым келп тур": true,
		"конлм жок":        true,
	}

	// Matched against normalized tokens: tokenization supplies the word
	// boundaries (RE2 \b is ASCII-only and never fires next to Cyrillic),
	// so «модерн» or «супермодератор» don't count.
	moderatorTokens = map[string]bool{
		"модер":     true,
		"модератор": true,
	}
)

// rule pairs a predicate with the category it yields. Rules are evaluated
// in order; the first match wins.
type rule struct {
	category Category
	match    func(Event) bool
}

var rules = []rule{
	{MediaPhotoRequest, func(e Event) bool {
		return hasNameTrigger(e.Tokens) && hasTokenWithAnyPrefix(e.Tokens, photoPrefixes, "photo")
	}},
	{MediaVideoRequest, func(e Event) bool {
		return hasNameTrigger(e.Tokens) && hasTokenWithAnyPrefix(e.Tokens, videoPrefixes, "video")
	}},
	{SadMediaRequest, func(e Event) bool {
		return hasTokenWithAnyPrefix(e.Tokens, sadPrefixes, "")
	}},
	{SorrowTrigger, func(e Event) bool {
		return sorrowPhrases[e.Normalized]
	}},
	{DecorationTrigger, func(e Event) bool {
		for _, tok := range e.Tokens {
			if strings.HasPrefix(tok, "паршк") || tok == "парошка" {
				return true
			}
		}
		return false
	}},
	{StretchedVowelTrigger, func(e Event) bool {
		for _, tok := range e.Tokens {
			if hasStretchedVowels(tok) {
				return true
			}
		}
		return false
	}},
	{GreetingTrigger, func(e Event) bool {
		for _, tok := range e.Tokens {
			if greetingTokens[tok] {
				return true
			}
		}
		return false
	}},
	{DecisionTrigger, func(e Event) bool {
		return decisionPhrases[e.Normalized]
	}},
	{IdentityQuery, func(e Event) bool {
		return whoAmIPhrases[e.Normalized]
	}},
	{AnonLinkRequest, func(e Event) bool {
		if !tokenPresent(e.Tokens, "алдик") {
			return false
		}
		return hasTokenWithAnyPrefix(e.Tokens, []string{"ссыл"}, "") ||
			hasTokenWithAnyPrefix(e.Tokens, []string{"анон"}, "")
	}},
	{NameMention, func(e Event) bool {
		return hasNameTrigger(e.Tokens)
	}},
	{ModeratorWord, func(e Event) bool {
		for _, tok := range e.Tokens {
			if moderatorTokens[tok] {
				return true
			}
		}
		return false
	}},
}

// Classify returns the event's category, or None when nothing matches.
// Callers must no-op on None.
func Classify(e Event) Category {
	for _, r := range rules {
		if r.match(e) {
			return r.category
		}
	}
	return None
}

// IsSpecialUserReply reports whether the event is the configured user
// replying to the configured target. This gate is independent of Classify:
// it can fire alongside a token-based category.
func IsSpecialUserReply(e Event, senderHandle, targetHandle string) bool {
	if senderHandle == "" || targetHandle == "" {
		return false
	}
	return strings.EqualFold(e.SenderUsername, senderHandle) &&
		strings.EqualFold(e.ReplyToUsername, targetHandle)
}

func hasNameTrigger(tokens []string) bool {
	for _, tok := range tokens {
		if nameTriggers[tok] {
			return true
		}
	}
	return false
}

func tokenPresent(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

func hasTokenWithAnyPrefix(tokens, prefixes []string, exact string) bool {
	for _, tok := range tokens {
		if exact != "" && tok == exact {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(tok, p) {
				return true
			}
		}
	}
	return false
}

var cyrillicVowels = map[rune]bool{
	'а': true, 'е': true, 'и': true, 'о': true, 'у': true,
	'ы': true, 'э': true, 'ю': true, 'я': true, 'ё': true,
	'і': true, 'ә': true, 'ө': true, 'ұ': true, 'ү': true,
}

// hasStretchedVowels reports whether the token contains a run of 2+ of one
// vowel immediately followed by a run of 2+ of a different vowel
// ("аааууу", "оооиии"). Go's regexp has no backreferences, so this is a
// plain rune scan over runs.
func hasStretchedVowels(token string) bool {
	var prevRune rune
	var prevLen, runLen int
	for _, r := range token {
		if r == prevRune {
			runLen++
		} else {
			if prevLen >= 2 && runLen >= 2 {
				return true
			}
			if cyrillicVowels[prevRune] {
				prevLen = runLen
			} else {
				prevLen = 0
			}
			prevRune = r
			runLen = 1
		}
		if !cyrillicVowels[r] {
			prevRune, prevLen, runLen = r, 0, 0
		}
	}
	return prevLen >= 2 && runLen >= 2
}
