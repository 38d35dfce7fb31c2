// Package router maps a user request to an execution tier. The selection is
// a pure function of the request text: keyword checks in strict priority
// order, with a word-count guard on the smalltalk shortcut.
package router

import (
	"strings"
)

// Tier identifies an execution profile (cost/latency/capability trade-off).
type Tier string

const (
	// TierFast serves short smalltalk on the cheapest model.
	TierFast Tier = "fast"
	// TierCapable is the default tier for everything with substance.
	TierCapable Tier = "capable"
	// TierCapableSearch adds live web search grounding on top of the
	// capable tier.
	TierCapableSearch Tier = "capable_search"
)

// searchKeywords signal intent that needs live web results.
var searchKeywords = []string{
	"search", "google", "find online", "latest news", "current events", "web",
}

// actionKeywords signal a side-effecting communication or scheduling intent.
// These are never delegated to the fast tier: the cheap model has been seen
// confusing "send" with "draft".
var actionKeywords = []string{
	"email", "send", "schedule",
}

// smalltalkKeywords match short greetings and trivially simple questions.
var smalltalkKeywords = []string{
	"hi", "hello", "hey", "what time", "date", "weather", "thanks", "thank you",
}

const smalltalkWordLimit = 15

// Select returns the execution tier for the given user text. It is total
// and deterministic: every input maps to exactly one tier.
func Select(userText string) Tier {
	text := strings.ToLower(strings.TrimSpace(userText))
	words := len(strings.Fields(text))

	if containsAny(text, searchKeywords) {
		return TierCapableSearch
	}
	if containsAny(text, actionKeywords) {
		return TierCapable
	}
	if containsAny(text, smalltalkKeywords) && words < smalltalkWordLimit {
		return TierFast
	}
	return TierCapable
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Models maps each tier to a concrete model name.
type Models struct {
	Fast          string
	Capable       string
	CapableSearch string
}

// ModelFor returns the model name configured for the given tier.
func (m Models) ModelFor(tier Tier) string {
	switch tier {
	case TierFast:
		return m.Fast
	case TierCapableSearch:
		return m.CapableSearch
	default:
		return m.Capable
	}
}
