// Package services – lead detection heuristics
//
// This file implements the pure string heuristics that spot contact details
// in a visitor's message and decide when the bot should ask for them. They
// are deliberately simple regex scans: false negatives are expected and
// acceptable, and no input may make them panic.
package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
)

var (
	emailRe = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	phoneRe = regexp.MustCompile(`(\+\d{1,3})?[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

	// Anchored name patterns, tried in order; the first acceptable capture wins.
	nameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)my name is ([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)I am ([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)I'm ([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)this is ([A-Za-z\s]+)`),
	}

	trailingPunct = regexp.MustCompile(`[,.!?]$`)

	nameCaser = cases.Title(language.English)
)

// Words the name heuristic treats as evidence the capture is a sentence
// fragment rather than a person's name.
var notNameWords = []string{"interested", "looking"}

// DetectLeadInfo scans a message for an email address, a phone number, and
// a self-introduced name. Empty fields mean "not found". First regex match
// wins for email and phone; name captures longer than four words or
// containing fragment words are discarded.
func DetectLeadInfo(message string) repo.LeadInfo {
	var info repo.LeadInfo

	if m := emailRe.FindString(message); m != "" {
		info.Email = m
	}
	if m := phoneRe.FindString(message); m != "" {
		info.Phone = strings.TrimSpace(m)
	}

	for _, re := range nameRes {
		m := re.FindStringSubmatch(message)
		if m == nil || m[1] == "" {
			continue
		}
		name := trailingPunct.ReplaceAllString(strings.TrimSpace(m[1]), "")
		if name == "" || len(strings.Fields(name)) > 4 {
			continue
		}
		low := strings.ToLower(name)
		fragment := false
		for _, w := range notNameWords {
			if strings.Contains(low, w) {
				fragment = true
				break
			}
		}
		if fragment {
			continue
		}
		info.Name = nameCaser.String(low)
		break
	}

	return info
}

// Contact-ask markers in an assistant message and interest markers in a
// visitor message, per the capture gate policy.
var (
	contactAskWords = []string{"email", "phone", "contact", "reach you"}
	interestWords   = []string{"service", "product", "offer", "appointment", "booking", "schedule"}
)

// ShouldCaptureLead reports whether the latest visitor message should be
// treated as a lead-capture moment: either the bot just asked for contact
// details and the visitor supplied some, or the visitor is asking about
// services/products and supplied contact details unprompted.
func ShouldCaptureLead(history []domain.ChatLog, latest string) bool {
	if len(history) == 0 {
		return false
	}
	msg := strings.ToLower(latest)

	hasContact := emailRe.MatchString(latest) || phoneRe.MatchString(latest)
	if !hasContact {
		return false
	}

	lastBot := strings.ToLower(history[len(history)-1].BotResponse)
	if containsAny(lastBot, contactAskWords) {
		return true
	}
	return containsAny(msg, interestWords)
}

// BotAskedForContact reports whether any assistant message in the window
// already requested contact details. The orchestrator uses it to avoid
// nagging the visitor with the same ask turn after turn.
func BotAskedForContact(history []domain.ChatLog) bool {
	for _, h := range history {
		if containsAny(strings.ToLower(h.BotResponse), contactAskWords) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
