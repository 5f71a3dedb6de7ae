// Package services – FAQ matcher
//
// This file implements the FAQ short-circuit: answering a visitor's message
// from the business's configured question/answer list without calling the
// completion provider. Matching is intentionally loose (bidirectional
// substring) so very short FAQ questions over-match; that permissiveness is
// a documented product decision, not an oversight.
package services

import (
	"strings"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// MatchFAQ returns the answer of the first FAQ that matches message, or
// ("", false) when nothing matches. Comparison is case-insensitive and
// whitespace-trimmed. Per entry, in list order: exact equality first, then
// substring containment in either direction. First hit wins.
func MatchFAQ(message string, faqs []domain.FAQ) (string, bool) {
	if len(faqs) == 0 {
		return "", false
	}
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return "", false
	}

	for _, faq := range faqs {
		q := strings.ToLower(strings.TrimSpace(faq.Question))
		if q == "" {
			continue
		}
		if msg == q {
			return faq.Answer, true
		}
		if strings.Contains(msg, q) || strings.Contains(q, msg) {
			return faq.Answer, true
		}
	}
	return "", false
}
