package domain

import (
	"strings"
	"unicode"
)

// affirmativeReplies only count as consent when they make up a whole clause:
// "sí" opens conditionals ("si tiene cochera...") and "ok" opens hedges.
var affirmativeReplies = map[string]bool{
	"si": true, "sí": true, "si si": true, "sí sí": true, "dale": true, "ok": true, "okay": true,
	"claro": true, "claro que si": true, "claro que sí": true, "por supuesto": true, "de acuerdo": true,
	"perfecto": true, "yes": true, "agreed": true, "of course": true,
}

// consentVerbs may lead a longer clause: "acepto que me contacten".
var consentVerbs = []string{
	"acepto", "si acepto", "sí acepto", "autorizo", "si autorizo", "sí autorizo", "confirmo",
	"estoy de acuerdo", "i agree", "i accept", "i consent",
}

var negationWords = map[string]bool{
	"no": true, "nunca": true, "jamas": true, "jamás": true, "not": true, "don't": true, "dont": true,
}

const maxConsentWords = 8

// IsAffirmativeConsent reports whether text is an unambiguous yes: every
// clause is either a bare affirmative reply or starts with a consent verb.
// Messages that mostly carry identifiers (document numbers, phone numbers,
// emails) are never read as consent, nor is anything containing a negation.
func IsAffirmativeConsent(text string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" || strings.Contains(trimmed, "@") {
		return false
	}
	if looksLikeIdentifier(trimmed) {
		return false
	}

	clauses := strings.FieldsFunc(trimmed, func(r rune) bool {
		return strings.ContainsRune(",.;:!?\n", r)
	})
	total := 0
	affirmative := 0
	for _, clause := range clauses {
		words := strings.FieldsFunc(clause, func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		if len(words) == 0 {
			continue
		}
		total += len(words)
		for _, w := range words {
			if negationWords[w] {
				return false
			}
		}
		if !affirmativeClause(strings.Join(words, " ")) {
			return false
		}
		affirmative++
	}
	return affirmative > 0 && total <= maxConsentWords
}

func affirmativeClause(clause string) bool {
	if affirmativeReplies[clause] {
		return true
	}
	for _, verb := range consentVerbs {
		if clause == verb || strings.HasPrefix(clause, verb+" ") {
			return true
		}
	}
	return false
}

func looksLikeIdentifier(text string) bool {
	digits, significant := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		significant++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return significant > 0 && digits*10 >= significant*3
}
