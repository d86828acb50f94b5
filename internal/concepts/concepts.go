// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package concepts derives a bounded set of salient terms from a proposal.
// The terms feed the ranker's IDF-weighted concept-coverage score.
package concepts

import (
	"strings"
	"unicode"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// MaxConcepts caps the number of extracted terms.
const MaxConcepts = 20

const minWordLength = 3

// stopwords are excluded when harvesting words from free text. The list
// mixes common English function words with terms so generic in research
// writing that they match nearly every abstract.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "can": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "our": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "these": {}, "this": {}, "to": {},
	"was": {}, "we": {}, "were": {}, "which": {}, "will": {}, "with": {},

	"analysis": {}, "application": {}, "applications": {}, "approach": {},
	"based": {}, "development": {}, "method": {}, "methods": {},
	"new": {}, "novel": {}, "research": {}, "study": {}, "system": {},
	"systems": {}, "toward": {}, "towards": {}, "use": {}, "using": {},
}

// Extract returns up to MaxConcepts terms for the proposal, deduplicated
// case-insensitively with first occurrence winning. Explicit keywords come
// first, verbatim and in order. When harvestWords is set, significant
// single words from the title and description are appended in lowercase.
//
// Harvesting is off by default in the pipeline: auto-extracted words tend
// to be generic, match many publications, and earn low IDF weights that
// drag the composite score down. Explicit keywords carry the signal.
func Extract(p types.Proposal, harvestWords bool) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(term string) bool {
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		out = append(out, term)
		return len(out) >= MaxConcepts
	}

	for _, kw := range p.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if add(kw) {
			return out
		}
	}

	if harvestWords {
		for _, word := range splitWords(p.Title + " " + p.Description) {
			word = strings.ToLower(strings.Trim(word, "-"))
			if len(word) < minWordLength || !containsLetter(word) {
				continue
			}
			if _, stop := stopwords[word]; stop {
				continue
			}
			if add(word) {
				return out
			}
		}
	}

	return out
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// splitWords tokenizes free text into words, keeping intra-word hyphens
// ("boost-glide" stays one term).
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
