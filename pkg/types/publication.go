// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Branch is a categorical funding-sponsor tag detected from acknowledgement
// and funding text via keyword pattern matching.
type Branch string

const (
	BranchNavy        Branch = "navy"
	BranchArmy        Branch = "army"
	BranchAirForce    Branch = "air_force"
	BranchDarpa       Branch = "darpa"
	BranchDoD         Branch = "dod"
	BranchMarineCorps Branch = "marine_corps"
	BranchSpaceForce  Branch = "space_force"
	BranchUnknown     Branch = "unknown"
)

// KnownBranches lists the selectable branches in stable order.
func KnownBranches() []Branch {
	return []Branch{
		BranchNavy, BranchArmy, BranchAirForce, BranchDarpa,
		BranchDoD, BranchMarineCorps, BranchSpaceForce, BranchUnknown,
	}
}

// branchPatterns maps each branch to the substrings that indicate its
// funding involvement. Matching is case-insensitive substring search, which
// is deliberately loose: detected branches are a weak heuristic signal for
// the verdict rules, not ground truth.
var branchPatterns = map[Branch][]string{
	BranchNavy: {
		"naval", "onr", "office of naval research", "nrl",
		"naval research laboratory", "n00014", "navy",
	},
	BranchArmy: {
		"aro", "arl", "army research office", "army research laboratory",
		"w911nf", "army",
	},
	BranchAirForce: {
		"afosr", "afrl", "air force office of scientific research",
		"air force research laboratory", "fa8650", "fa9550", "air force",
	},
	BranchDarpa:       {"darpa", "defense advanced research projects agency", "hr0011"},
	BranchDoD:         {"dod", "department of defense", "osd"},
	BranchMarineCorps: {"marine corps", "usmc", "marines"},
	BranchSpaceForce:  {"space force", "ussf"},
}

// DetectBranches scans acknowledgement or funding text for branch indicator
// patterns and returns every branch with at least one hit, in stable order.
// Empty text yields no branches.
func DetectBranches(text string) []Branch {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var branches []Branch
	for _, branch := range KnownBranches() {
		for _, pattern := range branchPatterns[branch] {
			if strings.Contains(lower, pattern) {
				branches = append(branches, branch)
				break
			}
		}
	}
	return branches
}

// Publication is a single record retrieved from the publication corpus.
// Immutable after ingestion; detected branches are computed once by the
// retrieval layer from acknowledgement and funding text.
type Publication struct {
	// ID is the stable external identifier (e.g. "pub.1234567890").
	ID string `json:"id" yaml:"id"`

	// Title is the publication title.
	Title string `json:"title" yaml:"title"`

	// ShortAbstract is the abstract variant returned by search results.
	ShortAbstract string `json:"short_abstract,omitempty" yaml:"short_abstract,omitempty"`

	// FullAbstract is the abstract variant from the detail page, when available.
	FullAbstract string `json:"full_abstract,omitempty" yaml:"full_abstract,omitempty"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Journal is the journal or venue title.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// DOI is the digital object identifier, when present.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Acknowledgements is the raw acknowledgement/funding text used for
	// branch detection.
	Acknowledgements string `json:"acknowledgements,omitempty" yaml:"acknowledgements,omitempty"`

	// TimesCited is the citation count reported by the source.
	TimesCited int `json:"times_cited" yaml:"times_cited"`

	// SourceScore is the source's own relevance score, kept for reference.
	SourceScore float64 `json:"source_score,omitempty" yaml:"source_score,omitempty"`

	// Branches holds the funding branches detected at ingestion.
	Branches []Branch `json:"branches,omitempty" yaml:"branches,omitempty"`

	// URL links to the publication's detail page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// BestAbstract returns the full abstract when present, else the short one.
func (p Publication) BestAbstract() string {
	if p.FullAbstract != "" {
		return p.FullAbstract
	}
	return p.ShortAbstract
}

// HasBranch reports whether the publication's detected branches include b.
func (p Publication) HasBranch(b Branch) bool {
	for _, detected := range p.Branches {
		if detected == b {
			return true
		}
	}
	return false
}
