// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the novelty-engine
// pipeline: the research proposal under assessment, retrieved publications,
// similarity results, deterministic scoring outputs, and the final report.
package types

// Proposal is the research topic under assessment. Immutable once
// constructed; input to encoding, concept extraction, and query generation.
type Proposal struct {
	// Title is the research topic title.
	Title string `json:"title" yaml:"title"`

	// Description is the free-text description of the research area.
	Description string `json:"description" yaml:"description"`

	// Keywords lists explicit keyword phrases in user order.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Branch is the funding branch of interest (default navy).
	Branch Branch `json:"branch" yaml:"branch"`

	// Context is optional free-text research focus context.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// SearchQuery is one generated corpus query derived from a proposal.
type SearchQuery struct {
	// Text is the query string sent to the publication source.
	Text string `json:"text" yaml:"text"`

	// Strategy names how the query was derived: "title", "keywords",
	// "topic_excerpt", or "combined".
	Strategy string `json:"strategy" yaml:"strategy"`
}
