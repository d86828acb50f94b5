// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// LoadProposal reads a proposal from a YAML file. A missing branch
// defaults to navy.
func LoadProposal(path string) (types.Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Proposal{}, fmt.Errorf("reading proposal file: %w", err)
	}
	var p types.Proposal
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.Proposal{}, fmt.Errorf("parsing proposal file: %w", err)
	}
	if p.Title == "" {
		return types.Proposal{}, fmt.Errorf("proposal file %s has no title", path)
	}
	if p.Branch == "" {
		p.Branch = types.BranchNavy
	}
	return p, nil
}

// SaveProposal writes a proposal to a YAML file.
func SaveProposal(path string, p types.Proposal) error {
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshaling proposal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing proposal file: %w", err)
	}
	return nil
}
