// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package concepts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		p       types.Proposal
		harvest bool
		want    []string
	}{
		{
			name: "keywords verbatim in order",
			p: types.Proposal{
				Keywords: []string{"Hypersonic Glide", "boost-glide", "TPS materials"},
			},
			want: []string{"Hypersonic Glide", "boost-glide", "TPS materials"},
		},
		{
			name: "case-insensitive dedup keeps first casing",
			p: types.Proposal{
				Keywords: []string{"Radar", "radar", "RADAR", "lidar"},
			},
			want: []string{"Radar", "lidar"},
		},
		{
			name: "blank keywords skipped",
			p: types.Proposal{
				Keywords: []string{"  ", "quantum sensing", ""},
			},
			want: []string{"quantum sensing"},
		},
		{
			name: "no keywords and no harvest is empty",
			p: types.Proposal{
				Title:       "Autonomous underwater vehicle swarms",
				Description: "Coordination strategies for contested littorals.",
			},
			want: nil,
		},
		{
			name: "harvest filters stopwords and short words",
			p: types.Proposal{
				Title:       "A novel study of swarm coordination",
				Description: "We use ML to do it",
			},
			harvest: true,
			want:    []string{"swarm", "coordination"},
		},
		{
			name: "harvested words dedup against keywords",
			p: types.Proposal{
				Title:    "Swarm coordination for littorals",
				Keywords: []string{"Swarm"},
			},
			harvest: true,
			want:    []string{"Swarm", "coordination", "littorals"},
		},
		{
			name: "hyphenated words survive tokenization",
			p: types.Proposal{
				Title: "Boost-glide reentry dynamics",
			},
			harvest: true,
			want:    []string{"boost-glide", "reentry", "dynamics"},
		},
		{
			name: "numeric tokens dropped",
			p: types.Proposal{
				Title: "Mach 5.5 flight regimes (2024 survey)",
			},
			harvest: true,
			want:    []string{"mach", "flight", "regimes", "survey"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.p, tt.harvest))
		})
	}
}

func TestExtractCapsAtTwenty(t *testing.T) {
	var p types.Proposal
	for i := 0; i < 30; i++ {
		p.Keywords = append(p.Keywords, fmt.Sprintf("keyword-%02d", i))
	}

	got := Extract(p, false)
	assert.Len(t, got, MaxConcepts)
	assert.Equal(t, "keyword-00", got[0])
	assert.Equal(t, "keyword-19", got[len(got)-1])
}

func TestExtractCapAppliesAcrossSources(t *testing.T) {
	p := types.Proposal{Title: "alpha-field beta-field gamma-field"}
	for i := 0; i < 19; i++ {
		p.Keywords = append(p.Keywords, fmt.Sprintf("kw-%02d", i))
	}

	got := Extract(p, true)
	assert.Len(t, got, MaxConcepts)
	// Only one harvested word fits after nineteen keywords.
	assert.Equal(t, "alpha-field", got[19])
}
