// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval queries the DTIC Dimensions discovery endpoint and
// normalizes its raw documents into publications. Per-request failures
// are treated as the end of pagination, never as a fatal error: an empty
// result set is a valid, reportable outcome.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/novelty-engine/internal/httputil"
	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// Endpoint bases. Declared as vars so tests can substitute an httptest
// server; the navigation cursor returns relative URLs that must resolve
// against dimensionsBase.
var (
	dimensionsBase   = "https://dtic.dimensions.ai"
	dimensionsSearch = dimensionsBase + "/discover/publication/results.json"
)

const (
	searchMode  = "content"
	searchType  = "kws"
	searchField = "full_search"

	defaultUserAgent = "novelty-engine/0.1 " +
		"(research landscape assessment; respectful automated access)"
	defaultMaxPages     = 5
	defaultRequestDelay = 2 * time.Second
	defaultTimeout      = 30 * time.Second
)

// Source retrieves publications for search queries. DimensionsSource is
// the production implementation; the pipeline depends only on this.
type Source interface {
	Search(ctx context.Context, query types.SearchQuery) ([]types.Publication, error)
	SearchAll(ctx context.Context, queries []types.SearchQuery) ([]types.Publication, error)
	FetchDetails(ctx context.Context, pubs []types.Publication) ([]types.Publication, error)
}

// DimensionsSource pages through the Dimensions results.json endpoint.
type DimensionsSource struct {
	// Metrics records page and publication counts when set.
	Metrics *metrics.Metrics

	cfg     types.RetrievalConfig
	client  *http.Client
	limiter *rate.Limiter
	w       io.Writer
}

// NewDimensions builds a source with the configured politeness delay.
// Progress lines go to w; pass nil to discard them.
func NewDimensions(cfg types.RetrievalConfig, w io.Writer) *DimensionsSource {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = defaultRequestDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if w == nil {
		w = io.Discard
	}
	return &DimensionsSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		w:       w,
	}
}

// searchPage is one results.json page.
type searchPage struct {
	Docs       []searchDoc    `json:"docs"`
	Navigation pageNavigation `json:"navigation"`
}

type pageNavigation struct {
	ResultsJSON string `json:"results_json"`
}

// searchDoc is a raw document from the endpoint. AuthorList is
// polymorphic across endpoint versions (a delimited string or a list of
// objects carrying full_name), and pub_year arrives as either a number
// or a string.
type searchDoc struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	ShortAbstract    string          `json:"short_abstract"`
	AuthorList       json.RawMessage `json:"author_list"`
	PubYear          any             `json:"pub_year"`
	JournalTitle     string          `json:"journal_title"`
	DOI              string          `json:"doi"`
	Acknowledgements string          `json:"acknowledgements"`
	FundingSection   string          `json:"funding_section"`
	TimesCited       int             `json:"times_cited"`
	Score            float64         `json:"score"`
}

// Search runs a single query, paginating until max pages, an empty page,
// a missing cursor, or a fetch failure.
func (s *DimensionsSource) Search(ctx context.Context, query types.SearchQuery) ([]types.Publication, error) {
	var publications []types.Publication
	pageURL := buildSearchURL(query.Text)

	for page := 0; page < s.cfg.MaxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return publications, err
		}

		data, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			slog.Warn("results page fetch failed", "strategy", query.Strategy, "page", page+1, "error", err)
			break
		}
		s.Metrics.RecordRetrievalPage()
		if len(data.Docs) == 0 {
			break
		}
		for _, doc := range data.Docs {
			publications = append(publications, parsePublication(doc))
		}

		next := data.Navigation.ResultsJSON
		if next == "" {
			break
		}
		pageURL = resolveNext(next)
	}

	fmt.Fprintf(s.w, "Query %q returned %d publications\n", query.Strategy, len(publications))
	return publications, nil
}

// SearchAll runs the queries in order and deduplicates by exact
// publication identifier, first occurrence winning. Documents without an
// identifier cannot be deduplicated and are dropped here.
func (s *DimensionsSource) SearchAll(ctx context.Context, queries []types.SearchQuery) ([]types.Publication, error) {
	seen := make(map[string]struct{})
	var all []types.Publication

	for _, query := range queries {
		pubs, err := s.Search(ctx, query)
		if err != nil {
			return all, err
		}
		for _, pub := range pubs {
			if pub.ID == "" {
				continue
			}
			if _, ok := seen[pub.ID]; ok {
				continue
			}
			seen[pub.ID] = struct{}{}
			all = append(all, pub)
		}
	}

	fmt.Fprintf(s.w, "Total unique publications across %d queries: %d\n", len(queries), len(all))
	s.Metrics.RecordPublications(len(all))
	return all, nil
}

// FetchDetails returns the publications unchanged. Dimensions detail
// pages are rendered client-side and expose no JSON endpoint, so the
// short abstracts from the search results stand in for full ones. Kept
// for interface compatibility with sources that do serve details.
func (s *DimensionsSource) FetchDetails(ctx context.Context, pubs []types.Publication) ([]types.Publication, error) {
	fmt.Fprintf(s.w, "Skipping detail fetch, using short abstracts for %d publications\n", len(pubs))
	return pubs, nil
}

func (s *DimensionsSource) fetchPage(ctx context.Context, pageURL string) (*searchPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results endpoint returned HTTP %d", resp.StatusCode)
	}

	var page searchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}
	return &page, nil
}

func buildSearchURL(text string) string {
	params := url.Values{
		"search_mode":  {searchMode},
		"search_text":  {text},
		"search_type":  {searchType},
		"search_field": {searchField},
	}
	return dimensionsSearch + "?" + params.Encode()
}

// resolveNext makes the navigation cursor absolute. The endpoint returns
// it relative to the site root.
func resolveNext(next string) string {
	if strings.HasPrefix(next, "/") {
		return dimensionsBase + next
	}
	return next
}

func parsePublication(doc searchDoc) types.Publication {
	branchText := strings.TrimSpace(doc.Acknowledgements + " " + doc.FundingSection)

	pub := types.Publication{
		ID:               doc.ID,
		Title:            doc.Title,
		ShortAbstract:    doc.ShortAbstract,
		Authors:          parseAuthors(doc.AuthorList),
		Year:             coerceYear(doc.PubYear),
		Journal:          doc.JournalTitle,
		DOI:              doc.DOI,
		Acknowledgements: doc.Acknowledgements,
		TimesCited:       doc.TimesCited,
		SourceScore:      doc.Score,
		Branches:         types.DetectBranches(branchText),
	}
	if pub.ID != "" {
		pub.URL = dimensionsBase + "/details/publication/" + pub.ID
	}
	return pub
}

// parseAuthors handles both shapes the endpoint has served: a single
// semicolon- or comma-delimited string, or a list whose entries are
// either objects with a full_name or plain strings.
func parseAuthors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		var authors []string
		for _, name := range strings.FieldsFunc(joined, func(r rune) bool { return r == ';' || r == ',' }) {
			if name = strings.TrimSpace(name); name != "" {
				authors = append(authors, name)
			}
		}
		return authors
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	var authors []string
	for _, entry := range list {
		var name string
		switch v := entry.(type) {
		case map[string]any:
			name, _ = v["full_name"].(string)
		case string:
			name = v
		}
		if name = strings.TrimSpace(name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func coerceYear(v any) int {
	switch y := v.(type) {
	case float64:
		return int(y)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			return n
		}
	}
	return 0
}
