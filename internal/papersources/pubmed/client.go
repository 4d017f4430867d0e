package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/observability"
	"github.com/helixir/abstract-wordstats/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxResults is the default number of PMIDs requested per search.
	DefaultMaxResults = 9999

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// DefaultTool identifies this program to NCBI.
	DefaultTool = "abstract-wordstats"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 64 << 20

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"

	// metricsSource labels metrics emitted by this client.
	metricsSource = "pubmed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	APIKey string

	// Email is the contact address NCBI asks heavy users to send.
	Email string

	// Tool names this program in requests. Defaults to DefaultTool.
	Tool string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Zero selects the rate NCBI
	// allows for APIKey.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the default number of PMIDs per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// MaxRetries, RetryDelay and MaxRetryDelay configure HTTP retries.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// Metrics receives request counts and durations. May be nil.
	Metrics *observability.Metrics
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = papersources.NCBIRateFor(c.APIKey)
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxResults > MaxResultsLimit {
		c.MaxResults = MaxResultsLimit
	}
}

// Client implements the papersources.ArticleSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements ArticleSource.
var _ papersources.ArticleSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "abstract-wordstats/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpCfg := papersources.HTTPClientConfig{
		Source:        metricsSource,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		BurstSize:     cfg.BurstSize,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		MaxRetryDelay: cfg.MaxRetryDelay,
		UserAgent:     userAgent,
		Metrics:       cfg.Metrics,
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Count returns the number of PubMed records matching query.
// A query whose phrases PubMed does not know matches nothing.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("rettype", "count")

	result, err := c.esearch(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("esearch count failed: %w", err)
	}
	if phraseNotFound(result) {
		return 0, nil
	}
	return result.Count, nil
}

// SearchIDs returns the PMIDs matching params, in the order PubMed lists them.
func (c *Client) SearchIDs(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	q := url.Values{}
	q.Set("term", params.Query)

	// Set result limits
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	// Add date filters if provided
	if params.DateFrom != nil || params.DateTo != nil {
		q.Set("datetype", "pdat") // Publication date

		if params.DateFrom != nil {
			q.Set("mindate", params.DateFrom.Format("2006/01/02"))
		}
		if params.DateTo != nil {
			q.Set("maxdate", params.DateTo.Format("2006/01/02"))
		}
	}

	result, err := c.esearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	if phraseNotFound(result) {
		return &papersources.SearchResult{
			IDs:            []string{},
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	ids := result.IDList.IDs
	if ids == nil {
		ids = []string{}
	}

	// Calculate pagination info
	nextOffset := params.Offset + len(ids)
	return &papersources.SearchResult{
		IDs:            ids,
		TotalResults:   result.Count,
		HasMore:        nextOffset < result.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}, nil
}

// FetchArticles downloads the full records of pmids and maps them to articles.
// PMIDs PubMed does not return are absent from the result.
func (c *Client) FetchArticles(ctx context.Context, pmids []string) ([]*domain.Article, error) {
	set, err := c.efetch(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	articles := make([]*domain.Article, 0, len(set.Articles))
	for i := range set.Articles {
		article, err := toArticle(&set.Articles[i])
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// GetByID retrieves a specific article by its PubMed ID (PMID).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	articles, err := c.FetchArticles(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	if len(articles) == 0 {
		return nil, domain.NewNotFoundError("article", id)
	}

	return articles[0], nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// esearch performs a search query. q carries the endpoint specific parameters.
func (c *Client) esearch(ctx context.Context, q url.Values) (*ESearchResult, error) {
	body, err := c.get(ctx, "esearch", q)
	if err != nil {
		return nil, err
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	if result.Error != "" {
		return nil, domain.NewExternalAPIError(sourceName, http.StatusOK, result.Error, nil)
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	q := url.Values{}
	q.Set("id", strings.Join(pmids, ","))
	q.Set("rettype", "abstract")

	body, err := c.get(ctx, "efetch", q)
	if err != nil {
		return nil, err
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// get issues a GET against an E-utilities endpoint and returns the response body.
// Common parameters (db, retmode, tool, email, api_key) are added here.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u, err := url.Parse(c.config.BaseURL + "/" + endpoint + ".fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("tool", c.config.Tool)
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}
	// Add API key if configured
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.config.Metrics.RecordSourceRequestFailed(metricsSource, endpoint, errorType(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.config.Metrics.RecordSourceRequest(metricsSource, endpoint, time.Since(start).Seconds())
	if err != nil {
		c.config.Metrics.RecordSourceRequestFailed(metricsSource, endpoint, "read")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.config.Metrics.RecordSourceRequestFailed(metricsSource, endpoint, "status_"+strconv.Itoa(resp.StatusCode))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	return body, nil
}

// errorType classifies a request error for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "unavailable"
	}
}

func phraseNotFound(result *ESearchResult) bool {
	return result.ErrorList != nil && len(result.ErrorList.PhraseNotFound) > 0 && len(result.IDList.IDs) == 0
}

// toArticle converts a PubmedArticle to a domain.Article.
func toArticle(record *PubmedArticle) (*domain.Article, error) {
	citation := &record.MedlineCitation
	pmid := strings.TrimSpace(citation.PMID.Value)

	pubDate, err := json.Marshal(citation.Article.Journal.JournalIssue.PubDate)
	if err != nil {
		return nil, fmt.Errorf("encode publication date of %s: %w", pmid, err)
	}
	fullRecord, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", pmid, err)
	}

	now := time.Now().UTC()
	return &domain.Article{
		ID:           uuid.New(),
		PMID:         pmid,
		Title:        cleanText(citation.Article.ArticleTitle.Value),
		Abstract:     extractAbstract(citation.Article.Abstract),
		Authors:      extractAuthors(citation.Article.AuthorList),
		Journal:      cleanText(citation.Article.Journal.Title),
		Keywords:     extractMeshTerms(citation.MeshHeadingList),
		URL:          domain.ArticleURL(pmid),
		Affiliations: extractAffiliations(citation.Article.AuthorList),
		PubDate:      string(pubDate),
		FullRecord:   string(fullRecord),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

var markupTag = regexp.MustCompile(`<[^>]*>`)

// cleanText drops inline markup, resolves character entities and returns the
// NFC form of s with surrounding space trimmed.
func cleanText(s string) string {
	s = markupTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(norm.NFC.String(s))
}

// extractAbstract joins the abstract sections with single spaces. Section labels are
// not part of the text.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		if text := cleanText(at.Value); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// extractAuthors formats each author as "LastName ForeName" and joins them with ", ".
// Collective names stand in for authors without a last name.
func extractAuthors(authorList *AuthorList) string {
	if authorList == nil {
		return ""
	}

	names := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		name := strings.TrimSpace(a.LastName + " " + a.ForeName)
		if a.LastName == "" && a.CollectiveName != "" {
			name = a.CollectiveName
		}
		if name = cleanText(name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// extractAffiliations collects the first affiliation of every author, removes
// duplicates and joins them, sorted, with "; ".
func extractAffiliations(authorList *AuthorList) string {
	if authorList == nil {
		return ""
	}

	seen := make(map[string]struct{})
	for _, a := range authorList.Authors {
		if len(a.AffiliationInfo) == 0 {
			continue
		}
		if aff := cleanText(a.AffiliationInfo[0].Affiliation); aff != "" {
			seen[aff] = struct{}{}
		}
	}

	affiliations := make([]string, 0, len(seen))
	for aff := range seen {
		affiliations = append(affiliations, aff)
	}
	sort.Strings(affiliations)
	return strings.Join(affiliations, "; ")
}

// extractMeshTerms joins the MeSH descriptor names with ", ".
func extractMeshTerms(list *MeshHeadingList) string {
	if list == nil {
		return ""
	}

	terms := make([]string, 0, len(list.MeshHeadings))
	for _, mh := range list.MeshHeadings {
		if term := strings.TrimSpace(mh.DescriptorName.Value); term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, ", ")
}
