package pubmed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/observability"
	"github.com/helixir/abstract-wordstats/internal/papersources"
)

// Sample XML responses for testing.
const esearchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE eSearchResult PUBLIC "-//NLM//DTD esearch 20060628//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20060628/esearch.dtd">
<eSearchResult>
	<Count>2</Count>
	<RetMax>2</RetMax>
	<RetStart>0</RetStart>
	<IdList>
		<Id>12345678</Id>
		<Id>87654321</Id>
	</IdList>
</eSearchResult>`

const esearchCountXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>1234</Count>
</eSearchResult>`

const esearchPhraseNotFoundXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>0</Count>
	<RetMax>0</RetMax>
	<RetStart>0</RetStart>
	<IdList>
	</IdList>
	<ErrorList>
		<PhraseNotFound>nonexistent_term_xyz</PhraseNotFound>
	</ErrorList>
</eSearchResult>`

const esearchErrorXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<ERROR>Invalid query</ERROR>
</eSearchResult>`

const efetchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2019//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_190101.dtd">
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<Article PubModel="Print-Electronic">
				<Journal>
					<ISSN IssnType="Electronic">1234-5678</ISSN>
					<JournalIssue CitedMedium="Internet">
						<Volume>25</Volume>
						<Issue>3</Issue>
						<PubDate>
							<Year>2001</Year>
							<Month>Jan</Month>
						</PubDate>
					</JournalIssue>
					<Title>The Journal of Urology</Title>
					<ISOAbbreviation>J Urol</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Pelvic pain in <i>men</i> &amp; women</ArticleTitle>
				<Pagination>
					<MedlinePgn>123-145</MedlinePgn>
				</Pagination>
				<ELocationID EIdType="doi" ValidYN="Y">10.1234/test.2001.001</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND" NlmCategory="BACKGROUND">Chronic pelvic pain is common.</AbstractText>
					<AbstractText Label="METHODS" NlmCategory="METHODS">We studied 3rd-degree pain with <sup>99m</sup>Tc imaging.</AbstractText>
					<AbstractText Label="RESULTS" NlmCategory="RESULTS">Pain was &lt;5% lower in the cafe&#769; group.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Smith</LastName>
						<ForeName>John A</ForeName>
						<Initials>JA</Initials>
						<AffiliationInfo>
							<Affiliation>Department of Urology, University Hospital</Affiliation>
						</AffiliationInfo>
						<AffiliationInfo>
							<Affiliation>Second Affiliation Ignored</Affiliation>
						</AffiliationInfo>
					</Author>
					<Author ValidYN="Y">
						<LastName>Johnson</LastName>
						<ForeName>Emily</ForeName>
						<Initials>E</Initials>
						<AffiliationInfo>
							<Affiliation>Department of Urology, University Hospital</Affiliation>
						</AffiliationInfo>
					</Author>
					<Author ValidYN="Y">
						<LastName>Adams</LastName>
						<ForeName>Kim</ForeName>
						<AffiliationInfo>
							<Affiliation>Clinic of Nephrology</Affiliation>
						</AffiliationInfo>
					</Author>
					<Author ValidYN="Y">
						<CollectiveName>Pelvic Pain Consortium</CollectiveName>
					</Author>
				</AuthorList>
			</Article>
			<MeshHeadingList>
				<MeshHeading>
					<DescriptorName UI="D017699" MajorTopicYN="Y">Pelvic Pain</DescriptorName>
				</MeshHeading>
				<MeshHeading>
					<DescriptorName UI="D014570" MajorTopicYN="N">Urology</DescriptorName>
					<QualifierName UI="Q000379" MajorTopicYN="N">methods</QualifierName>
				</MeshHeading>
			</MeshHeadingList>
		</MedlineCitation>
		<PubmedData>
			<PublicationStatus>ppublish</PublicationStatus>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="doi">10.1234/test.2001.001</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">87654321</PMID>
			<Article PubModel="Print">
				<Journal>
					<JournalIssue CitedMedium="Print">
						<Volume>10</Volume>
						<PubDate>
							<MedlineDate>1998 Dec-1999 Jan</MedlineDate>
						</PubDate>
					</JournalIssue>
					<Title>Urologic Nursing</Title>
				</Journal>
				<ArticleTitle>Catheter care</ArticleTitle>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Brown</LastName>
						<ForeName>Michael</ForeName>
					</Author>
				</AuthorList>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">87654321</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

const efetchEmptyResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
</PubmedArticleSet>`

func TestNewClient(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := New(Config{})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, papersources.NCBIRate, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
		assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
		assert.Equal(t, DefaultTool, client.config.Tool)
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := Config{
			BaseURL:    "https://custom.api.example.com/",
			APIKey:     "test-api-key",
			Email:      "lab@example.com",
			Tool:       "my-tool",
			Timeout:    90 * time.Second,
			RateLimit:  10.0,
			BurstSize:  5,
			MaxResults: 50,
		}
		client := New(cfg)

		require.NotNil(t, client)
		assert.Equal(t, "https://custom.api.example.com", client.config.BaseURL)
		assert.Equal(t, cfg.APIKey, client.config.APIKey)
		assert.Equal(t, cfg.Email, client.config.Email)
		assert.Equal(t, cfg.Tool, client.config.Tool)
		assert.Equal(t, cfg.Timeout, client.config.Timeout)
		assert.Equal(t, cfg.RateLimit, client.config.RateLimit)
		assert.Equal(t, cfg.BurstSize, client.config.BurstSize)
		assert.Equal(t, cfg.MaxResults, client.config.MaxResults)
	})

	t.Run("caps max results at the API limit", func(t *testing.T) {
		client := New(Config{MaxResults: 50000})
		assert.Equal(t, MaxResultsLimit, client.config.MaxResults)
	})
}

func TestClient_SourceType(t *testing.T) {
	client := New(Config{})
	assert.Equal(t, domain.SourceTypePubMed, client.SourceType())
	assert.Equal(t, "PubMed", client.Name())
}

func TestClient_Count(t *testing.T) {
	t.Run("returns the count and sends common parameters", func(t *testing.T) {
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/esearch.fcgi"))
			q := r.URL.Query()
			got = map[string]string{
				"db":      q.Get("db"),
				"term":    q.Get("term"),
				"rettype": q.Get("rettype"),
				"retmode": q.Get("retmode"),
				"tool":    q.Get("tool"),
				"email":   q.Get("email"),
				"api_key": q.Get("api_key"),
			}
			w.Write([]byte(esearchCountXML))
		}))
		defer server.Close()

		client := NewWithHTTPClient(Config{
			BaseURL: server.URL,
			APIKey:  "secret",
			Email:   "lab@example.com",
		}, testHTTPClient())

		count, err := client.Count(context.Background(), `"Urology"[MeSH Terms] AND ("2001/1:2001/1"[pdat])`)
		require.NoError(t, err)
		assert.Equal(t, 1234, count)

		assert.Equal(t, map[string]string{
			"db":      "pubmed",
			"term":    `"Urology"[MeSH Terms] AND ("2001/1:2001/1"[pdat])`,
			"rettype": "count",
			"retmode": "xml",
			"tool":    DefaultTool,
			"email":   "lab@example.com",
			"api_key": "secret",
		}, got)
	})

	t.Run("phrase not found counts zero", func(t *testing.T) {
		server := xmlServer(esearchPhraseNotFoundXML)
		defer server.Close()

		count, err := createTestClient(server.URL).Count(context.Background(), "nonexistent_term_xyz")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("API error element is an error", func(t *testing.T) {
		server := xmlServer(esearchErrorXML)
		defer server.Close()

		_, err := createTestClient(server.URL).Count(context.Background(), "((")
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Invalid query", apiErr.Message)
	})

	t.Run("malformed XML", func(t *testing.T) {
		server := xmlServer("<eSearchResult><Count>")
		defer server.Close()

		_, err := createTestClient(server.URL).Count(context.Background(), "urology")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse XML response")
	})
}

func TestClient_SearchIDs(t *testing.T) {
	t.Run("returns PMIDs in order", func(t *testing.T) {
		var query map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			w.Write([]byte(esearchResponseXML))
		}))
		defer server.Close()

		result, err := createTestClient(server.URL).SearchIDs(context.Background(), papersources.SearchParams{
			Query:      "urology",
			MaxResults: 9999,
		})
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, []string{"12345678", "87654321"}, result.IDs)
		assert.Equal(t, 2, result.TotalResults)
		assert.False(t, result.HasMore)
		assert.Equal(t, 2, result.NextOffset)
		assert.Equal(t, domain.SourceTypePubMed, result.Source)

		assert.Equal(t, []string{"9999"}, query["retmax"])
		assert.NotContains(t, query, "retstart")
		assert.NotContains(t, query, "datetype")
	})

	t.Run("applies defaults, offset and date range", func(t *testing.T) {
		var query map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			w.Write([]byte(esearchResponseXML))
		}))
		defer server.Close()

		from := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2001, time.January, 31, 0, 0, 0, 0, time.UTC)
		_, err := createTestClient(server.URL).SearchIDs(context.Background(), papersources.SearchParams{
			Query:    "urology",
			Offset:   100,
			DateFrom: &from,
			DateTo:   &to,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"9999"}, query["retmax"])
		assert.Equal(t, []string{"100"}, query["retstart"])
		assert.Equal(t, []string{"pdat"}, query["datetype"])
		assert.Equal(t, []string{"2001/01/01"}, query["mindate"])
		assert.Equal(t, []string{"2001/01/31"}, query["maxdate"])
	})

	t.Run("reports more results beyond the page", func(t *testing.T) {
		server := xmlServer(strings.Replace(esearchResponseXML, "<Count>2</Count>", "<Count>5</Count>", 1))
		defer server.Close()

		result, err := createTestClient(server.URL).SearchIDs(context.Background(), papersources.SearchParams{Query: "urology"})
		require.NoError(t, err)
		assert.True(t, result.HasMore)
		assert.Equal(t, 5, result.TotalResults)
	})

	t.Run("phrase not found returns empty result", func(t *testing.T) {
		server := xmlServer(esearchPhraseNotFoundXML)
		defer server.Close()

		result, err := createTestClient(server.URL).SearchIDs(context.Background(), papersources.SearchParams{Query: "nonexistent_term_xyz"})
		require.NoError(t, err)
		assert.Empty(t, result.IDs)
		assert.NotNil(t, result.IDs)
		assert.Zero(t, result.TotalResults)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad request"))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL).SearchIDs(context.Background(), papersources.SearchParams{Query: "urology"})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "bad request", apiErr.Message)
	})
}

func TestClient_FetchArticles(t *testing.T) {
	t.Run("maps records to articles", func(t *testing.T) {
		var ids string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/efetch.fcgi"))
			ids = r.URL.Query().Get("id")
			w.Write([]byte(efetchResponseXML))
		}))
		defer server.Close()

		articles, err := createTestClient(server.URL).FetchArticles(context.Background(), []string{"12345678", "87654321"})
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, "12345678,87654321", ids)

		a := articles[0]
		assert.NotEqual(t, uuid.Nil, a.ID)
		assert.Equal(t, "12345678", a.PMID)
		assert.Equal(t, "Pelvic pain in men & women", a.Title)
		assert.Equal(t, "Chronic pelvic pain is common. We studied 3rd-degree pain with 99mTc imaging. Pain was <5% lower in the caf\u00e9 group.", a.Abstract)
		assert.Equal(t, "Smith John A, Johnson Emily, Adams Kim, Pelvic Pain Consortium", a.Authors)
		assert.Equal(t, "The Journal of Urology", a.Journal)
		assert.Equal(t, "Pelvic Pain, Urology", a.Keywords)
		assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pubmed/12345678", a.URL)
		assert.Equal(t, "Clinic of Nephrology; Department of Urology, University Hospital", a.Affiliations)
		assert.JSONEq(t, `{"Year":"2001","Month":"Jan"}`, a.PubDate)
		assert.False(t, a.CreatedAt.IsZero())

		var full map[string]any
		require.NoError(t, json.Unmarshal([]byte(a.FullRecord), &full))
		assert.Contains(t, full, "MedlineCitation")
		assert.Contains(t, full, "PubmedData")

		b := articles[1]
		assert.Equal(t, "87654321", b.PMID)
		assert.Empty(t, b.Abstract)
		assert.Empty(t, b.Keywords)
		assert.Empty(t, b.Affiliations)
		assert.Equal(t, "Brown Michael", b.Authors)
		assert.JSONEq(t, `{"MedlineDate":"1998 Dec-1999 Jan"}`, b.PubDate)
	})

	t.Run("no PMIDs makes no request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))
		defer server.Close()

		articles, err := createTestClient(server.URL).FetchArticles(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, articles)
	})

	t.Run("records request metrics", func(t *testing.T) {
		server := xmlServer(efetchEmptyResponseXML)
		defer server.Close()

		metrics := observability.NewMetrics("test_pubmed_fetch")
		client := NewWithHTTPClient(Config{BaseURL: server.URL, Metrics: metrics}, testHTTPClient())

		_, err := client.FetchArticles(context.Background(), []string{"1"})
		require.NoError(t, err)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SourceRequestsTotal.WithLabelValues("pubmed", "efetch")))
	})

	t.Run("context canceled", func(t *testing.T) {
		server := xmlServer(efetchResponseXML)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := createTestClient(server.URL).FetchArticles(ctx, []string{"12345678"})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_GetByID(t *testing.T) {
	t.Run("returns the article", func(t *testing.T) {
		server := xmlServer(efetchResponseXML)
		defer server.Close()

		article, err := createTestClient(server.URL).GetByID(context.Background(), "12345678")
		require.NoError(t, err)
		assert.Equal(t, "12345678", article.PMID)
	})

	t.Run("unknown PMID is not found", func(t *testing.T) {
		server := xmlServer(efetchEmptyResponseXML)
		defer server.Close()

		_, err := createTestClient(server.URL).GetByID(context.Background(), "99999999")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "  plain text ", "plain text"},
		{"markup", "<i>E. coli</i> infection", "E. coli infection"},
		{"entities", "a &amp; b &lt; c", "a & b < c"},
		{"escaped markup stays text", "&lt;b&gt;", "<b>"},
		{"numeric entity", "&#945;-blocker", "α-blocker"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.input))
		})
	}
}

func TestExtractHelpersHandleMissingLists(t *testing.T) {
	assert.Empty(t, extractAbstract(nil))
	assert.Empty(t, extractAbstract(&Abstract{}))
	assert.Empty(t, extractAuthors(nil))
	assert.Empty(t, extractAffiliations(nil))
	assert.Empty(t, extractMeshTerms(nil))
}

func xmlServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

func testHTTPClient() *papersources.HTTPClient {
	return papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:        "pubmed",
		RateLimit:     100,
		BurstSize:     10,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: time.Millisecond,
	})
}

// createTestClient creates a test client with the given base URL.
func createTestClient(baseURL string) *Client {
	return NewWithHTTPClient(Config{BaseURL: baseURL}, testHTTPClient())
}
