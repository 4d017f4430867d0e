package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PubMedArticleURLPrefix is the public landing page prefix for a PMID.
const PubMedArticleURLPrefix = "https://www.ncbi.nlm.nih.gov/pubmed/"

// Article is one harvested PubMed record in its dataset form.
//
// Multi-valued fields are stored pre-joined, exactly as they appear in the exported
// dataset: Authors and Keywords use ", " and Affiliations uses "; ". PubDate is the
// JSON encoding of the journal issue publication date and FullRecord the JSON encoding
// of the whole source record.
type Article struct {
	ID           uuid.UUID
	PMID         string
	Title        string
	Abstract     string
	Authors      string
	Journal      string
	Keywords     string
	URL          string
	Affiliations string
	PubDate      string
	FullRecord   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPMID returns true if the article carries a PubMed identifier.
func (a *Article) HasPMID() bool {
	return strings.TrimSpace(a.PMID) != ""
}

// ArticleURL returns the PubMed landing page of pmid, or "" when pmid is empty.
func ArticleURL(pmid string) string {
	pmid = strings.TrimSpace(pmid)
	if pmid == "" {
		return ""
	}
	return PubMedArticleURLPrefix + pmid
}

// DedupeArticles removes nil articles and later duplicates of the same PMID, keeping the
// first occurrence and the input order. Articles without a PMID are kept as they are.
func DedupeArticles(articles []*Article) []*Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]*Article, 0, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		if a.HasPMID() {
			if _, dup := seen[a.PMID]; dup {
				continue
			}
			seen[a.PMID] = struct{}{}
		}
		out = append(out, a)
	}
	return out
}
