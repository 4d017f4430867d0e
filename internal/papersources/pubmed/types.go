// Package pubmed provides a client for the NCBI PubMed E-utilities API.
//
// The client counts and lists PMIDs with esearch.fcgi and downloads full
// records with efetch.fcgi, mapping each PubmedArticle to a domain.Article.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult represents the response from the esearch.fcgi endpoint.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    IDList     `xml:"IdList"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
	Error     string     `xml:"ERROR,omitempty"`
}

// IDList contains the list of PMIDs returned by a search.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList contains errors from the E-utilities API.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// PubmedArticleSet represents the response from the efetch.fcgi endpoint.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle represents a single article in the PubMed database.
// Its JSON encoding is kept verbatim as the article's full record.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation" json:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData" json:"PubmedData"`
}

// MedlineCitation contains the core bibliographic information.
type MedlineCitation struct {
	PMID            PMID             `xml:"PMID" json:"PMID"`
	Article         Article          `xml:"Article" json:"Article"`
	MeshHeadingList *MeshHeadingList `xml:"MeshHeadingList,omitempty" json:"MeshHeadingList,omitempty"`
	KeywordList     *KeywordList     `xml:"KeywordList,omitempty" json:"KeywordList,omitempty"`
}

// PMID represents the PubMed identifier with optional version.
type PMID struct {
	Version int    `xml:"Version,attr,omitempty" json:"Version,omitempty"`
	Value   string `xml:",chardata" json:"Value"`
}

// Article contains the article metadata.
type Article struct {
	Journal             Journal              `xml:"Journal" json:"Journal"`
	ArticleTitle        MarkupText           `xml:"ArticleTitle" json:"ArticleTitle"`
	Pagination          *Pagination          `xml:"Pagination,omitempty" json:"Pagination,omitempty"`
	ELocationID         []ELocationID        `xml:"ELocationID,omitempty" json:"ELocationID,omitempty"`
	Abstract            *Abstract            `xml:"Abstract,omitempty" json:"Abstract,omitempty"`
	AuthorList          *AuthorList          `xml:"AuthorList,omitempty" json:"AuthorList,omitempty"`
	Language            []string             `xml:"Language,omitempty" json:"Language,omitempty"`
	PublicationTypeList *PublicationTypeList `xml:"PublicationTypeList,omitempty" json:"PublicationTypeList,omitempty"`
}

// MarkupText is element content that may carry inline markup such as <i> or <sup>.
type MarkupText struct {
	Value string `xml:",innerxml" json:"Value"`
}

// Journal contains journal information.
type Journal struct {
	JournalIssue    JournalIssue `xml:"JournalIssue" json:"JournalIssue"`
	Title           string       `xml:"Title,omitempty" json:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty" json:"ISOAbbreviation,omitempty"`
}

// JournalIssue contains the volume, issue, and publication date.
type JournalIssue struct {
	Volume  string  `xml:"Volume,omitempty" json:"Volume,omitempty"`
	Issue   string  `xml:"Issue,omitempty" json:"Issue,omitempty"`
	PubDate PubDate `xml:"PubDate" json:"PubDate"`
}

// PubDate represents the publication date which may have various formats.
// Only the elements present in the record appear in its JSON encoding.
type PubDate struct {
	Year        string `xml:"Year,omitempty" json:"Year,omitempty"`
	Month       string `xml:"Month,omitempty" json:"Month,omitempty"`
	Day         string `xml:"Day,omitempty" json:"Day,omitempty"`
	Season      string `xml:"Season,omitempty" json:"Season,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty" json:"MedlineDate,omitempty"`
}

// Pagination contains page information.
type Pagination struct {
	MedlinePgn string `xml:"MedlinePgn,omitempty" json:"MedlinePgn,omitempty"`
}

// ELocationID represents an electronic location identifier (DOI or PII).
type ELocationID struct {
	EIdType string `xml:"EIdType,attr" json:"EIdType"`
	Value   string `xml:",chardata" json:"Value"`
}

// Abstract contains the article abstract, which may have multiple sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText" json:"AbstractText"`
	CopyrightInfo string         `xml:"CopyrightInformation,omitempty" json:"CopyrightInformation,omitempty"`
}

// AbstractText represents a section of the abstract.
// Structured abstracts have labeled sections (Background, Methods, Results, etc.).
type AbstractText struct {
	Label       string `xml:"Label,attr,omitempty" json:"Label,omitempty"`
	NlmCategory string `xml:"NlmCategory,attr,omitempty" json:"NlmCategory,omitempty"`
	Value       string `xml:",innerxml" json:"Value"`
}

// AuthorList contains the list of authors.
type AuthorList struct {
	CompleteYN string   `xml:"CompleteYN,attr,omitempty" json:"CompleteYN,omitempty"`
	Authors    []Author `xml:"Author" json:"Author"`
}

// Author represents a single author.
type Author struct {
	ValidYN         string            `xml:"ValidYN,attr,omitempty" json:"ValidYN,omitempty"`
	LastName        string            `xml:"LastName,omitempty" json:"LastName,omitempty"`
	ForeName        string            `xml:"ForeName,omitempty" json:"ForeName,omitempty"`
	Initials        string            `xml:"Initials,omitempty" json:"Initials,omitempty"`
	CollectiveName  string            `xml:"CollectiveName,omitempty" json:"CollectiveName,omitempty"`
	AffiliationInfo []AffiliationInfo `xml:"AffiliationInfo,omitempty" json:"AffiliationInfo,omitempty"`
}

// AffiliationInfo contains author affiliation information.
type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation" json:"Affiliation"`
}

// PublicationTypeList contains the publication types.
type PublicationTypeList struct {
	PublicationTypes []PublicationType `xml:"PublicationType" json:"PublicationType"`
}

// PublicationType represents a publication type (e.g., Journal Article, Review).
type PublicationType struct {
	UI    string `xml:"UI,attr,omitempty" json:"UI,omitempty"`
	Value string `xml:",chardata" json:"Value"`
}

// MeshHeadingList contains the MeSH terms assigned to the article.
type MeshHeadingList struct {
	MeshHeadings []MeshHeading `xml:"MeshHeading" json:"MeshHeading"`
}

// MeshHeading represents a MeSH descriptor with optional qualifiers.
type MeshHeading struct {
	DescriptorName DescriptorName  `xml:"DescriptorName" json:"DescriptorName"`
	QualifierNames []QualifierName `xml:"QualifierName,omitempty" json:"QualifierName,omitempty"`
}

// DescriptorName represents a MeSH descriptor.
type DescriptorName struct {
	UI         string `xml:"UI,attr,omitempty" json:"UI,omitempty"`
	MajorTopic string `xml:"MajorTopicYN,attr,omitempty" json:"MajorTopicYN,omitempty"`
	Value      string `xml:",chardata" json:"Value"`
}

// QualifierName represents a MeSH qualifier.
type QualifierName struct {
	UI         string `xml:"UI,attr,omitempty" json:"UI,omitempty"`
	MajorTopic string `xml:"MajorTopicYN,attr,omitempty" json:"MajorTopicYN,omitempty"`
	Value      string `xml:",chardata" json:"Value"`
}

// KeywordList contains author-provided keywords.
type KeywordList struct {
	Owner    string    `xml:"Owner,attr,omitempty" json:"Owner,omitempty"`
	Keywords []Keyword `xml:"Keyword" json:"Keyword"`
}

// Keyword represents a single keyword.
type Keyword struct {
	MajorTopic string `xml:"MajorTopicYN,attr,omitempty" json:"MajorTopicYN,omitempty"`
	Value      string `xml:",chardata" json:"Value"`
}

// PubmedData contains additional PubMed-specific data.
type PubmedData struct {
	PublicationStatus string        `xml:"PublicationStatus,omitempty" json:"PublicationStatus,omitempty"`
	ArticleIdList     ArticleIdList `xml:"ArticleIdList" json:"ArticleIdList"`
}

// ArticleIdList contains various identifiers for the article.
type ArticleIdList struct {
	ArticleIds []ArticleId `xml:"ArticleId" json:"ArticleId,omitempty"`
}

// ArticleId represents an article identifier (PMID, DOI, PMC, etc.).
type ArticleId struct {
	IdType string `xml:"IdType,attr" json:"IdType"`
	Value  string `xml:",chardata" json:"Value"`
}
