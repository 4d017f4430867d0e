package wordstats

// defaultStopwords are excluded from every analysis unless the configuration supplies its
// own exclusion list. Entries are already in tokenized form (lowercase, no possessive).
var defaultStopwords = []string{
	// Articles, determiners and quantifiers
	"the", "an", "this", "that", "these", "those", "such", "some", "any", "each", "every",
	"either", "neither", "both", "all", "another", "other", "others", "few", "many", "much",
	"more", "most", "less", "least", "several", "own", "same", "no", "nor", "not", "only",

	// Pronouns
	"he", "him", "his", "she", "her", "hers", "herself", "himself", "it", "its", "itself",
	"we", "us", "our", "ours", "ourselves", "you", "your", "yours", "yourself", "yourselves",
	"they", "them", "their", "theirs", "themselves", "me", "my", "myself", "who", "whom",
	"whose", "which", "what", "whatever", "whichever", "whoever", "one", "ones",

	// Prepositions
	"about", "above", "across", "after", "against", "along", "amid", "among", "amongst",
	"around", "as", "at", "before", "behind", "below", "beneath", "beside", "besides",
	"between", "beyond", "by", "concerning", "despite", "down", "during", "except", "for",
	"from", "in", "inside", "into", "like", "near", "of", "off", "on", "onto", "out",
	"outside", "over", "past", "per", "regarding", "since", "than", "through", "throughout",
	"to", "toward", "towards", "under", "underneath", "unlike", "until", "up", "upon", "via",
	"with", "within", "without",

	// Conjunctions
	"and", "or", "but", "so", "yet", "because", "although", "though", "while", "whereas",
	"if", "unless", "whether", "then", "thus", "hence", "therefore", "however", "moreover",
	"furthermore", "also", "nevertheless", "nonetheless", "otherwise",

	// Auxiliary and common verbs
	"is", "are", "was", "were", "be", "been", "being", "am", "have", "has", "had", "having",
	"do", "does", "did", "doing", "done", "can", "could", "may", "might", "must", "shall",
	"should", "will", "would", "ought",

	// Adverbs and fillers
	"here", "there", "where", "when", "why", "how", "very", "too", "just", "again", "further",
	"once", "always", "never", "often", "still", "already", "even", "ever", "almost", "quite",
	"rather", "well", "now", "etc", "vs",

	// Contractions after tokenization
	"don't", "doesn't", "didn't", "isn't", "aren't", "wasn't", "weren't", "can't", "cannot",
	"won't", "wouldn't", "shouldn't", "couldn't", "let",
}

// DefaultStopwords returns a fresh copy of the built-in exclusion list.
func DefaultStopwords() []string {
	words := make([]string, len(defaultStopwords))
	copy(words, defaultStopwords)
	return words
}
