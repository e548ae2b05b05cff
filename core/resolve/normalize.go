package resolve

import (
	"slices"
	"strings"
	"unicode"

	"github.com/siherrmann/newsgraph/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name is a normalized entity name with its tokens
type Name struct {
	Text   string
	Tokens []string
}

var personTitles = [][]string{
	{"president"}, {"vice", "president"}, {"prime", "minister"}, {"former"},
	{"mr"}, {"mrs"}, {"ms"}, {"miss"}, {"mx"}, {"dr"}, {"prof"}, {"professor"},
	{"sen"}, {"senator"}, {"rep"}, {"representative"}, {"gov"}, {"governor"},
	{"mayor"}, {"chancellor"}, {"secretary"}, {"minister"}, {"judge"}, {"justice"},
	{"gen"}, {"general"}, {"col"}, {"capt"}, {"captain"}, {"lt"}, {"sgt"},
	{"sir"}, {"dame"}, {"lord"}, {"lady"}, {"king"}, {"queen"}, {"prince"}, {"princess"},
	{"pope"}, {"rev"}, {"reverend"}, {"ceo"},
}

var personSuffixes = []string{"jr", "sr", "ii", "iii", "iv", "phd", "md", "esq"}

var orgSuffixes = []string{
	"inc", "incorporated", "corp", "corporation", "ltd", "limited",
	"llc", "plc", "co", "ag", "gmbh", "sa",
}

// foldTransformer case-folds and strips combining marks (é -> e)
func foldTransformer() transform.Transformer {
	return transform.Chain(cases.Fold(), norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize folds case, strips diacritics and punctuation and removes
// type-specific noise: titles and generational suffixes for people,
// legal suffixes for organizations, a leading article for everything else.
func Normalize(text string, entityType model.EntityType) Name {
	folded, _, err := transform.String(foldTransformer(), text)
	if err != nil {
		folded = strings.ToLower(text)
	}

	tokens := tokenize(folded)

	switch entityType {
	case model.EntityTypePerson:
		tokens = stripPrefixes(tokens, personTitles)
		tokens = stripSuffixes(tokens, personSuffixes)
	case model.EntityTypeOrg:
		tokens = stripLeadingArticle(tokens)
		tokens = stripSuffixes(tokens, orgSuffixes)
	default:
		tokens = stripLeadingArticle(tokens)
	}

	return Name{Text: strings.Join(tokens, " "), Tokens: tokens}
}

// NameOf rebuilds the Name of a stored canonical entity
func NameOf(entity *model.CanonicalEntity) Name {
	if len(entity.NameTokens) > 0 {
		return Name{Text: entity.CanonicalName, Tokens: entity.NameTokens}
	}
	return Name{Text: entity.CanonicalName, Tokens: strings.Fields(entity.CanonicalName)}
}

func tokenize(s string) []string {
	tokens := []string{}
	for _, field := range strings.Fields(s) {
		field = strings.TrimSuffix(field, "'s")
		field = strings.TrimSuffix(field, "’s")

		var b strings.Builder
		flush := func() {
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
		}
		for _, r := range field {
			switch {
			case unicode.IsLetter(r) || unicode.IsDigit(r):
				b.WriteRune(r)
			case r == '\'' || r == '’' || r == '.':
				// o'brien -> obrien, u.s. -> us
			default:
				flush()
			}
		}
		flush()
	}
	return tokens
}

func stripPrefixes(tokens []string, prefixes [][]string) []string {
	for {
		stripped := false
		for _, prefix := range prefixes {
			if len(tokens) > len(prefix) && slices.Equal(tokens[:len(prefix)], prefix) {
				tokens = tokens[len(prefix):]
				stripped = true
				break
			}
		}
		if !stripped {
			return tokens
		}
	}
}

// titlesOnly reports whether tokens are nothing but person titles ("president", "prime minister")
func titlesOnly(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for len(tokens) > 0 {
		i := slices.IndexFunc(personTitles, func(title []string) bool {
			return len(tokens) >= len(title) && slices.Equal(tokens[:len(title)], title)
		})
		if i < 0 {
			return false
		}
		tokens = tokens[len(personTitles[i]):]
	}
	return true
}

func stripSuffixes(tokens []string, suffixes []string) []string {
	for len(tokens) > 1 && slices.Contains(suffixes, tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func stripLeadingArticle(tokens []string) []string {
	if len(tokens) > 1 && tokens[0] == "the" {
		return tokens[1:]
	}
	return tokens
}
