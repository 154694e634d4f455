package similarity

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	DefaultThreshold  = 0.85
	FingerprintLength = 500

	tokenWeight   = 0.6
	trigramWeight = 0.4
	ngram         = 3
)

var (
	variableSpanRe    = regexp.MustCompile(`\$\{[^}]*\}`)
	placeholderSpanRe = regexp.MustCompile(`\[[^\]]*\]|<[^>]*>`)
	punctuationRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// Normalize strips ${..}, [..] and <..> spans and punctuation, lowercases,
// and collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	s := variableSpanRe.ReplaceAllString(text, "")
	s = placeholderSpanRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = strings.Map(spaceToBlank, s)
	s = punctuationRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// spaceToBlank maps Unicode spaces to ' '. The \s in punctuationRe is
// ASCII only.
func spaceToBlank(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Fingerprint is the normalized text cut to FingerprintLength runes. Equal
// fingerprints are a cheap pre-filter, not proof of similarity.
func Fingerprint(text string) string {
	n := Normalize(text)
	r := []rune(n)
	if len(r) <= FingerprintLength {
		return n
	}
	return string(r[:FingerprintLength])
}

func Similarity(a, b string) float64 {
	return compare(newDoc(a), newDoc(b))
}

func IsSimilar(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// Jaccard compares the whitespace-separated token sets of a and b.
func Jaccard(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

// TrigramJaccard compares the padded character trigram sets of a and b.
// Inputs are used as given; Similarity normalizes before calling it.
func TrigramJaccard(a, b string) float64 {
	return jaccard(trigramSet(a), trigramSet(b))
}

type set map[string]struct{}

// doc caches the normalized forms of one input so batch operations do not
// recompute them per pair.
type doc struct {
	text     string
	tokens   set
	trigrams set
}

func newDoc(text string) doc {
	n := Normalize(text)
	return doc{text: n, tokens: tokenSet(n), trigrams: trigramSet(n)}
}

func compare(a, b doc) float64 {
	if a.text == b.text {
		return 1
	}
	if a.text == "" || b.text == "" {
		return 0
	}
	return tokenWeight*jaccard(a.tokens, b.tokens) + trigramWeight*jaccard(a.trigrams, b.trigrams)
}

func tokenSet(s string) set {
	out := set{}
	for _, f := range strings.Fields(s) {
		out[f] = struct{}{}
	}
	return out
}

func trigramSet(s string) set {
	out := set{}
	if s == "" {
		return out
	}
	pad := strings.Repeat(" ", ngram-1)
	r := []rune(pad + s + pad)
	for i := 0; i+ngram <= len(r); i++ {
		out[string(r[i:i+ngram])] = struct{}{}
	}
	return out
}

func jaccard(a, b set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func docs[T any](items []T, content func(T) string) []doc {
	out := make([]doc, len(items))
	for i, it := range items {
		out[i] = newDoc(content(it))
	}
	return out
}

// FindDuplicates groups items by similarity to a seed. Each unvisited item,
// in input order, seeds a group and absorbs every later unvisited item
// similar to the seed. Members are not compared with each other, so a group
// may hold two items that are not similar. Singletons are dropped.
func FindDuplicates[T any](items []T, content func(T) string, threshold float64) [][]T {
	ds := docs(items, content)
	visited := make([]bool, len(items))
	var groups [][]T

	for i := range items {
		if visited[i] {
			continue
		}
		visited[i] = true
		group := []T{items[i]}
		for j := i + 1; j < len(items); j++ {
			if visited[j] {
				continue
			}
			if compare(ds[i], ds[j]) >= threshold {
				visited[j] = true
				group = append(group, items[j])
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// Deduplicate keeps, in input order, each item not similar to one already
// kept.
func Deduplicate[T any](items []T, content func(T) string, threshold float64) []T {
	ds := docs(items, content)
	kept := make([]int, 0, len(items))

outer:
	for i := range items {
		for _, k := range kept {
			if compare(ds[k], ds[i]) >= threshold {
				continue outer
			}
		}
		kept = append(kept, i)
	}

	out := make([]T, len(kept))
	for i, k := range kept {
		out[i] = items[k]
	}
	return out
}

type Match[T any] struct {
	Item  T
	Score float64
}

// Rank scores every item against query and returns those at or above
// threshold, best first. Equal scores keep input order.
func Rank[T any](query string, items []T, content func(T) string, threshold float64) []Match[T] {
	q := newDoc(query)
	var out []Match[T]
	for _, it := range items {
		if s := compare(q, newDoc(content(it))); s >= threshold {
			out = append(out, Match[T]{Item: it, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
