package similarity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/alanyang/promptkit/internal/domain/similarity"
)

type item struct {
	ID      int
	Content string
}

func content(i item) string { return i.Content }

func ids(items []item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello, World!", want: "hello world"},
		{in: "  Dear ${name},\n\tthanks   for [ORDER] <b>today</b>. ", want: "dear thanks for today"},
		{in: "Don't stop", want: "dont stop"},
		{in: "Café №1 naïve_case", want: "café 1 naïve_case"},
		{in: "!!! ???", want: ""},
		{in: "hello\u00a0world", want: "hello world"},
		{in: "hello\vworld", want: "hello world"},
		{in: "ideographic\u3000space\u2003em", want: "ideographic space em"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got))
		})
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "hello world", Fingerprint("Hello,   World!"))

	long := ""
	for i := 0; i < 200; i++ {
		long += "abc "
	}
	fp := Fingerprint(long)
	assert.Len(t, []rune(fp), FingerprintLength)
	assert.Equal(t, Normalize(long)[:FingerprintLength], fp)

	wide := ""
	for i := 0; i < 600; i++ {
		wide += "é"
	}
	assert.Len(t, []rune(Fingerprint(wide)), FingerprintLength)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical after normalization", a: "Hello World", b: "hello, world!", want: 1},
		{name: "both empty", a: "", b: "  ", want: 1},
		{name: "one empty", a: "Hello", b: "!!!", want: 0},
		{name: "disjoint", a: "Hello World", b: "Goodbye", want: 0},
		{name: "one token differs", a: "one two three four five", b: "one two three four six", want: 0.6533333333333333},
		{name: "non-breaking space separates words", a: "hello world again", b: "hello\u00a0world again", want: 1},
		{name: "near sentence", a: "Write a poem about the sea", b: "Write a poem about the sea today", want: 0.8228571428571428},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, Similarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestSimilarity_ReflexiveAndBounded(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"You are a helpful assistant that writes code",
		"Summarize the article",
		"${x} [Y] <z>",
		"Привет мир",
	}
	for _, a := range inputs {
		assert.Equal(t, 1.0, Similarity(a, a))
		for _, b := range inputs {
			s := Similarity(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestIsSimilar(t *testing.T) {
	assert.True(t, IsSimilar("Hello World", "Hello World!", DefaultThreshold))
	assert.False(t, IsSimilar("Write a poem about the sea", "Write a poem about the ocean", DefaultThreshold))
	assert.True(t, IsSimilar("Write a poem about the sea", "Write a poem about the ocean", 0.6))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("", ""))
	assert.Equal(t, 0.0, Jaccard("a", ""))
	assert.InDelta(t, 1.0/3, Jaccard("a b", "b c"), 1e-9)
	assert.Equal(t, 1.0, Jaccard("a b a", "b a"))
}

func TestTrigramJaccard(t *testing.T) {
	assert.Equal(t, 1.0, TrigramJaccard("", ""))
	assert.Equal(t, 0.0, TrigramJaccard("ab", ""))
	assert.Equal(t, 1.0, TrigramJaccard("abc", "abc"))
	// "ab" -> {"  a", " ab", "ab ", "b  "}; "ac" shares only "  a".
	assert.InDelta(t, 1.0/7, TrigramJaccard("ab", "ac"), 1e-9)
}

func TestDeduplicate_RetainsFirstOccurrence(t *testing.T) {
	items := []item{
		{ID: 1, Content: "Hello World"},
		{ID: 2, Content: "Hello World!"},
		{ID: 3, Content: "Goodbye"},
	}
	got := Deduplicate(items, content, DefaultThreshold)
	assert.Equal(t, []int{1, 3}, ids(got))
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil, content, DefaultThreshold))
}

func TestFindDuplicates_Groups(t *testing.T) {
	items := []item{
		{ID: 1, Content: "Hello World"},
		{ID: 2, Content: "Hello World!"},
		{ID: 3, Content: "Goodbye"},
		{ID: 4, Content: "Goodbye!"},
	}
	groups := FindDuplicates(items, content, DefaultThreshold)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{1, 2}, ids(groups[0]))
	assert.Equal(t, []int{3, 4}, ids(groups[1]))
}

func TestFindDuplicates_NoSingletons(t *testing.T) {
	items := []item{{ID: 1, Content: "alpha"}, {ID: 2, Content: "omega"}}
	assert.Empty(t, FindDuplicates(items, content, DefaultThreshold))
}

// Similarity is not transitive. Grouping follows the seed only, so a group
// can contain two members that are not similar to each other, and the two
// batch operations need not agree.
func TestFindDuplicates_StarClusteringIsNotTransitive(t *testing.T) {
	const threshold = 0.6
	a := item{ID: 1, Content: "one two three four five"}
	b := item{ID: 2, Content: "one two three four six"}
	c := item{ID: 3, Content: "one two three seven six"}

	require.True(t, IsSimilar(b.Content, a.Content, threshold))
	require.True(t, IsSimilar(b.Content, c.Content, threshold))
	require.False(t, IsSimilar(a.Content, c.Content, threshold))

	groups := FindDuplicates([]item{b, a, c}, content, threshold)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{2, 1, 3}, ids(groups[0]))
	assert.Equal(t, []int{2}, ids(Deduplicate([]item{b, a, c}, content, threshold)))

	groups = FindDuplicates([]item{a, b, c}, content, threshold)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{1, 2}, ids(groups[0]))
	assert.Equal(t, []int{1, 3}, ids(Deduplicate([]item{a, b, c}, content, threshold)))
}

func TestRank(t *testing.T) {
	items := []item{
		{ID: 1, Content: "Write a poem about the ocean"},
		{ID: 2, Content: "Summarize the article"},
		{ID: 3, Content: "Write a poem about the sea today"},
		{ID: 4, Content: "write a poem about the sea!"},
		{ID: 5, Content: "Write a poem, about the sea"},
	}
	got := Rank("Write a poem about the sea", items, content, 0.5)
	require.Len(t, got, 4)

	order := make([]int, len(got))
	for i, m := range got {
		order[i] = m.Item.ID
	}
	assert.Equal(t, []int{4, 5, 3, 1}, order)
	assert.Equal(t, 1.0, got[0].Score)
	assert.InDelta(t, 0.8228571428571428, got[2].Score, 1e-9)

	assert.Empty(t, Rank("unrelated words entirely", items, content, DefaultThreshold))
}
