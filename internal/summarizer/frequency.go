package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const DefaultMaxSentences = 3

var (
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer picks the sentences whose words recur most across the
// corpus and returns them in their original order.
type FrequencySummarizer struct {
	maxSentences int
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a summarizer keeping at most maxSentences.
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &FrequencySummarizer{maxSentences: maxSentences, stopwords: stopwords()}
}

// Summarize returns up to maxSentences representative sentences of text.
func (s *FrequencySummarizer) Summarize(text string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	tokens := make([][]string, len(sentences))
	freq := make(map[string]float64)
	peak := 0.0
	for i, sent := range sentences {
		tokens[i] = s.contentWords(sent)
		for _, w := range tokens[i] {
			freq[w]++
			peak = math.Max(peak, freq[w])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, words := range tokens {
		sum := 0.0
		for _, w := range words {
			sum += freq[w] / peak
		}
		// Dampen long sentences.
		if len(words) > 0 {
			sum /= math.Sqrt(float64(len(words)))
		}
		ranked[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	n := min(s.maxSentences, len(ranked))
	keep := make([]int, n)
	for i := range keep {
		keep[i] = ranked[i].idx
	}
	sort.Ints(keep)

	out := make([]string, n)
	for i, idx := range keep {
		out[i] = strings.Join(strings.Fields(sentences[idx]), " ")
	}
	return strings.Join(out, " ")
}

func (s *FrequencySummarizer) contentWords(sentence string) []string {
	raw := wordRe.FindAllString(strings.ToLower(sentence), -1)
	out := raw[:0]
	for _, w := range raw {
		if _, stop := s.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
