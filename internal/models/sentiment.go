package models

import "strings"

// Sentiment is the polarity of a piece of feedback
type Sentiment string

// Sentiment values
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var (
	positiveWords = []string{
		"great", "excellent", "amazing", "love", "fantastic", "delicious",
		"perfect", "awesome", "good", "best", "wonderful",
	}
	negativeWords = []string{
		"bad", "terrible", "awful", "horrible", "worst", "disgusting",
		"slow", "cold", "rude", "disappointed",
	}
)

// ClassifySentiment counts keyword hits in the lower-cased text. Matching is
// by substring and each keyword counts once; ties are neutral.
func ClassifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	pos := countContained(lower, positiveWords)
	neg := countContained(lower, negativeWords)

	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
