package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		text string
		want Sentiment
	}{
		{"This was great and amazing", SentimentPositive},
		{"terrible and awful", SentimentNegative},
		{"it was ok", SentimentNeutral},
		{"", SentimentNeutral},
		{"Great food but the rider was rude", SentimentNeutral},
		{"DELICIOUS!", SentimentPositive},
		{"The soup arrived cold and the driver was slow", SentimentNegative},
		// substring containment: "goodness" contains "good"
		{"oh my goodness", SentimentPositive},
		// repeated keywords count once
		{"bad bad bad but the best", SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySentiment(tt.text))
		})
	}
}
