package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment(t *testing.T) {
	cases := []struct {
		value float64
		want  SentimentLabel
	}{
		{0, SentimentExtremeFear},
		{24.9, SentimentExtremeFear},
		{25, SentimentFear},
		{44.9, SentimentFear},
		{45, SentimentNeutral},
		{55, SentimentNeutral},
		{55.1, SentimentGreed},
		{75, SentimentGreed},
		{75.1, SentimentExtremeGreed},
		{100, SentimentExtremeGreed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySentiment(tc.value), "value %.1f", tc.value)
	}
}
