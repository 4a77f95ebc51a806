package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatGBP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount int
		want   string
	}{
		{0, "£0"},
		{45, "£45"},
		{1207, "£1,207"},
		{1234567, "£1,234,567"},
		{-100, "-£100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatGBP(tt.amount))
	}
	assert.Equal(t, "£92/mo", FormatMonthly(92))
}
