package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMutationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{
			name: "direct mutation error",
			err:  &MutationError{Kind: FailureRateLimit, Message: "throttled"},
			want: FailureRateLimit,
		},
		{
			name: "wrapped mutation error keeps its kind",
			err:  fmt.Errorf("storefront write: %w", &MutationError{Kind: FailureLimitReached, Message: "plan limit"}),
			want: FailureLimitReached,
		},
		{
			name: "unclassified error is generic",
			err:  fmt.Errorf("connection reset"),
			want: FailureGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMutationError(tt.err))
		})
	}
}
