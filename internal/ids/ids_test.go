package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID_SortableAndUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	_, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}
