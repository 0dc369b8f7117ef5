package kafka

import (
	"testing"
	"time"

	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventToStruct(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s, err := EventToStruct(auth.Event{
		ID:    id,
		Type:  auth.EventRevokedAll,
		Email: "user@example.com",
		Count: 3,
		At:    at,
	})
	require.NoError(t, err)

	m := s.AsMap()
	assert.Equal(t, id.String(), m["id"])
	assert.Equal(t, "revoked_all", m["type"])
	assert.Equal(t, "user@example.com", m["email"])
	assert.Equal(t, float64(3), m["count"])
	assert.Equal(t, "2026-01-02T03:04:05Z", m["at"])
	assert.NotContains(t, m, "jti")
	assert.NotContains(t, m, "reason")
}
