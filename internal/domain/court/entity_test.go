//go:build unit

package court_test

import (
	"testing"

	"courtdesk/internal/domain/court"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCourt(t *testing.T) {
	t.Run("creates an active court", func(t *testing.T) {
		c, err := court.NewCourt(uuid.New(), uuid.New(), "Court 1", court.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, "Court 1", c.Name())
		assert.NoError(t, c.Bookable())
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := court.NewCourt(uuid.New(), uuid.New(), "", court.StatusActive)
		assert.ErrorIs(t, err, court.ErrEmptyName)
	})
}

func TestBookable(t *testing.T) {
	c, err := court.NewCourt(uuid.New(), uuid.New(), "Court 2", court.StatusMaintenance)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Bookable(), court.ErrCourtInactive)
}
