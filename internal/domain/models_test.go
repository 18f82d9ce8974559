package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingClicks_Merge(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := PendingClicks{Count: 2, LastClicked: base}
	p.Merge(PendingClicks{Count: 3, LastClicked: base.Add(time.Minute)})
	assert.Equal(t, int64(5), p.Count)
	assert.Equal(t, base.Add(time.Minute), p.LastClicked)

	// An older timestamp must not move last clicked backwards
	p.Merge(PendingClicks{Count: 1, LastClicked: base})
	assert.Equal(t, int64(6), p.Count)
	assert.Equal(t, base.Add(time.Minute), p.LastClicked)
}

func TestPendingClicks_ApplyTo(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("never clicked link", func(t *testing.T) {
		link := &Link{Code: "abc123", Clicks: 0}
		PendingClicks{Count: 2, LastClicked: base}.ApplyTo(link)
		assert.Equal(t, int64(2), link.Clicks)
		require.NotNil(t, link.LastClicked)
		assert.Equal(t, base, *link.LastClicked)
	})

	t.Run("stored timestamp is newer", func(t *testing.T) {
		newer := base.Add(time.Hour)
		link := &Link{Code: "abc123", Clicks: 4, LastClicked: &newer}
		PendingClicks{Count: 1, LastClicked: base}.ApplyTo(link)
		assert.Equal(t, int64(5), link.Clicks)
		assert.Equal(t, newer, *link.LastClicked)
	})

	t.Run("zero count is a no-op", func(t *testing.T) {
		link := &Link{Code: "abc123", Clicks: 4}
		PendingClicks{}.ApplyTo(link)
		assert.Equal(t, int64(4), link.Clicks)
		assert.Nil(t, link.LastClicked)
	})
}

func TestLink_JSONShape(t *testing.T) {
	link := Link{
		Code:      "abc123",
		URL:       "https://example.com",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(link)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "abc123", fields["code"])
	assert.Equal(t, "https://example.com", fields["url"])
	assert.Equal(t, float64(0), fields["clicks"])
	assert.Contains(t, fields, "last_clicked")
	assert.Nil(t, fields["last_clicked"])
	assert.Equal(t, "2024-01-01T00:00:00Z", fields["created_at"])
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("failed to get link: %w", ErrNotFound)))
	assert.False(t, IsNotFound(ErrCodeConflict))
	assert.True(t, IsConflict(fmt.Errorf("failed to create link: %w", ErrCodeConflict)))
	assert.False(t, IsConflict(ErrInvalidInput))
}
