package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"spystory-server/internal/service"
)

func TestHistoryBuffer(t *testing.T) {
	entry := func(text string) service.HistoryEntry {
		return service.HistoryEntry{
			NodeID:        uuid.New(),
			NarrativeText: text,
			Timestamp:     time.Now().UTC(),
		}
	}

	t.Run("keeps only the three most recent entries", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		userID := uuid.New()

		entries := make([]service.HistoryEntry, 5)
		for i := range entries {
			entries[i] = entry(fmt.Sprintf("scene %d", i))
			buf.Push(userID, entries[i])
		}

		recent := buf.Recent(userID)
		assert.Equal(t, []service.HistoryEntry{entries[2], entries[3], entries[4]}, recent)
	})

	t.Run("entries carry node id, narrative and timestamp", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		userID := uuid.New()

		departed := entry("The rooftop meeting.")
		buf.Push(userID, departed)

		recent := buf.Recent(userID)
		assert.Len(t, recent, 1)
		assert.Equal(t, departed.NodeID, recent[0].NodeID)
		assert.Equal(t, "The rooftop meeting.", recent[0].NarrativeText)
		assert.False(t, recent[0].Timestamp.IsZero())
	})

	t.Run("narratives returns texts oldest first", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		userID := uuid.New()

		buf.Push(userID, entry("first"))
		buf.Push(userID, entry("second"))

		assert.Equal(t, []string{"first", "second"}, buf.Narratives(userID))
	})

	t.Run("isolates users", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		alice := uuid.New()
		bob := uuid.New()

		aliceEntry := entry("alice scene")
		bobEntry := entry("bob scene")
		buf.Push(alice, aliceEntry)
		buf.Push(bob, bobEntry)

		assert.Equal(t, []service.HistoryEntry{aliceEntry}, buf.Recent(alice))
		assert.Equal(t, []service.HistoryEntry{bobEntry}, buf.Recent(bob))
	})

	t.Run("clear drops the trail", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		userID := uuid.New()

		buf.Push(userID, entry("gone"))
		buf.Clear(userID)

		assert.Empty(t, buf.Recent(userID))
		assert.Empty(t, buf.Narratives(userID))
	})

	t.Run("recent returns a copy", func(t *testing.T) {
		buf := service.NewHistoryBuffer()
		userID := uuid.New()
		first := entry("original")
		buf.Push(userID, first)

		recent := buf.Recent(userID)
		recent[0].NarrativeText = "mutated"

		assert.Equal(t, []service.HistoryEntry{first}, buf.Recent(userID))
	})
}
