package events_test

import (
	"testing"

	"github.com/MensaSverige/swagapp-sub001/events"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	payload := []byte(`[
		{"kind":"member","id":"1","title":"Fika","start":"2024-08-17T19:00:00Z","host":"u1","attendees":["u2"],"location":{"latitude":59.3,"longitude":18.0}},
		{"kind":"external","id":"2","title":"Lecture","start":"2024-08-18T10:00:00Z","end":"2024-08-18T12:00:00Z","url":"https://example.org/e/2"},
		{"id":"3","name":"Board game night","start":"2024-08-19T17:00:00Z","host":"u9"},
		{"id":"4","title":"Annual meeting","start":"2024-09-01T09:00:00Z"}
	]`)

	records, err := events.Decode(payload)
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.Equal(t, events.KindMember, records[0].Kind)
	require.Equal(t, "u1", records[0].Host)
	require.Equal(t, []string{"u2"}, records[0].Attendees)
	require.True(t, records[0].HasUsableLocation())
	require.Nil(t, records[0].End)

	require.Equal(t, events.KindExternal, records[1].Kind)
	require.Equal(t, "https://example.org/e/2", records[1].URL)
	require.NotNil(t, records[1].End)
	require.Empty(t, records[1].Host)

	require.Equal(t, events.KindMember, records[2].Kind)
	require.Equal(t, "Board game night", records[2].Title)

	require.Equal(t, events.KindExternal, records[3].Kind)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := events.Decode([]byte(`[{"kind":"party","id":"1","start":"2024-08-17T19:00:00Z"}]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown event kind")
}

func TestDecodeLocations(t *testing.T) {
	locs, err := events.DecodeLocations([]byte(`[
		{"userId":"u1","name":"Ada","location":{"latitude":59.3,"longitude":18.0},"updatedAt":"2024-08-17T17:55:00Z"},
		{"userId":"u2","name":"Bo"}
	]`))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	require.True(t, locs[0].HasUsableLocation())
	require.False(t, locs[1].HasUsableLocation())
}
