package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvchat/store"
	"kvchat/testutil"
)

func TestSendMessage_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := testUser("u1", "alice")

	tcases := []struct {
		name    string
		roomId  string
		sender  string
		content string
	}{
		{name: "empty room id", roomId: "", sender: "u1", content: "hi"},
		{name: "missing sender", roomId: "room_x", sender: "", content: "hi"},
		{name: "empty content", roomId: "room_x", sender: "u1", content: ""},
		{name: "whitespace content", roomId: "room_x", sender: "u1", content: "   \t\n"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			sender := alice
			sender.Id = tc.sender
			_, err := svc.SendMessage(ctx, tc.roomId, sender, tc.content)
			assert.True(t, IsKind(err, KindValidation), "expected validation error, got %v", err)
		})
	}
}

func TestSendMessage_AppendReadRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := testUser("u1", "alice")

	room, err := svc.CreateRoom(ctx, CreateRoomParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	sent, err := svc.SendMessage(ctx, room.Id, alice, "  hello world  ")
	require.NoError(t, err)

	assert.NotEmpty(t, sent.Id)
	assert.Equal(t, room.Id, sent.RoomId)
	assert.Equal(t, alice.Id, sent.Sender.Id)
	assert.Equal(t, "hello world", sent.Content, "expected content to be trimmed")
	assert.False(t, sent.Timestamp.IsZero())

	msgs, err := svc.RoomMessages(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, sent, msgs[0])
}

func TestSendMessage_SideEffects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := testUser("u1", "alice")
	bob := testUser("u2", "bob")

	room, err := svc.CreateRoom(ctx, CreateRoomParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)
	before := room.LastActivity

	// make the clock move past the creation timestamp
	svc.now = func() time.Time { return before.Add(5 * time.Second) }

	// bob never joined; sending implies presence
	_, err = svc.SendMessage(ctx, room.Id, bob, "hi")
	require.NoError(t, err)

	rooms, err := svc.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].LastActivity.After(before), "expected send to touch last activity")

	members, err := svc.RoomUsers(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, members, 2)
	var found bool
	for _, m := range members {
		if m.Id == bob.Id {
			found = true
			assert.True(t, m.IsOnline, "expected sender presence to be refreshed")
		}
	}
	assert.True(t, found, "expected sender to gain a membership")
}

func TestRoomMessages_AppendOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := testUser("u1", "alice")

	room, err := svc.CreateRoom(ctx, CreateRoomParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, room.Id, alice, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	msgs, err := svc.RoomMessages(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Content, "expected append order to be preserved")
	}
}

func TestRoomMessages_AbsentRoom(t *testing.T) {
	svc := newTestService(t)

	msgs, err := svc.RoomMessages(context.Background(), "room_absent")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessage_Retention(t *testing.T) {
	svc := NewService(testutil.TestLogger(t), store.NewMemoryStore(), LegacyHasher{}, nil, 3)
	ctx := context.Background()
	alice := testUser("u1", "alice")

	room, err := svc.CreateRoom(ctx, CreateRoomParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, room.Id, alice, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	msgs, err := svc.RoomMessages(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 3, "expected the log to be capped at the retention limit")
	assert.Equal(t, "message 2", msgs[0].Content, "expected oldest entries to be dropped first")
	assert.Equal(t, "message 4", msgs[2].Content)
}
