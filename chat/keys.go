package chat

// Key layout of the shared namespace. Renaming any of these breaks every
// client already pointed at the same store.
const (
	usersKey          = "users"
	sessionKey        = "currentSession"
	roomsKey          = "rooms"
	messagesKeyPrefix = "messages:"
)

func messagesKey(roomId string) string {
	return messagesKeyPrefix + roomId
}
