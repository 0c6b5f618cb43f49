package chat

import (
	"context"

	"kvchat/types"
)

// JoinRoom admits a user into a room, gating on privacy, password and
// capacity. The checks and the membership write happen inside one serialized
// store update, so two racing joins cannot both squeeze past the limit.
//
// Capacity is a soft admission gate applied only here, never on presence
// refresh. Existing members, online or not, always get back in even at
// capacity; that keeps reconnection working. The creator bypasses the
// password gate on their own room.
func (s *Service) JoinRoom(ctx context.Context, roomId string, user types.User, password string) (types.Room, error) {
	var joined types.Room
	err := updateList(ctx, s.store, roomsKey, func(rooms []types.Room) ([]types.Room, error) {
		idx := -1
		for i := range rooms {
			if rooms[i].Id == roomId {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, NewRoomNotFoundError()
		}

		room := &rooms[idx]

		if room.IsPrivate && room.CreatedBy.Id != user.Id {
			if password == "" || !s.hasher.Verify(room.PasswordDigest, password) {
				return nil, NewBadPasswordError()
			}
		}

		if room.UserLimit > 0 {
			if onlineMemberCount(*room) >= room.UserLimit && !isMember(*room, user.Id) {
				return nil, NewRoomFullError(room.UserLimit)
			}
		}

		upsertMember(room, user, s.now())
		joined = *room
		return rooms, nil
	})
	if err != nil {
		return types.Room{}, err
	}

	s.incr(MetricJoins)
	s.log.Printf("user %q joined room %q", user.Username, joined.Name)
	return joined, nil
}
