package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kvchat/types"
)

const (
	minRoomPasswordLen = 4
	minUserLimit       = 2
)

type CreateRoomParams struct {
	Name      string
	Creator   types.User
	IsPrivate bool
	// Password gates entry when IsPrivate; required there, ignored otherwise.
	Password string
	// UserLimit of zero means unlimited, otherwise at least 2.
	UserLimit int
}

// Rooms lists every room in creation order, read fresh from the store.
func (s *Service) Rooms(ctx context.Context) ([]types.Room, error) {
	return getList[types.Room](ctx, s.store, roomsKey)
}

// CreateRoom validates fully before writing, then appends the room with its
// creator as the sole online member and initializes its empty message log.
func (s *Service) CreateRoom(ctx context.Context, params CreateRoomParams) (types.Room, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" || params.Creator.Id == "" {
		return types.Room{}, NewValidationError("Room name and creator are required")
	}
	if params.IsPrivate && params.Password == "" {
		return types.Room{}, NewValidationError("Private rooms require a password")
	}
	if params.IsPrivate && len(params.Password) < minRoomPasswordLen {
		return types.Room{}, NewValidationError(fmt.Sprintf("Room password must be at least %d characters", minRoomPasswordLen))
	}
	if params.UserLimit != 0 && params.UserLimit < minUserLimit {
		return types.Room{}, NewValidationError(fmt.Sprintf("User limit must be at least %d", minUserLimit))
	}

	var passwordDigest string
	if params.IsPrivate {
		digest, err := s.hasher.Hash(params.Password)
		if err != nil {
			return types.Room{}, fmt.Errorf("hash room password: %w", err)
		}
		passwordDigest = digest
	}

	id, err := s.newId("room_")
	if err != nil {
		return types.Room{}, err
	}

	var room types.Room
	err = updateList(ctx, s.store, roomsKey, func(rooms []types.Room) ([]types.Room, error) {
		for _, r := range rooms {
			if strings.EqualFold(r.Name, name) {
				return nil, NewDuplicateRoomNameError()
			}
		}

		now := s.now()
		room = types.Room{
			Id:             id,
			Name:           name,
			CreatedBy:      params.Creator,
			CreatedAt:      now,
			IsPrivate:      params.IsPrivate,
			PasswordDigest: passwordDigest,
			UserLimit:      params.UserLimit,
			Members: []types.Membership{
				onlineMembership(params.Creator, now),
			},
			LastActivity: now,
		}

		return append(rooms, room), nil
	})
	if err != nil {
		return types.Room{}, err
	}

	// a room's log exists from the moment the room does
	empty, _ := json.Marshal([]types.Message{})
	if err := s.store.Set(ctx, messagesKey(room.Id), empty); err != nil {
		return types.Room{}, fmt.Errorf("initialize message log: %w", err)
	}

	s.incr(MetricRoomsCreated)
	s.log.Printf("created room %q (%s)", room.Name, room.Id)
	return room, nil
}

// RoomUsers returns the room's membership records, empty if the room is
// absent.
func (s *Service) RoomUsers(ctx context.Context, roomId string) ([]types.Membership, error) {
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range rooms {
		if r.Id == roomId {
			return r.Members, nil
		}
	}
	return nil, nil
}

// RefreshPresence marks the user online in the room, appending a membership
// on first contact and updating it afterwards. It is idempotent and
// deliberately has no capacity check: a heartbeat from a user who is already
// inside must never be rejected because the room is momentarily full.
// Unknown rooms are a no-op.
func (s *Service) RefreshPresence(ctx context.Context, roomId string, user types.User) error {
	return updateList(ctx, s.store, roomsKey, func(rooms []types.Room) ([]types.Room, error) {
		for i := range rooms {
			if rooms[i].Id == roomId {
				upsertMember(&rooms[i], user, s.now())
				break
			}
		}
		return rooms, nil
	})
}

// MarkOffline releases the user's presence in the room, recording when they
// left. The membership record itself stays. No-op if either is absent.
func (s *Service) MarkOffline(ctx context.Context, roomId, userId string) error {
	return updateList(ctx, s.store, roomsKey, func(rooms []types.Room) ([]types.Room, error) {
		for i := range rooms {
			if rooms[i].Id != roomId {
				continue
			}

			for j := range rooms[i].Members {
				if rooms[i].Members[j].Id == userId {
					now := s.now()
					rooms[i].Members[j].IsOnline = false
					rooms[i].Members[j].LeftAt = &now
					break
				}
			}
			break
		}
		return rooms, nil
	})
}

// touchActivity bumps the room's last-activity timestamp.
func (s *Service) touchActivity(ctx context.Context, roomId string) error {
	return updateList(ctx, s.store, roomsKey, func(rooms []types.Room) ([]types.Room, error) {
		for i := range rooms {
			if rooms[i].Id == roomId {
				rooms[i].LastActivity = s.now()
				break
			}
		}
		return rooms, nil
	})
}

func onlineMembership(user types.User, now time.Time) types.Membership {
	m := types.Membership{
		User:       user,
		JoinedAt:   now,
		LastActive: now,
	}
	m.IsOnline = true
	return m
}

// upsertMember is the single membership-count-increasing path. Rejoining
// brings the existing record back online rather than duplicating it.
func upsertMember(room *types.Room, user types.User, now time.Time) {
	for i := range room.Members {
		if room.Members[i].Id == user.Id {
			room.Members[i].IsOnline = true
			room.Members[i].LastActive = now
			room.Members[i].LeftAt = nil
			return
		}
	}

	room.Members = append(room.Members, onlineMembership(user, now))
}

// onlineMemberCount is the "active member count" the capacity gate measures.
func onlineMemberCount(room types.Room) int {
	var n int
	for _, m := range room.Members {
		if m.IsOnline {
			n++
		}
	}
	return n
}

func isMember(room types.Room, userId string) bool {
	for _, m := range room.Members {
		if m.Id == userId {
			return true
		}
	}
	return false
}
