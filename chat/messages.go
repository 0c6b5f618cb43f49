package chat

import (
	"context"
	"strings"

	"kvchat/types"
)

// SendMessage appends to the room's log and, because sending implies the
// sender is present, refreshes their presence and the room's activity.
func (s *Service) SendMessage(ctx context.Context, roomId string, sender types.User, content string) (types.Message, error) {
	content = strings.TrimSpace(content)
	if roomId == "" || sender.Id == "" || content == "" {
		return types.Message{}, NewValidationError("Room ID, sender, and message content are required")
	}

	id, err := s.newId("msg_")
	if err != nil {
		return types.Message{}, err
	}

	msg := types.Message{
		Id:        id,
		RoomId:    roomId,
		Sender:    sender,
		Content:   content,
		Timestamp: s.now(),
	}

	err = updateList(ctx, s.store, messagesKey(roomId), func(msgs []types.Message) ([]types.Message, error) {
		msgs = append(msgs, msg)
		if s.retention > 0 && len(msgs) > s.retention {
			msgs = msgs[len(msgs)-s.retention:]
		}
		return msgs, nil
	})
	if err != nil {
		return types.Message{}, err
	}

	if err := s.touchActivity(ctx, roomId); err != nil {
		return types.Message{}, err
	}
	if err := s.RefreshPresence(ctx, roomId, sender); err != nil {
		return types.Message{}, err
	}

	s.incr(MetricMessagesSent)
	return msg, nil
}

// RoomMessages returns the room's full log in append order. Append order is
// authoritative; entries are never re-sorted by timestamp.
func (s *Service) RoomMessages(ctx context.Context, roomId string) ([]types.Message, error) {
	return getList[types.Message](ctx, s.store, messagesKey(roomId))
}
