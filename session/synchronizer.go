// Package session runs the polling protocol a client uses to converge its
// view of the shared store with everyone else's. There is no push channel
// between clients, so "real time" is reconstructed from periodic refetches:
// any two clients agree within one poll interval, and nothing stronger.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"kvchat/chat"
	"kvchat/config"
	"kvchat/stats"
	"kvchat/types"
)

// Metric names registered by the synchronizer.
const (
	MetricPollTicks    = "PollTicks"
	MetricActiveRooms  = "ActiveRoomSessions"
	MetricRoomsWatched = "DirectoryPolls"
)

// RoomState is one converged snapshot of a room: its log and membership as
// of the poll tick that produced it.
type RoomState struct {
	Messages []types.Message
	Members  []types.Membership
}

// Synchronizer drives polling for one logged-in client. Entering a room
// starts a per-room refresh loop; leaving stops the loop and then releases
// presence, so remote clients observe the departure on their next tick.
type Synchronizer struct {
	svc   *chat.Service
	log   *log.Logger
	cfg   *config.Config
	stats stats.StatsProvider

	session types.Session

	roomsLock sync.Mutex
	rooms     map[string]*RoomSession
}

func NewSynchronizer(logger *log.Logger, svc *chat.Service, cfg *config.Config, sp stats.StatsProvider, session types.Session) *Synchronizer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if sp != nil {
		sp.RegisterMetric(MetricPollTicks)
		sp.RegisterMetric(MetricActiveRooms)
		sp.RegisterMetric(MetricRoomsWatched)
	}

	return &Synchronizer{
		svc:     svc,
		log:     logger,
		cfg:     cfg,
		stats:   sp,
		session: session,
		rooms:   make(map[string]*RoomSession),
	}
}

func (s *Synchronizer) incr(name string) {
	if s.stats != nil {
		s.stats.Incr(name)
	}
}

func (s *Synchronizer) decr(name string) {
	if s.stats != nil {
		s.stats.Decr(name)
	}
}

// EnterRoom joins the room through the access controller and starts its
// polling loop. The first snapshot is fetched immediately rather than one
// interval later. Entering a room that is already being polled returns the
// live session; a second loop for the same room would have no owner to stop
// it, and its heartbeat would keep republishing presence after leave/logout.
func (s *Synchronizer) EnterRoom(ctx context.Context, roomId, password string) (*RoomSession, error) {
	s.roomsLock.Lock()
	defer s.roomsLock.Unlock()

	if rs, ok := s.rooms[roomId]; ok {
		return rs, nil
	}

	room, err := s.svc.JoinRoom(ctx, roomId, s.session, password)
	if err != nil {
		return nil, err
	}

	rs := &RoomSession{
		sync:    s,
		room:    room,
		updates: make(chan RoomState, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	s.rooms[roomId] = rs
	s.incr(MetricActiveRooms)

	go rs.run()

	return rs, nil
}

// WatchRooms polls the room directory on the slower interval, delivering
// each listing until ctx is cancelled.
func (s *Synchronizer) WatchRooms(ctx context.Context) <-chan []types.Room {
	updates := make(chan []types.Room, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(s.cfg.RoomPollInterval)
		defer ticker.Stop()

		for {
			rooms, err := s.svc.Rooms(ctx)
			if err != nil {
				s.log.Println("poll rooms:", err)
			} else {
				deliverLatest(updates, rooms)
			}
			s.incr(MetricRoomsWatched)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}

// Logout leaves every active room, releasing presence, then closes the
// credential-store session.
func (s *Synchronizer) Logout(ctx context.Context) error {
	s.roomsLock.Lock()
	active := make([]*RoomSession, 0, len(s.rooms))
	for _, rs := range s.rooms {
		active = append(active, rs)
	}
	s.roomsLock.Unlock()

	for _, rs := range active {
		rs.Leave()
	}

	return s.svc.Logout(ctx, s.session)
}

// Session returns the logged-in user this synchronizer polls for.
func (s *Synchronizer) Session() types.Session {
	return s.session
}

func (s *Synchronizer) dropRoom(roomId string) {
	s.roomsLock.Lock()
	defer s.roomsLock.Unlock()

	if _, ok := s.rooms[roomId]; ok {
		delete(s.rooms, roomId)
		s.decr(MetricActiveRooms)
	}
}

// RoomSession is one client's live view of one room.
type RoomSession struct {
	sync *Synchronizer
	room types.Room

	updates chan RoomState
	stop    chan struct{}
	done    chan struct{}

	leaveOnce sync.Once
}

// Room returns the room as it looked at join time.
func (rs *RoomSession) Room() types.Room {
	return rs.room
}

// Updates delivers snapshots latest-wins: a slow consumer only ever misses
// intermediate states, never blocks the poll loop.
func (rs *RoomSession) Updates() <-chan RoomState {
	return rs.updates
}

func (rs *RoomSession) run() {
	defer close(rs.done)

	ticker := time.NewTicker(rs.sync.cfg.MessagePollInterval)
	defer ticker.Stop()

	for {
		rs.poll()

		select {
		case <-rs.stop:
			return
		case <-ticker.C:
		}
	}
}

// poll is one atomic tick: republish the presence heartbeat, refetch the
// log and the membership snapshot, hand the derived view to the consumer.
func (rs *RoomSession) poll() {
	ctx := context.Background()

	if err := rs.sync.svc.RefreshPresence(ctx, rs.room.Id, rs.sync.session); err != nil {
		rs.sync.log.Println("refresh presence:", err)
	}

	messages, err := rs.sync.svc.RoomMessages(ctx, rs.room.Id)
	if err != nil {
		rs.sync.log.Println("poll messages:", err)
		return
	}

	members, err := rs.sync.svc.RoomUsers(ctx, rs.room.Id)
	if err != nil {
		rs.sync.log.Println("poll members:", err)
		return
	}

	rs.sync.incr(MetricPollTicks)
	deliverLatest(rs.updates, RoomState{Messages: messages, Members: members})
}

// Leave stops the heartbeat loop, then releases presence synchronously. The
// ordering is the contract: markOffline is the last store write of the
// session, so a straggling heartbeat can never resurrect a departed user,
// and the departure is visible to remote clients on their next tick.
func (rs *RoomSession) Leave() {
	rs.leaveOnce.Do(func() {
		close(rs.stop)
		<-rs.done
		close(rs.updates)

		if err := rs.sync.svc.MarkOffline(context.Background(), rs.room.Id, rs.sync.session.Id); err != nil {
			rs.sync.log.Println("mark offline:", err)
		}

		rs.sync.dropRoom(rs.room.Id)
		rs.sync.log.Printf("left room %q", rs.room.Name)
	})
}

// deliverLatest replaces a pending value rather than blocking on it.
func deliverLatest[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
