package types

import (
	"time"
)

// User is the public view of an identity. The stored record additionally
// carries the password digest and never leaves the chat package.
type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	IsOnline  bool      `json:"is_online,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is the logged-in view of a user, persisted under the
// currentSession key. It is exactly the public User shape.
type Session = User

type Room struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedBy      User      `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	IsPrivate      bool      `json:"is_private"`
	PasswordDigest string    `json:"password_digest,omitempty"`
	// UserLimit of zero means unlimited.
	UserLimit    int          `json:"user_limit,omitempty"`
	Members      []Membership `json:"members"`
	LastActivity time.Time    `json:"last_activity"`
}

// Membership records a user's relationship to a room. A user has at most
// one Membership per room; rejoining updates the record in place.
type Membership struct {
	User
	JoinedAt   time.Time  `json:"joined_at"`
	LastActive time.Time  `json:"last_active,omitempty"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
}

type Message struct {
	Id        string    `json:"id"`
	RoomId    string    `json:"room_id"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
