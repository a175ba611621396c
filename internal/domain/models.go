package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
)

// Placeholder values used when the gateway gives us nothing better.
// They match the strings the Chatwork web client itself shows.
const (
	// UnnamedRoom is substituted when a room has no name of its own and no
	// contact entry points at it.
	UnnamedRoom = "ルーム名なし"
	// UnknownUserName is substituted when account info resolution has no
	// entry for an author id.
	UnknownUserName = "ユーザー名情報なし"
)

// ErrSessionMissing indicates that the access token or user id is absent.
// Export fails on it before any network call is made.
var ErrSessionMissing = errors.New("chatwork session token or user id is missing")

// Session holds the authenticated Chatwork session supplied by the host
// environment. The core treats both values as opaque strings.
type Session struct {
	Token string
	MyID  string
}

// Validate reports whether the session carries both required values.
func (s Session) Validate() error {
	if s.Token == "" || s.MyID == "" {
		return ErrSessionMissing
	}
	return nil
}

// Message is a single chat message as returned by the gateway. The wire
// object carries a varying set of keys (id, aid, tm, utm, msg, type, index,
// reactions, ...), so it is kept as a dynamic map: enrichment mutates it in
// place and serialization preserves every field we never interpreted.
// Numeric values decode as json.Number.
type Message map[string]any

// ID returns the message id, or 0 if the field is absent or unparsable.
// Ids are monotonic and serve as the pagination cursor.
func (m Message) ID() int64 {
	return m.Int64("id")
}

// AuthorID returns the account id of the message author.
func (m Message) AuthorID() int64 {
	return m.Int64("aid")
}

// Int64 reads a numeric field that the gateway may encode as a JSON number
// or as a string. Returns 0 when the field is absent or malformed.
func (m Message) Int64(key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return i
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// SortMessagesByID orders messages ascending by id in place. Pages arrive
// mostly ordered already, but the reader never relies on that.
func SortMessagesByID(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ID() < messages[j].ID()
	})
}

// Room is one conversation entity in the room directory.
type Room struct {
	ID   int64
	Name string // raw name from room_dat; may be empty
}

// Contact is a contact list entry. Direct chats often carry their display
// name only here, keyed by the room id they map to.
type Contact struct {
	RoomID int64
	Name   string
}

// RoomDirectory is the initial bulk snapshot: every room the account is a
// member of plus the contact list. Raw preserves the untouched init_load
// result for the structure-preserving JSON dump.
type RoomDirectory struct {
	Raw      json.RawMessage
	Rooms    []Room
	Contacts []Contact
}

// RoomName resolves a display name for a room: the room's own name first,
// then the contact entry pointing at the room, then UnnamedRoom.
func (d *RoomDirectory) RoomName(roomID int64) string {
	for _, r := range d.Rooms {
		if r.ID == roomID && r.Name != "" {
			return r.Name
		}
	}
	for _, c := range d.Contacts {
		if c.RoomID == roomID && c.Name != "" {
			return c.Name
		}
	}
	return UnnamedRoom
}

// AttachmentFile describes one downloadable file attached to a room.
type AttachmentFile struct {
	ID   int64
	Name string // original filename ("fn" on the wire)
}

// RoomSnapshot is the current-window payload of a room: Raw holds the
// untouched load_chat result, Files the parsed attachment list.
type RoomSnapshot struct {
	Raw   json.RawMessage
	Files []AttachmentFile
}

// Account is the resolved profile of one author.
type Account struct {
	Name string
}

// AccountInfo maps author ids to resolved profiles. Raw preserves the
// untouched get_account_info result.
type AccountInfo struct {
	Raw      json.RawMessage
	Accounts map[int64]Account
}

// Name returns the display name for an author id, falling back to
// UnknownUserName when resolution had no entry. Name enrichment is
// best-effort: a gap here never fails a room export.
func (a AccountInfo) Name(aid int64) string {
	if acc, ok := a.Accounts[aid]; ok && acc.Name != "" {
		return acc.Name
	}
	return UnknownUserName
}
