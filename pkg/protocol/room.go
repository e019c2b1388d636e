package protocol

type RoomCode = string

type PlaybackState struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"currentTime"`
}

// Inbound message kinds.
const (
	TypeCreate   = "create"
	TypeJoin     = "join"
	TypeSync     = "sync"
	TypeChat     = "chat"
	TypeSetVideo = "setVideo"
)

// Outbound message kinds. TypeSync and TypeChat are shared with inbound.
const (
	TypeCreated      = "created"
	TypeJoined       = "joined"
	TypeError        = "error"
	TypeUserJoined   = "userJoined"
	TypeVideoChanged = "videoChanged"
	TypeNewLeader    = "newLeader"
	TypeUserLeft     = "userLeft"
)

type CreateRequest struct {
	VideoRef string `json:"videoRef"`
	Username string `json:"username"`
}

type JoinRequest struct {
	RoomCode RoomCode `json:"roomCode"`
	Username string   `json:"username"`
}

type SyncRequest struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"currentTime"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type SetVideoRequest struct {
	VideoRef string `json:"videoRef"`
}

type CreatedMessage struct {
	Type     string   `json:"type"`
	RoomCode RoomCode `json:"roomCode"`
	IsLeader bool     `json:"isLeader"`
}

type JoinedMessage struct {
	Type          string        `json:"type"`
	RoomCode      RoomCode      `json:"roomCode"`
	IsLeader      bool          `json:"isLeader"`
	VideoRef      string        `json:"videoRef"`
	PlaybackState PlaybackState `json:"playbackState"`
	MemberNames   []string      `json:"memberNames"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NameMessage carries userJoined, newLeader and userLeft events.
type NameMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type SyncMessage struct {
	Type            string  `json:"type"`
	Playing         bool    `json:"playing"`
	CurrentTime     float64 `json:"currentTime"`
	ServerTimestamp int64   `json:"serverTimestamp"`
}

type ChatMessage struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type VideoChangedMessage struct {
	Type     string `json:"type"`
	VideoRef string `json:"videoRef"`
}
