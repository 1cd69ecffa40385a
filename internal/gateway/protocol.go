package gateway

// MessageType classifies server-to-adapter websocket messages.
type MessageType string

const (
	MsgLevelUp MessageType = "level_up"
	MsgError   MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// LevelUpPayload announces that a grant raised a user's level. The
// platform adapter decides whether and where to surface it.
type LevelUpPayload struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Level        int    `json:"level"`
	LevelsGained int    `json:"levelsGained"`
}

// EventRequest is one activity notification posted by the platform
// adapter. Timestamp is wall-clock milliseconds; zero means "now".
type EventRequest struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
	Bot       bool   `json:"bot,omitempty"`
}

type EventResponse struct {
	Awarded bool `json:"awarded"`
	Level   int  `json:"level,omitempty"`
	XP      int  `json:"xp,omitempty"`
}

// StatsPanel is the reply layout for a stats query: a titled panel with
// labeled fields, in the shape chat platforms render as an embed.
type StatsPanel struct {
	Title  string       `json:"title"`
	Fields []PanelField `json:"fields"`
	Color  int          `json:"color"`
}

type PanelField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// CommandDefinition describes a slash-style command for the adapter to
// register with the host platform.
type CommandDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options"`
}

type CommandOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type"`
	Required    bool   `json:"required"`
}
