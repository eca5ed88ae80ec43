package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Topic is the {type, operation} pair every Message carries.
type Topic struct {
	Type      TopicType `json:"type"`
	Operation Operation `json:"operation"`
}

// Payload is implemented by the five value variants a Message can carry.
// A nil Payload is legal for GAME/LEAVE, GAME/END and GAME/START, which the
// client is allowed to send without a value.
type Payload interface {
	isPayload()
}

// GameMessage carries GAME-topic payloads: replies to CREATE/JOIN/LEAVE,
// the TURN/WIN broadcasts, and the END summary.
type GameMessage struct {
	Success    bool           `json:"success"`
	GameID     string         `json:"game_id"`
	Difficulty string         `json:"difficulty,omitempty"`
	GameLength int            `json:"game_length,omitempty"`
	Turn       *TurnMessage   `json:"turn,omitempty"`
	Members    []string       `json:"members,omitempty"`
	Score      map[string]int `json:"score,omitempty"`
	TopScorers []string       `json:"top_scorers,omitempty"`
}

func (GameMessage) isPayload() {}

// TurnMessage is the per-turn snapshot embedded in a GameMessage.
type TurnMessage struct {
	TurnNo   int            `json:"turn_no"`
	Active   bool           `json:"active"`
	Level    string         `json:"level"`
	Drawer   string         `json:"drawer,omitempty"`
	Duration int            `json:"duration"`
	Phrase   string         `json:"phrase"`
	Winner   string         `json:"winner,omitempty"`
	Score    map[string]int `json:"score"`
}

// LineData is the payload of a DRAW/LINE or DRAW/FRAME operation.
type LineData struct {
	Line   []float64 `json:"line"`
	Colour []float64 `json:"colour"`
	Width  int       `json:"width"`
}

// RectData is the payload of a DRAW/RECT operation.
type RectData struct {
	Pos    []float64 `json:"pos"`
	Colour []float64 `json:"colour"`
	Size   []float64 `json:"size"`
}

// PictureMessage carries DRAW-topic payloads. Data holds either a LineData
// or a RectData depending on the enclosing Topic.Operation (validated by
// Decode, not by this type itself, since Go has no sum-type union here).
type PictureMessage struct {
	DrawID string      `json:"draw_id"`
	Data   interface{} `json:"data"`
}

func (PictureMessage) isPayload() {}

// ChatMessage carries CHAT/SAY payloads.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

func (ChatMessage) isPayload() {}

// ErrorMessage carries ERROR/BROADCAST payloads.
type ErrorMessage struct {
	Exception string `json:"exception"`
	Value     string `json:"value"`
	ErrorID   string `json:"error_id"`
}

func (ErrorMessage) isPayload() {}

// TrickMessage carries TRICK-topic payloads.
type TrickMessage struct {
	GameID      string `json:"game_id"`
	Description string `json:"description"`
}

func (TrickMessage) isPayload() {}

// Message is the fully decoded, validated envelope handlers operate on.
type Message struct {
	Topic    Topic
	Username string
	GameID   *string
	Value    Payload
}

// HasGame reports whether this message names a non-null game id.
func (m *Message) HasGame() bool {
	return m.GameID != nil && *m.GameID != ""
}

// GameIDOrEmpty returns the game id, or "" if the message names none.
func (m *Message) GameIDOrEmpty() string {
	if m.GameID == nil {
		return ""
	}
	return *m.GameID
}

type wireEnvelope struct {
	Topic    Topic   `json:"topic"`
	Username string  `json:"username"`
	GameID   *string `json:"game_id"`
	Value    Payload `json:"value,omitempty"`
}

// MarshalJSON renders the envelope in the wire shape from spec.md section 6.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{
		Topic:    m.Topic,
		Username: m.Username,
		GameID:   m.GameID,
		Value:    m.Value,
	})
}

type rawEnvelope struct {
	Topic    Topic           `json:"topic"`
	Username string          `json:"username"`
	GameID   *string         `json:"game_id"`
	Value    json.RawMessage `json:"value"`
}

// ValidationError reports a malformed frame or a topic/operation/payload
// mismatch. It is always routed directly to the originating connection,
// never broadcast, since at the point it's raised the server may not even
// know which game (if any) the frame was meant for.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Exception satisfies the same small interface game.Exception values do,
// without importing internal/game (which would create a cycle): dispatch
// treats any error with this method as wire-reportable.
func (e *ValidationError) Exception() string { return "ValidationError" }

// Decode parses one inbound JSON text frame into a validated Message,
// per spec.md section 4.4's four validation rules.
func Decode(data []byte) (*Message, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed frame: %v", err)}
	}

	if !ValidTopicType(raw.Topic.Type) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown topic type %q", raw.Topic.Type)}
	}
	if !OperationAllowed(raw.Topic.Type, raw.Topic.Operation) {
		return nil, &ValidationError{Reason: fmt.Sprintf("operation %q not allowed for topic %q", raw.Topic.Operation, raw.Topic.Type)}
	}
	if raw.Username == "" {
		return nil, &ValidationError{Reason: "username is required"}
	}

	valueIsNull := len(raw.Value) == 0 || string(raw.Value) == "null"

	toleratesNull := raw.Topic.Type == TopicGame &&
		(raw.Topic.Operation == OpLeave || raw.Topic.Operation == OpEnd || raw.Topic.Operation == OpStart)

	var value Payload
	switch {
	case valueIsNull && toleratesNull:
		value = nil
	case valueIsNull:
		return nil, &ValidationError{Reason: fmt.Sprintf("missing value for %s/%s", raw.Topic.Type, raw.Topic.Operation)}
	default:
		var err error
		value, err = decodeValue(raw.Topic, raw.Value)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Topic:    raw.Topic,
		Username: raw.Username,
		GameID:   raw.GameID,
		Value:    value,
	}, nil
}

func decodeValue(topic Topic, raw json.RawMessage) (Payload, error) {
	switch topic.Type {
	case TopicGame:
		var v GameMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: "value is not a valid GameMessage"}
		}
		return v, nil
	case TopicChat:
		var v ChatMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: "value is not a valid ChatMessage"}
		}
		return v, nil
	case TopicError:
		var v ErrorMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: "value is not a valid ErrorMessage"}
		}
		return v, nil
	case TopicTrick:
		var v TrickMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: "value is not a valid TrickMessage"}
		}
		return v, nil
	case TopicDraw:
		return decodePicture(topic.Operation, raw)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown topic type %q", topic.Type)}
	}
}

type rawPicture struct {
	DrawID string          `json:"draw_id"`
	Data   json.RawMessage `json:"data"`
}

// decodePicture enforces validation rule 4: LINE/FRAME require LineData,
// RECT requires RectData.
func decodePicture(op Operation, raw json.RawMessage) (Payload, error) {
	var rp rawPicture
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, &ValidationError{Reason: "value is not a valid PictureMessage"}
	}

	// Unknown fields are rejected so that one shape cannot pass as the other.
	dec := json.NewDecoder(bytes.NewReader(rp.Data))
	dec.DisallowUnknownFields()

	switch op {
	case OpLine, OpFrame:
		var data LineData
		if err := dec.Decode(&data); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("%s requires LineData", op)}
		}
		return PictureMessage{DrawID: rp.DrawID, Data: data}, nil
	case OpRect:
		var data RectData
		if err := dec.Decode(&data); err != nil {
			return nil, &ValidationError{Reason: "RECT requires RectData"}
		}
		return PictureMessage{DrawID: rp.DrawID, Data: data}, nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown draw operation %q", op)}
	}
}

// StringPtr is a small helper for constructing Message.GameID literals.
func StringPtr(s string) *string { return &s }
