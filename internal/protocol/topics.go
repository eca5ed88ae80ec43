// Package protocol defines the wire envelope exchanged between clients and
// the quickdraw server: topics, operations, and the payload variants each
// operation carries. It mirrors codejam's interfaces/topics.py, reworked as
// Go string-enum constants with an explicit validation table instead of a
// pydantic validator.
package protocol

// TopicType identifies which family of operation a Message carries.
type TopicType string

const (
	TopicGame  TopicType = "GAME"
	TopicDraw  TopicType = "DRAW"
	TopicChat  TopicType = "CHAT"
	TopicError TopicType = "ERROR"
	TopicTrick TopicType = "TRICK"
)

// Operation is the second half of a Topic. The same string space is shared
// across topic types, but only a subset is valid for any given TopicType
// (see operationsByType below).
type Operation string

const (
	OpCreate  Operation = "CREATE"
	OpJoin    Operation = "JOIN"
	OpLeave   Operation = "LEAVE"
	OpEnd     Operation = "END"
	OpStart   Operation = "START"
	OpTurn    Operation = "TURN"
	OpWin     Operation = "WIN"
	OpMembers Operation = "MEMBERS"

	OpLine  Operation = "LINE"
	OpRect  Operation = "RECT"
	OpFrame Operation = "FRAME"

	OpSay Operation = "SAY"

	OpBroadcast Operation = "BROADCAST"

	OpTrickNothing    Operation = "NOTHING"
	OpTrickSnail      Operation = "SNAIL"
	OpTrickPacman     Operation = "PACMAN"
	OpTrickEarthquake Operation = "EARTHQUAKE"
	OpTrickLandslide  Operation = "LANDSLIDE"
)

var operationsByType = map[TopicType]map[Operation]bool{
	TopicGame: {
		OpCreate: true, OpJoin: true, OpLeave: true, OpEnd: true,
		OpStart: true, OpTurn: true, OpWin: true, OpMembers: true,
	},
	TopicDraw: {
		OpLine: true, OpRect: true, OpFrame: true,
	},
	TopicChat: {
		OpSay: true,
	},
	TopicError: {
		OpBroadcast: true,
	},
	TopicTrick: {
		OpTrickNothing: true, OpTrickSnail: true, OpTrickPacman: true,
		OpTrickEarthquake: true, OpTrickLandslide: true,
	},
}

// TrickOperations lists the trick operations in a stable order, for use by
// a trick generator that must choose one uniformly at random.
var TrickOperations = []Operation{
	OpTrickNothing, OpTrickSnail, OpTrickPacman, OpTrickEarthquake, OpTrickLandslide,
}

// ValidTopicType reports whether t is one of the five known topic types.
func ValidTopicType(t TopicType) bool {
	_, ok := operationsByType[t]
	return ok
}

// OperationAllowed reports whether op is a legal operation for topic type t.
func OperationAllowed(t TopicType, op Operation) bool {
	ops, ok := operationsByType[t]
	if !ok {
		return false
	}
	return ops[op]
}
