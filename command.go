package mxprint

import (
	"math/rand/v2"
	"time"
)

// Command is one short control instruction queued for the wire.
type Command struct {
	// Index is a random identifier; it never goes on the wire but keys the
	// command through logs and callbacks.
	Index uint32
	Data  []byte
	// Tag is caller-defined and opaque: it plays no part in ACK matching.
	Tag        int
	CreateTime time.Time
	// DelayTime schedules dispatch: -1 sends immediately, a positive value
	// fires from the delay timer.
	DelayTime time.Duration
	// IsLossOnTimeout drops the command on its first response miss instead
	// of re-arming once.
	IsLossOnTimeout bool

	// Opcode the printer will echo in its reply, for ACK matching.
	Opcode uint16
}

// NewCommand builds an immediate command for the framed bytes.
func NewCommand(opcode uint16, data []byte, tag int) *Command {
	return &Command{
		Index:      rand.Uint32(),
		Data:       data,
		Opcode:     opcode,
		Tag:        tag,
		CreateTime: time.Now(),
		DelayTime:  -1,
	}
}

// NewDelayedCommand builds a command dispatched after delay.
func NewDelayedCommand(opcode uint16, data []byte, tag int, delay time.Duration) *Command {
	c := NewCommand(opcode, data, tag)
	c.DelayTime = delay
	return c
}

// CommandCallback receives the command's terminal outcome. Exactly one of
// the terminal callbacks fires per command; OnTimeout with delayEfficacy
// true is an intermediate notification preceding the automatic re-arm.
type CommandCallback struct {
	OnSuccess func(cmd *Command, obj any)
	OnError   func(cmd *Command, errMsg string)
	OnTimeout func(cmd *Command, delayEfficacy bool)
}

// CommandContext pairs a command with its callback for the queue. It exists
// from enqueue to terminal callback.
type CommandContext struct {
	Command  *Command
	Callback *CommandCallback

	fireAt  time.Time // zero for immediate commands
	rearmed bool      // response timer already re-armed once
}

// DataObj is a large payload unit on the data channel. Same shape as
// Command, no delay semantics.
type DataObj struct {
	Index uint32
	Data  []byte
	Tag   int
}

func NewDataObj(data []byte, tag int) *DataObj {
	return &DataObj{Index: rand.Uint32(), Data: data, Tag: tag}
}

// DataObjCallback receives a data unit's write outcome.
type DataObjCallback struct {
	OnSuccess func(obj *DataObj, result any)
	OnError   func(obj *DataObj, errMsg string)
}

// DataObjContext pairs a data unit with its callback.
type DataObjContext struct {
	DataObj  *DataObj
	Callback *DataObjCallback
}
