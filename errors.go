package mxprint

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers alongside descriptive errors.
const (
	SyncingDataError          = 100
	CommandQueueIsNoEmptyError = 200
)

// CodeError is an error with a numeric code the host application can switch
// on.
type CodeError struct {
	Code int
	Msg  string
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

var (
	// ErrSyncingData rejects a transfer while another payload is syncing.
	ErrSyncingData = &CodeError{Code: SyncingDataError, Msg: "data sync already in progress"}
	// ErrCommandQueueNotEmpty rejects a transfer while commands are pending.
	ErrCommandQueueNotEmpty = &CodeError{Code: CommandQueueIsNoEmptyError, Msg: "command queue is not empty"}
)

var (
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrDeviceNotFound = errors.New("device not found")
	ErrConnectFailed  = errors.New("connection failed")
	ErrTimeout        = errors.New("operation timed out")

	ErrNotConnected    = errors.New("no device connected")
	ErrCancelled       = errors.New("cancelled")
	ErrDisconnected    = errors.New("disconnected")
	ErrResponseTimeout = errors.New("response timeout")
	ErrBadAck          = errors.New("unexpected acknowledgement")
	ErrMaxErrors       = errors.New("max consecutive transfer errors exceeded")
	ErrBusy            = errors.New("operation already in progress")
)
