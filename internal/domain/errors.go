package domain

import "errors"

var (
	ErrSecretNotFound = errors.New("secret not found")

	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionClosed        = errors.New("session closed")
	ErrSessionCreateFailed  = errors.New("session create failed")
	ErrTaskSubmitFailed     = errors.New("task submit failed")
	ErrRestorePointFailed   = errors.New("restore point failed")
	ErrBackendQueryFailed   = errors.New("backend query failed")
	ErrInvalidExecutionMode = errors.New("invalid execution mode")
	ErrInvalidFilter        = errors.New("invalid filter")

	ErrChannelAlreadyOpen  = errors.New("channel already open")
	ErrChannelDecode       = errors.New("channel decode error")
	ErrChannelDisconnected = errors.New("channel disconnected")
	ErrChannelClosed       = errors.New("channel closed")

	ErrDuplicateID     = errors.New("duplicate action id")
	ErrReplayCancelled = errors.New("replay cancelled")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
