package chat

import "errors"

// 会话子系统错误定义

var (
	ErrConversationNotFound = errors.New("CONVERSATION_NOT_FOUND")
	ErrConversationClosed   = errors.New("CONVERSATION_CLOSED")
	ErrNotMember            = errors.New("NOT_A_MEMBER")
	ErrAlreadyMember        = errors.New("ALREADY_MEMBER")
	ErrCapacityExceeded     = errors.New("CAPACITY_EXCEEDED")
	ErrMessageNotFound      = errors.New("MESSAGE_NOT_FOUND")
	ErrNotSender            = errors.New("NOT_SENDER")
	ErrInvalidMessage       = errors.New("INVALID_MESSAGE")
	ErrInvalidParticipants  = errors.New("INVALID_PARTICIPANTS")
	ErrDirectExists         = errors.New("DIRECT_CONVERSATION_EXISTS")
)
