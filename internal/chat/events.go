package chat

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"sudooom.market/internal/model"
)

// NATS 主题定义
const (
	SubjectMessageCreated      = "market.chat.message.created"
	SubjectConversationCreated = "market.chat.conversation.created"
)

// MessageCreatedEvent 消息创建事件
// 供下游实时推送节点消费
type MessageCreatedEvent struct {
	Message    *model.Message `json:"message"`
	Recipients []int64        `json:"recipients"`
}

// ConversationCreatedEvent 会话创建事件
type ConversationCreatedEvent struct {
	Conversation *model.Conversation `json:"conversation"`
	MemberIDs    []int64             `json:"member_ids"`
}

// EventPublisher 会话事件发布器
type EventPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(nc *nats.Conn) *EventPublisher {
	return &EventPublisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// PublishMessageCreated 发布消息创建事件
func (p *EventPublisher) PublishMessageCreated(msg *model.Message, recipients []int64) error {
	data, err := json.Marshal(&MessageCreatedEvent{Message: msg, Recipients: recipients})
	if err != nil {
		p.logger.Error("Failed to marshal message event", "error", err)
		return err
	}

	if err := p.nc.Publish(SubjectMessageCreated, data); err != nil {
		p.logger.Error("Failed to publish message event", "messageId", msg.ID, "error", err)
		return err
	}

	p.logger.Debug("Published message event", "messageId", msg.ID, "conversationId", msg.ConversationID)
	return nil
}

// PublishConversationCreated 发布会话创建事件
func (p *EventPublisher) PublishConversationCreated(conv *model.Conversation, memberIDs []int64) error {
	data, err := json.Marshal(&ConversationCreatedEvent{Conversation: conv, MemberIDs: memberIDs})
	if err != nil {
		p.logger.Error("Failed to marshal conversation event", "error", err)
		return err
	}

	if err := p.nc.Publish(SubjectConversationCreated, data); err != nil {
		p.logger.Error("Failed to publish conversation event", "conversationId", conv.ID, "error", err)
		return err
	}

	return nil
}
