package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sudooom.market/internal/model"
	"sudooom.market/pkg/snowflake"
)

const (
	defaultMaxMessageLength = 2000
	defaultPageSize         = 50
)

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	Kind           string  `json:"kind" binding:"required,oneof=direct group"`
	Title          string  `json:"title" binding:"max=200"`
	ProductID      *int64  `json:"product_id"`
	ParticipantIDs []int64 `json:"participant_ids" binding:"required,min=1"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Type        string `json:"type"`
	Content     string `json:"content" binding:"required"`
	Metadata    string `json:"metadata"`
	ClientMsgID string `json:"client_msg_id" binding:"max=64"`
}

// Service 会话服务
// 统一入口：做授权检查并协调成员、消息日志、已读水位三部分存储。
// 调用者身份始终作为参数显式传入，不依赖任何全局状态。
//
// 已读策略：发消息不推进发送者自己的水位；未读数不包含本人发送的消息。
type Service struct {
	store     Store
	cache     *RecencyCache   // 可选，nil 时跳过
	events    *EventPublisher // 可选，nil 时跳过
	snowflake *snowflake.Node

	maxMessageLength int
	pageSize         int
	logger           *slog.Logger
}

// NewService 创建会话服务
// cache 和 events 可以为 nil（测试或未部署 Redis/NATS 时）
func NewService(store Store, cache *RecencyCache, events *EventPublisher, sf *snowflake.Node, maxMessageLength, pageSize int) *Service {
	if maxMessageLength <= 0 {
		maxMessageLength = defaultMaxMessageLength
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Service{
		store:            store,
		cache:            cache,
		events:           events,
		snowflake:        sf,
		maxMessageLength: maxMessageLength,
		pageSize:         pageSize,
		logger:           slog.Default().With("component", "ChatService"),
	}
}

// CreateConversation 创建会话
// direct 会话按 (商品, 成员对) 去重：已存在时直接返回现有会话，
// 因此对不可靠网络上的重试是安全的
func (s *Service) CreateConversation(ctx context.Context, creatorID int64, req *CreateConversationRequest) (*model.Conversation, error) {
	memberIDs := make([]int64, 0, len(req.ParticipantIDs)+1)
	memberIDs = append(memberIDs, creatorID)
	for _, id := range req.ParticipantIDs {
		if id == creatorID {
			// 创建者会自动加入，参与者列表里再出现即视为重复成员
			return nil, ErrAlreadyMember
		}
		memberIDs = append(memberIDs, id)
	}

	if req.Kind == model.ConversationKindDirect {
		if len(memberIDs) != 2 {
			return nil, ErrInvalidParticipants
		}
		existing, err := s.store.FindDirectConversation(ctx, req.ProductID, memberIDs[0], memberIDs[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	conv := &model.Conversation{
		ID:        s.snowflake.Generate().Int64(),
		Kind:      req.Kind,
		Title:     req.Title,
		ProductID: req.ProductID,
		CreatorID: creatorID,
	}

	err := s.store.CreateConversation(ctx, conv, memberIDs)
	if errors.Is(err, ErrDirectExists) {
		// 并发创建撞上了同一对 direct 会话，返回已有的那个
		return s.store.FindDirectConversation(ctx, req.ProductID, memberIDs[0], memberIDs[1])
	}
	if err != nil {
		return nil, err
	}

	s.touchCache(ctx, memberIDs, conv.ID)

	if s.events != nil {
		if err := s.events.PublishConversationCreated(conv, memberIDs); err != nil {
			s.logger.Warn("Failed to publish conversation event", "conversationId", conv.ID, "error", err)
		}
	}

	return conv, nil
}

// GetConversation 获取会话详情和活跃成员
// 已退出的成员仍可查看
func (s *Service) GetConversation(ctx context.Context, userID, conversationID int64) (*model.Conversation, []int64, error) {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return nil, nil, err
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.store.ListActiveMembers(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return conv, members, nil
}

// ListConversations 会话列表，带未读数和最后一条消息
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]*model.ConversationSummary, error) {
	conversations, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Redis 索引可用时按它的最近活动顺序排列
	if s.cache != nil {
		if recent, err := s.cache.Recent(ctx, userID, 0, int64(len(conversations))); err == nil && len(recent) > 0 {
			conversations = reorderByIDs(conversations, recent)
		}
	}

	summaries := make([]*model.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary := &model.ConversationSummary{Conversation: *conv}

		if count, err := s.store.UnreadCount(ctx, conv.ID, userID); err == nil {
			summary.UnreadCount = count
		}
		if conv.LastSeq > 0 {
			if msgs, err := s.store.ListMessagesSince(ctx, conv.ID, conv.LastSeq-1, 1); err == nil && len(msgs) > 0 {
				summary.LastMessage = msgs[0]
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// SendMessage 发送消息
// 序号由存储层在会话内互斥分配；发送者自己的已读水位不自动推进
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID int64, req *SendMessageRequest) (*model.Message, error) {
	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	if !model.ValidMessageType(msgType) {
		return nil, ErrInvalidMessage
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || len(content) > s.maxMessageLength {
		return nil, ErrInvalidMessage
	}

	msg := &model.Message{
		ID:             s.snowflake.Generate().Int64(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		Content:        content,
		Metadata:       req.Metadata,
		ClientMsgID:    req.ClientMsgID,
	}

	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListActiveMembers(ctx, conversationID)
	if err != nil {
		s.logger.Warn("Failed to list members after send", "conversationId", conversationID, "error", err)
		return stored, nil
	}

	s.touchCache(ctx, members, conversationID)

	if s.events != nil {
		recipients := make([]int64, 0, len(members))
		for _, id := range members {
			if id != senderID {
				recipients = append(recipients, id)
			}
		}
		if err := s.events.PublishMessageCreated(stored, recipients); err != nil {
			s.logger.Warn("Failed to publish message event", "messageId", stored.ID, "error", err)
		}
	}

	return stored, nil
}

// ListMessages 拉取消息，seq > afterSeq 升序
// 已退出的成员仍可读历史
func (s *Service) ListMessages(ctx context.Context, userID, conversationID, afterSeq int64, limit int) ([]*model.Message, error) {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	return s.store.ListMessagesSince(ctx, conversationID, afterSeq, limit)
}

// DeleteMessage 软删除消息，仅发送者本人可操作
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID int64) error {
	return s.store.SoftDeleteMessage(ctx, messageID, userID)
}

// MarkRead 推进已读水位到 max(当前值, min(upToSeq, last_seq))，幂等可重试
func (s *Service) MarkRead(ctx context.Context, userID, conversationID, upToSeq int64) (int64, error) {
	if upToSeq < 0 {
		return 0, ErrInvalidMessage
	}
	return s.store.MarkRead(ctx, conversationID, userID, upToSeq)
}

// UnreadCount 单个会话的未读数
func (s *Service) UnreadCount(ctx context.Context, userID, conversationID int64) (int64, error) {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, conversationID, userID)
}

// UnreadTotal 所有会话的未读总数
// 先取活跃成员身份快照，再逐会话累加：中途退出的会话
// 以快照时刻为准，最多被计入一次，不会重复也不会悬空
func (s *Service) UnreadTotal(ctx context.Context, userID int64) (int64, error) {
	ids, err := s.store.ActiveConversationIDs(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, id := range ids {
		count, err := s.store.UnreadCount(ctx, id, userID)
		if err != nil {
			if errors.Is(err, ErrConversationNotFound) {
				continue
			}
			return 0, err
		}
		total += count
	}
	return total, nil
}

// AddParticipant 拉人进会话
// 操作者必须是活跃成员；direct 会话固定两人，始终拒绝
func (s *Service) AddParticipant(ctx context.Context, actorID, conversationID, newUserID int64) error {
	active, err := s.store.IsActiveMember(ctx, conversationID, actorID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNotMember
	}

	if err := s.store.AddMember(ctx, conversationID, newUserID); err != nil {
		return err
	}

	s.touchCache(ctx, []int64{newUserID}, conversationID)
	return nil
}

// LeaveConversation 退出会话
// 只填 LeftAt，历史消息和已读水位保留；group 最后一人退出后会话关闭
func (s *Service) LeaveConversation(ctx context.Context, userID, conversationID int64) error {
	if err := s.store.RemoveMember(ctx, conversationID, userID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Remove(ctx, userID, conversationID); err != nil {
			s.logger.Warn("Failed to remove conversation from cache", "userId", userID, "error", err)
		}
	}
	return nil
}

// requireMembership 读操作授权：持有过成员关系即可（含已退出）
func (s *Service) requireMembership(ctx context.Context, conversationID, userID int64) error {
	ok, err := s.store.HasMembership(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// touchCache 更新成员的会话索引，失败只记日志
func (s *Service) touchCache(ctx context.Context, userIDs []int64, conversationID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Touch(ctx, userIDs, conversationID); err != nil {
		s.logger.Warn("Failed to touch conversation cache", "conversationId", conversationID, "error", err)
	}
}

// reorderByIDs 按 ids 的顺序重排会话，未出现在 ids 里的排在后面
func reorderByIDs(conversations []*model.Conversation, ids []int64) []*model.Conversation {
	byID := make(map[int64]*model.Conversation, len(conversations))
	for _, c := range conversations {
		byID[c.ID] = c
	}

	ordered := make([]*model.Conversation, 0, len(conversations))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
			delete(byID, id)
		}
	}
	for _, c := range conversations {
		if _, remaining := byID[c.ID]; remaining {
			ordered = append(ordered, c)
		}
	}
	return ordered
}
