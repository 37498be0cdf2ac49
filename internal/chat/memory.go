package chat

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"sudooom.market/internal/model"
)

// MemoryStore 内存会话存储
// 每个会话一个 instance，用实例级 RWMutex 保证会话内操作互斥：
// 序号分配、成员变更、容量检查都在同一把锁下完成。
// 跨会话索引（direct 索引、用户索引、消息定位）由 store 级锁保护。
type MemoryStore struct {
	mu     sync.RWMutex
	convs  map[int64]*conversationInstance
	byUser map[int64]map[int64]struct{} // userID -> 持有过成员关系的会话集合
	direct map[directKey]int64          // direct 会话唯一索引
	msgRef map[int64]msgRef             // messageID -> 位置
}

type directKey struct {
	productID int64 // 0 表示无关联商品
	low, high int64
}

type msgRef struct {
	conversationID int64
	seq            int64
}

func newDirectKey(productID *int64, userA, userB int64) directKey {
	key := directKey{low: userA, high: userB}
	if userA > userB {
		key.low, key.high = userB, userA
	}
	if productID != nil {
		key.productID = *productID
	}
	return key
}

// conversationInstance 会话实例
// 成员集合、消息日志、已读水位三部分状态都由 mu 保护
type conversationInstance struct {
	mu       sync.RWMutex
	conv     model.Conversation
	members  map[int64]*model.Membership // 含已退出成员
	messages []*model.Message            // 追加日志，messages[i].Seq == i+1
	markers  map[int64]int64             // userID -> 已读水位
	byClient map[string]*model.Message   // "senderID:clientMsgID" -> 消息
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:  make(map[int64]*conversationInstance),
		byUser: make(map[int64]map[int64]struct{}),
		direct: make(map[directKey]int64),
		msgRef: make(map[int64]msgRef),
	}
}

// CreateConversation 创建会话并写入全部成员
func (s *MemoryStore) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []int64) error {
	seen := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			return ErrAlreadyMember
		}
		seen[id] = struct{}{}
	}

	switch conv.Kind {
	case model.ConversationKindDirect:
		if len(memberIDs) != 2 {
			return ErrInvalidParticipants
		}
	case model.ConversationKindGroup:
		if len(memberIDs) < 1 {
			return ErrInvalidParticipants
		}
	default:
		return ErrInvalidParticipants
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.Kind == model.ConversationKindDirect {
		key := newDirectKey(conv.ProductID, memberIDs[0], memberIDs[1])
		if _, exists := s.direct[key]; exists {
			return ErrDirectExists
		}
		s.direct[key] = conv.ID
	}

	now := time.Now()
	conv.Status = model.ConversationStatusActive
	conv.LastSeq = 0
	conv.CreatedAt = now
	conv.UpdatedAt = now

	inst := &conversationInstance{
		conv:     *conv,
		members:  make(map[int64]*model.Membership, len(memberIDs)),
		markers:  make(map[int64]int64),
		byClient: make(map[string]*model.Message),
	}
	for _, userID := range memberIDs {
		inst.members[userID] = &model.Membership{
			ConversationID: conv.ID,
			UserID:         userID,
			JoinedAt:       now,
		}
		if s.byUser[userID] == nil {
			s.byUser[userID] = make(map[int64]struct{})
		}
		s.byUser[userID][conv.ID] = struct{}{}
	}
	s.convs[conv.ID] = inst

	return nil
}

// GetConversation 获取会话快照
func (s *MemoryStore) GetConversation(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return nil, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	snapshot := inst.conv
	return &snapshot, nil
}

// FindDirectConversation 查找两人关于某商品的 direct 会话
func (s *MemoryStore) FindDirectConversation(ctx context.Context, productID *int64, userA, userB int64) (*model.Conversation, error) {
	s.mu.RLock()
	convID, ok := s.direct[newDirectKey(productID, userA, userB)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetConversation(ctx, convID)
}

// ListConversations 列出用户当前在其中的会话，按最近活动倒序
func (s *MemoryStore) ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	conversations := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		inst, err := s.instance(id)
		if err != nil {
			continue
		}
		inst.mu.RLock()
		m, ok := inst.members[userID]
		if ok && m.Active() {
			snapshot := inst.conv
			conversations = append(conversations, &snapshot)
		}
		inst.mu.RUnlock()
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// ActiveConversationIDs 用户活跃成员身份对应的会话 ID 快照
func (s *MemoryStore) ActiveConversationIDs(ctx context.Context, userID int64) ([]int64, error) {
	conversations, err := s.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// AddMember 添加活跃成员
func (s *MemoryStore) AddMember(ctx context.Context, conversationID, userID int64) error {
	inst, err := s.instance(conversationID)
	if err != nil {
		return err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.conv.Status != model.ConversationStatusActive {
		return ErrConversationClosed
	}
	// direct 会话成员固定为创建时的两人
	if inst.conv.Kind == model.ConversationKindDirect {
		return ErrCapacityExceeded
	}
	if m, ok := inst.members[userID]; ok && m.Active() {
		return ErrAlreadyMember
	}

	now := time.Now()
	inst.members[userID] = &model.Membership{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       now,
	}
	inst.conv.UpdatedAt = now

	s.mu.Lock()
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[int64]struct{})
	}
	s.byUser[userID][conversationID] = struct{}{}
	s.mu.Unlock()

	return nil
}

// RemoveMember 标记成员退出
func (s *MemoryStore) RemoveMember(ctx context.Context, conversationID, userID int64) error {
	inst, err := s.instance(conversationID)
	if err != nil {
		return err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	m, ok := inst.members[userID]
	if !ok || !m.Active() {
		return ErrNotMember
	}

	now := time.Now()
	m.LeftAt = &now
	inst.conv.UpdatedAt = now

	// group 会话最后一个成员退出后关闭写入，历史保持可读
	if inst.conv.Kind == model.ConversationKindGroup && inst.activeCountLocked() == 0 {
		inst.conv.Status = model.ConversationStatusClosed
	}

	return nil
}

// ListActiveMembers 列出活跃成员
func (s *MemoryStore) ListActiveMembers(ctx context.Context, conversationID int64) ([]int64, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return nil, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()

	members := make([]int64, 0, len(inst.members))
	for userID, m := range inst.members {
		if m.Active() {
			members = append(members, userID)
		}
	}
	return members, nil
}

// IsActiveMember 是否为活跃成员
func (s *MemoryStore) IsActiveMember(ctx context.Context, conversationID, userID int64) (bool, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return false, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	m, ok := inst.members[userID]
	return ok && m.Active(), nil
}

// HasMembership 是否持有过成员关系（含已退出）
func (s *MemoryStore) HasMembership(ctx context.Context, conversationID, userID int64) (bool, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return false, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	_, ok := inst.members[userID]
	return ok, nil
}

// AppendMessage 追加消息并分配序号
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	inst, err := s.instance(msg.ConversationID)
	if err != nil {
		return nil, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.conv.Status != model.ConversationStatusActive {
		return nil, ErrConversationClosed
	}
	m, ok := inst.members[msg.SenderID]
	if !ok || !m.Active() {
		return nil, ErrNotMember
	}

	// 客户端消息 ID 去重，重试安全
	clientKey := ""
	if msg.ClientMsgID != "" {
		clientKey = clientMsgKey(msg.SenderID, msg.ClientMsgID)
		if existing, dup := inst.byClient[clientKey]; dup {
			// 重放返回的也是对外视图，已删除的内容同样置空
			return redactMessage(existing), nil
		}
	}

	now := time.Now()
	stored := *msg
	stored.Seq = inst.conv.LastSeq + 1
	stored.CreatedAt = now
	stored.Deleted = false

	inst.messages = append(inst.messages, &stored)
	inst.conv.LastSeq = stored.Seq
	inst.conv.UpdatedAt = now
	if clientKey != "" {
		inst.byClient[clientKey] = &stored
	}

	s.mu.Lock()
	s.msgRef[stored.ID] = msgRef{conversationID: stored.ConversationID, seq: stored.Seq}
	s.mu.Unlock()

	snapshot := stored
	return &snapshot, nil
}

// ListMessagesSince 按序号升序返回 seq > afterSeq 的消息
func (s *MemoryStore) ListMessagesSince(ctx context.Context, conversationID, afterSeq int64, limit int) ([]*model.Message, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return nil, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()

	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(inst.messages)) {
		return []*model.Message{}, nil
	}

	rest := inst.messages[afterSeq:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}

	result := make([]*model.Message, 0, len(rest))
	for _, m := range rest {
		result = append(result, redactMessage(m))
	}
	return result, nil
}

// GetMessage 获取单条消息
func (s *MemoryStore) GetMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	s.mu.RLock()
	ref, ok := s.msgRef[messageID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMessageNotFound
	}

	inst, err := s.instance(ref.conversationID)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return redactMessage(inst.messages[ref.seq-1]), nil
}

// SoftDeleteMessage 软删除消息，仅发送者本人可操作
func (s *MemoryStore) SoftDeleteMessage(ctx context.Context, messageID, requesterID int64) error {
	s.mu.RLock()
	ref, ok := s.msgRef[messageID]
	s.mu.RUnlock()
	if !ok {
		return ErrMessageNotFound
	}

	inst, err := s.instance(ref.conversationID)
	if err != nil {
		return ErrMessageNotFound
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	msg := inst.messages[ref.seq-1]
	if msg.SenderID != requesterID {
		return ErrNotSender
	}
	msg.Deleted = true
	return nil
}

// MarkRead 推进已读水位
// 水位封顶到会话当前 last_seq，不允许预读未来消息
func (s *MemoryStore) MarkRead(ctx context.Context, conversationID, userID, upToSeq int64) (int64, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return 0, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	m, ok := inst.members[userID]
	if !ok || !m.Active() {
		return 0, ErrNotMember
	}

	if upToSeq > inst.conv.LastSeq {
		upToSeq = inst.conv.LastSeq
	}
	// 单调推进，重放安全
	if upToSeq > inst.markers[userID] {
		inst.markers[userID] = upToSeq
	}
	return inst.markers[userID], nil
}

// ReadMarker 获取已读水位，无记录时为 0
func (s *MemoryStore) ReadMarker(ctx context.Context, conversationID, userID int64) (int64, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return 0, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.markers[userID], nil
}

// UnreadCount 未读消息数：序号大于水位、非本人发送且未删除
func (s *MemoryStore) UnreadCount(ctx context.Context, conversationID, userID int64) (int64, error) {
	inst, err := s.instance(conversationID)
	if err != nil {
		return 0, err
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()

	watermark := inst.markers[userID]
	if watermark >= int64(len(inst.messages)) {
		return 0, nil
	}

	var count int64
	for _, m := range inst.messages[watermark:] {
		if m.SenderID != userID && !m.Deleted {
			count++
		}
	}
	return count, nil
}

// instance 获取会话实例
func (s *MemoryStore) instance(conversationID int64) (*conversationInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.convs[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return inst, nil
}

// activeCountLocked 活跃成员数，调用方需持有 inst.mu
func (c *conversationInstance) activeCountLocked() int {
	count := 0
	for _, m := range c.members {
		if m.Active() {
			count++
		}
	}
	return count
}

// redactMessage 返回消息副本，软删除的消息内容置空
func redactMessage(m *model.Message) *model.Message {
	snapshot := *m
	if snapshot.Deleted {
		snapshot.Content = ""
		snapshot.Metadata = ""
	}
	return &snapshot
}

func clientMsgKey(senderID int64, clientMsgID string) string {
	return strconv.FormatInt(senderID, 10) + ":" + clientMsgID
}
