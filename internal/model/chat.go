package model

import "time"

// ConversationKind 会话类型
const (
	ConversationKindDirect = "direct" // 双人会话
	ConversationKindGroup  = "group"  // 群聊
)

// ConversationStatus 会话状态
const (
	ConversationStatusActive = "active" // 活跃，可以发消息
	ConversationStatusClosed = "closed" // 关闭，只能读历史
)

// Conversation 会话模型
// LastSeq 是该会话已分配的最大消息序号，序号从 1 开始连续递增
type Conversation struct {
	ID        int64     `json:"id,string" db:"id"`
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	ProductID *int64    `json:"productId,omitempty" db:"product_id"`
	CreatorID int64     `json:"creatorId,string" db:"creator_id"`
	Status    string    `json:"status" db:"status"`
	LastSeq   int64     `json:"lastSeq" db:"last_seq"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Membership 会话成员关系
// LeftAt 为空表示当前在会话中；退出只填 LeftAt，不删除记录
type Membership struct {
	ConversationID int64      `json:"conversationId,string" db:"conversation_id"`
	UserID         int64      `json:"userId,string" db:"user_id"`
	JoinedAt       time.Time  `json:"joinedAt" db:"joined_at"`
	LeftAt         *time.Time `json:"leftAt,omitempty" db:"left_at"`
}

// Active 是否为当前有效成员
func (m *Membership) Active() bool {
	return m.LeftAt == nil
}

// MessageType 消息类型
const (
	MessageTypeText           = "text"            // 文本
	MessageTypeImage          = "image"           // 图片
	MessageTypeSystem         = "system"          // 系统消息
	MessageTypeProductInquiry = "product_inquiry" // 商品咨询
	MessageTypePriceOffer     = "price_offer"     // 出价
	MessageTypeMeetingRequest = "meeting_request" // 面交请求
)

// Message 消息实体
// Seq 为会话内连续递增的序号；消息创建后内容不可变，只能软删除
type Message struct {
	ID             int64     `json:"id,string" db:"id"`
	ConversationID int64     `json:"conversationId,string" db:"conversation_id"`
	SenderID       int64     `json:"senderId,string" db:"sender_id"`
	Seq            int64     `json:"seq" db:"seq"`
	Type           string    `json:"type" db:"msg_type"`
	Content        string    `json:"content" db:"content"`
	Metadata       string    `json:"metadata,omitempty" db:"metadata"`
	ClientMsgID    string    `json:"clientMsgId,omitempty" db:"client_msg_id"`
	Deleted        bool      `json:"deleted" db:"deleted"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// ValidMessageType 校验消息类型
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem,
		MessageTypeProductInquiry, MessageTypePriceOffer, MessageTypeMeetingRequest:
		return true
	}
	return false
}

// ConversationSummary 会话列表项
// 面向会话列表接口，带未读数和最后一条消息
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	UnreadCount  int64        `json:"unreadCount"`
	LastMessage  *Message     `json:"lastMessage,omitempty"`
}
