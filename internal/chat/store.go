package chat

import (
	"context"

	"sudooom.market/internal/model"
)

// Store 会话存储接口
//
// 所有破坏性不变量都由 Store 实现保证：
//   - 同一会话的消息序号严格连续递增，并发 Append 互斥分配
//   - 成员变更与 Append/容量检查在同一会话内串行化
//   - 已读水位更新为原子的 max(当前值, 新值)
//
// 实现：MemoryStore（内存，单机/测试）、PostgresStore（pgx，生产）
type Store interface {
	// CreateConversation 创建会话并写入全部成员关系，全部成功或全部失败。
	// direct 会话必须恰好 2 个互不相同的成员；group 至少 1 个。
	// direct 会话对 (product, 成员对) 唯一，重复创建返回 ErrDirectExists。
	CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []int64) error
	GetConversation(ctx context.Context, conversationID int64) (*model.Conversation, error)
	// FindDirectConversation 查找两人关于某商品的 direct 会话，不存在返回 (nil, nil)
	FindDirectConversation(ctx context.Context, productID *int64, userA, userB int64) (*model.Conversation, error)
	// ListConversations 列出用户当前在其中的会话，按最近活动倒序
	ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error)
	// ActiveConversationIDs 用户当前活跃成员身份对应的会话 ID 快照
	ActiveConversationIDs(ctx context.Context, userID int64) ([]int64, error)

	// AddMember 添加活跃成员；已在会话中返回 ErrAlreadyMember，
	// direct 会话返回 ErrCapacityExceeded
	AddMember(ctx context.Context, conversationID, userID int64) error
	// RemoveMember 标记成员退出（填 LeftAt，保留历史记录）；
	// group 会话最后一个成员退出后会话关闭
	RemoveMember(ctx context.Context, conversationID, userID int64) error
	ListActiveMembers(ctx context.Context, conversationID int64) ([]int64, error)
	IsActiveMember(ctx context.Context, conversationID, userID int64) (bool, error)
	// HasMembership 是否持有过成员关系（含已退出），用于历史可读性判断
	HasMembership(ctx context.Context, conversationID, userID int64) (bool, error)

	// AppendMessage 追加消息并分配序号。要求发送者是活跃成员。
	// msg.ClientMsgID 非空时按 (会话, 发送者, ClientMsgID) 去重，
	// 命中时返回已存在的消息，不重复追加。
	AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	// ListMessagesSince 按序号升序返回 seq > afterSeq 的消息，最多 limit 条。
	// 软删除的消息保留序号位置，内容置空并带 Deleted 标记。
	ListMessagesSince(ctx context.Context, conversationID, afterSeq int64, limit int) ([]*model.Message, error)
	GetMessage(ctx context.Context, messageID int64) (*model.Message, error)
	// SoftDeleteMessage 软删除，仅发送者本人可操作
	SoftDeleteMessage(ctx context.Context, messageID, requesterID int64) error

	// MarkRead 推进已读水位到 max(当前值, min(upToSeq, last_seq))，返回新水位。
	// upToSeq 超过会话当前 last_seq 时封顶，不允许预读未来消息。
	// 要求用户是活跃成员。
	MarkRead(ctx context.Context, conversationID, userID, upToSeq int64) (int64, error)
	ReadMarker(ctx context.Context, conversationID, userID int64) (int64, error)
	// UnreadCount 序号大于水位、非本人发送且未删除的消息数
	UnreadCount(ctx context.Context, conversationID, userID int64) (int64, error)
}
