package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.market/internal/model"
)

// PostgresStore 基于 PostgreSQL 的会话存储
//
// 并发约束靠行锁实现：Append 和成员变更先 SELECT ... FOR UPDATE
// 锁住会话行，序号分配和容量检查在同一事务内串行化。
// 事务失败时回滚，不会留下分配了一半的序号。
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore 创建 PostgreSQL 会话存储
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const conversationColumns = `id, kind, title, product_id, creator_id, status, last_seq, created_at, updated_at`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var conv model.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.Kind,
		&conv.Title,
		&conv.ProductID,
		&conv.CreatorID,
		&conv.Status,
		&conv.LastSeq,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

const messageColumns = `id, conversation_id, sender_id, seq, msg_type,
		CASE WHEN deleted THEN '' ELSE content END,
		CASE WHEN deleted THEN '' ELSE metadata END,
		client_msg_id, deleted, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Seq,
		&msg.Type,
		&msg.Content,
		&msg.Metadata,
		&msg.ClientMsgID,
		&msg.Deleted,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateConversation 创建会话并写入全部成员，单事务全部成功或全部失败
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []int64) error {
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

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if conv.Kind == model.ConversationKindDirect {
		// direct 会话对 (商品, 成员对) 唯一
		// 先对归一化的键取事务级咨询锁，并发创建同一对会话时
		// 后到的事务等前一个提交后才能执行查重，避免双写
		low, high := memberIDs[0], memberIDs[1]
		if low > high {
			low, high = high, low
		}
		var productKey int64
		if conv.ProductID != nil {
			productKey = *conv.ProductID
		}
		lockKey := fmt.Sprintf("chat:direct:%d:%d:%d", productKey, low, high)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return err
		}

		existing, err := findDirect(ctx, tx, conv.ProductID, memberIDs[0], memberIDs[1])
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDirectExists
		}
	}

	query := `
		INSERT INTO conversations (id, kind, title, product_id, creator_id, status, last_seq, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	conv.Status = model.ConversationStatusActive
	conv.LastSeq = 0
	err = tx.QueryRow(ctx, query,
		conv.ID,
		conv.Kind,
		conv.Title,
		conv.ProductID,
		conv.CreatorID,
		conv.Status,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO conversation_members (conversation_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
	`
	for _, userID := range memberIDs {
		if _, err := tx.Exec(ctx, memberQuery, conv.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetConversation 获取会话
func (s *PostgresStore) GetConversation(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	conv, err := scanConversation(s.db.QueryRow(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findDirect(ctx context.Context, q queryRower, productID *int64, userA, userB int64) (*model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.kind = 'direct'
		  AND c.product_id IS NOT DISTINCT FROM $1
		  AND EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = c.id AND user_id = $2)
		  AND EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = c.id AND user_id = $3)
		LIMIT 1
	`
	conv, err := scanConversation(q.QueryRow(ctx, query, productID, userA, userB))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// FindDirectConversation 查找两人关于某商品的 direct 会话
func (s *PostgresStore) FindDirectConversation(ctx context.Context, productID *int64, userA, userB int64) (*model.Conversation, error) {
	return findDirect(ctx, s.db, productID, userA, userB)
}

// ListConversations 列出用户当前在其中的会话，按最近活动倒序
func (s *PostgresStore) ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1 AND m.left_at IS NULL
		ORDER BY c.updated_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// ActiveConversationIDs 用户活跃成员身份对应的会话 ID 快照
func (s *PostgresStore) ActiveConversationIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT conversation_id FROM conversation_members WHERE user_id = $1 AND left_at IS NULL`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// lockConversation 锁住会话行，后续成员变更/序号分配在行锁下串行化
func lockConversation(ctx context.Context, tx pgx.Tx, conversationID int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 FOR UPDATE`
	conv, err := scanConversation(tx.QueryRow(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// AddMember 添加活跃成员
func (s *PostgresStore) AddMember(ctx context.Context, conversationID, userID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	conv, err := lockConversation(ctx, tx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status != model.ConversationStatusActive {
		return ErrConversationClosed
	}
	if conv.Kind == model.ConversationKindDirect {
		return ErrCapacityExceeded
	}

	var leftAt *time.Time
	exists := true
	err = tx.QueryRow(ctx, `
		SELECT left_at FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(&leftAt)
	if errors.Is(err, pgx.ErrNoRows) {
		exists = false
	} else if err != nil {
		return err
	}

	if exists && leftAt == nil {
		return ErrAlreadyMember
	}

	if exists {
		// 曾经退出过，重新加入
		_, err = tx.Exec(ctx, `
			UPDATE conversation_members SET joined_at = NOW(), left_at = NULL
			WHERE conversation_id = $1 AND user_id = $2
		`, conversationID, userID)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, joined_at)
			VALUES ($1, $2, NOW())
		`, conversationID, userID)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RemoveMember 标记成员退出
func (s *PostgresStore) RemoveMember(ctx context.Context, conversationID, userID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	conv, err := lockConversation(ctx, tx, conversationID)
	if err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `
		UPDATE conversation_members SET left_at = NOW()
		WHERE conversation_id = $1 AND user_id = $2 AND left_at IS NULL
	`, conversationID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotMember
	}

	// group 会话最后一个成员退出后关闭写入
	if conv.Kind == model.ConversationKindGroup {
		var remaining int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM conversation_members
			WHERE conversation_id = $1 AND left_at IS NULL
		`, conversationID).Scan(&remaining)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE conversations SET status = 'closed', updated_at = NOW() WHERE id = $1
			`, conversationID); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListActiveMembers 列出活跃成员
func (s *PostgresStore) ListActiveMembers(ctx context.Context, conversationID int64) ([]int64, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	query := `SELECT user_id FROM conversation_members WHERE conversation_id = $1 AND left_at IS NULL`
	rows, err := s.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// IsActiveMember 是否为活跃成员
func (s *PostgresStore) IsActiveMember(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2 AND left_at IS NULL
		)
	`
	err := s.db.QueryRow(ctx, query, conversationID, userID).Scan(&exists)
	return exists, err
}

// HasMembership 是否持有过成员关系（含已退出）
func (s *PostgresStore) HasMembership(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2
		)
	`
	err := s.db.QueryRow(ctx, query, conversationID, userID).Scan(&exists)
	return exists, err
}

// AppendMessage 追加消息并分配序号
// 行锁保证同一会话内序号分配串行，事务回滚不留半分配的序号
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	conv, err := lockConversation(ctx, tx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != model.ConversationStatusActive {
		return nil, ErrConversationClosed
	}

	active, err := memberActiveTx(ctx, tx, msg.ConversationID, msg.SenderID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrNotMember
	}

	// 客户端消息 ID 去重，重试安全
	if msg.ClientMsgID != "" {
		query := `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1 AND sender_id = $2 AND client_msg_id = $3
		`
		existing, err := scanMessage(tx.QueryRow(ctx, query, msg.ConversationID, msg.SenderID, msg.ClientMsgID))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	var seq int64
	err = tx.QueryRow(ctx, `
		UPDATE conversations SET last_seq = last_seq + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING last_seq
	`, msg.ConversationID).Scan(&seq)
	if err != nil {
		return nil, err
	}

	stored := *msg
	stored.Seq = seq
	stored.Deleted = false
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, seq, msg_type, content, metadata, client_msg_id, deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW())
		RETURNING created_at
	`,
		stored.ID,
		stored.ConversationID,
		stored.SenderID,
		stored.Seq,
		stored.Type,
		stored.Content,
		stored.Metadata,
		stored.ClientMsgID,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &stored, nil
}

func memberActiveTx(ctx context.Context, tx pgx.Tx, conversationID, userID int64) (bool, error) {
	var active bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2 AND left_at IS NULL
		)
	`, conversationID, userID).Scan(&active)
	return active, err
}

// ListMessagesSince 按序号升序返回 seq > afterSeq 的消息
func (s *PostgresStore) ListMessagesSince(ctx context.Context, conversationID, afterSeq int64, limit int) ([]*model.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, conversationID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*model.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetMessage 获取单条消息
func (s *PostgresStore) GetMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(s.db.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

// SoftDeleteMessage 软删除消息，仅发送者本人可操作
func (s *PostgresStore) SoftDeleteMessage(ctx context.Context, messageID, requesterID int64) error {
	var senderID int64
	err := s.db.QueryRow(ctx, `SELECT sender_id FROM messages WHERE id = $1`, messageID).Scan(&senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		return err
	}
	if senderID != requesterID {
		return ErrNotSender
	}

	_, err = s.db.Exec(ctx, `UPDATE messages SET deleted = TRUE WHERE id = $1`, messageID)
	return err
}

// MarkRead 推进已读水位，upsert 取 GREATEST 保证单调
// 水位封顶到会话当前 last_seq，不允许预读未来消息
func (s *PostgresStore) MarkRead(ctx context.Context, conversationID, userID, upToSeq int64) (int64, error) {
	active, err := s.IsActiveMember(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !active {
		if _, err := s.GetConversation(ctx, conversationID); err != nil {
			return 0, err
		}
		return 0, ErrNotMember
	}

	var watermark int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO read_markers (conversation_id, user_id, last_read_seq, updated_at)
		VALUES ($1, $2, LEAST($3, (SELECT last_seq FROM conversations WHERE id = $1)), NOW())
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET last_read_seq = GREATEST(read_markers.last_read_seq, EXCLUDED.last_read_seq), updated_at = NOW()
		RETURNING last_read_seq
	`, conversationID, userID, upToSeq).Scan(&watermark)
	return watermark, err
}

// ReadMarker 获取已读水位，无记录时为 0
func (s *PostgresStore) ReadMarker(ctx context.Context, conversationID, userID int64) (int64, error) {
	var watermark int64
	err := s.db.QueryRow(ctx, `
		SELECT last_read_seq FROM read_markers
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(&watermark)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return watermark, err
}

// UnreadCount 未读消息数：序号大于水位、非本人发送且未删除
func (s *PostgresStore) UnreadCount(ctx context.Context, conversationID, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
		  AND seq > COALESCE((
			SELECT last_read_seq FROM read_markers
			WHERE conversation_id = $1 AND user_id = $2
		  ), 0)
		  AND sender_id <> $2
		  AND deleted = FALSE
	`, conversationID, userID).Scan(&count)
	return count, err
}
