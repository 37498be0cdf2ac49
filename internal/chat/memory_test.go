package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"sudooom.market/internal/model"
)

func newGroupConversation(t *testing.T, s *MemoryStore, id int64, memberIDs ...int64) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		ID:        id,
		Kind:      model.ConversationKindGroup,
		Title:     "测试群",
		CreatorID: memberIDs[0],
	}
	if err := s.CreateConversation(context.Background(), conv, memberIDs); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

func newDirectConversation(t *testing.T, s *MemoryStore, id int64, productID *int64, userA, userB int64) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		ID:        id,
		Kind:      model.ConversationKindDirect,
		ProductID: productID,
		CreatorID: userA,
	}
	if err := s.CreateConversation(context.Background(), conv, []int64{userA, userB}); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

var testMsgID atomic.Int64

func appendText(t *testing.T, s *MemoryStore, convID, senderID int64, content string) *model.Message {
	t.Helper()
	msg, err := s.AppendMessage(context.Background(), &model.Message{
		ID:             testMsgID.Add(1),
		ConversationID: convID,
		SenderID:       senderID,
		Type:           model.MessageTypeText,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	return msg
}

func TestMemoryStore_AppendMessage_SequencesContiguous(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	for i := 1; i <= 5; i++ {
		msg, err := s.AppendMessage(ctx, &model.Message{
			ID:             int64(i),
			ConversationID: 1,
			SenderID:       100,
			Type:           model.MessageTypeText,
			Content:        fmt.Sprintf("msg-%d", i),
		})
		if err != nil {
			t.Fatalf("AppendMessage %d failed: %v", i, err)
		}
		if msg.Seq != int64(i) {
			t.Errorf("Expected seq %d, got %d", i, msg.Seq)
		}
	}

	conv, err := s.GetConversation(ctx, 1)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv.LastSeq != 5 {
		t.Errorf("Expected LastSeq 5, got %d", conv.LastSeq)
	}
}

func TestMemoryStore_AppendMessage_ConcurrentSequences(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200, 300)

	const goroutines = 20
	const perGoroutine = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)

	senders := []int64{100, 200, 300}
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				msg, err := s.AppendMessage(ctx, &model.Message{
					ID:             int64(g*perGoroutine + i + 1),
					ConversationID: 1,
					SenderID:       senders[g%len(senders)],
					Type:           model.MessageTypeText,
					Content:        "concurrent",
				})
				if err != nil {
					t.Errorf("AppendMessage failed: %v", err)
					return
				}
				mu.Lock()
				if seen[msg.Seq] {
					t.Errorf("Duplicate seq %d", msg.Seq)
				}
				seen[msg.Seq] = true
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	// 序号必须恰好覆盖 1..N，无空洞无重复
	total := int64(goroutines * perGoroutine)
	if int64(len(seen)) != total {
		t.Fatalf("Expected %d distinct seqs, got %d", total, len(seen))
	}
	for seq := int64(1); seq <= total; seq++ {
		if !seen[seq] {
			t.Errorf("Missing seq %d", seq)
		}
	}

	conv, _ := s.GetConversation(ctx, 1)
	if conv.LastSeq != total {
		t.Errorf("Expected LastSeq %d, got %d", total, conv.LastSeq)
	}
}

func TestMemoryStore_AppendMessage_ClientDedupe(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	first, err := s.AppendMessage(ctx, &model.Message{
		ID:             1,
		ConversationID: 1,
		SenderID:       100,
		Type:           model.MessageTypeText,
		Content:        "hello",
		ClientMsgID:    "client-abc",
	})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	// 同一发送者重放同一 client_msg_id，返回已有消息，不新增序号
	replay, err := s.AppendMessage(ctx, &model.Message{
		ID:             2,
		ConversationID: 1,
		SenderID:       100,
		Type:           model.MessageTypeText,
		Content:        "hello",
		ClientMsgID:    "client-abc",
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replay.ID != first.ID || replay.Seq != first.Seq {
		t.Errorf("Expected dedupe to return original message, got id=%d seq=%d", replay.ID, replay.Seq)
	}

	// 不同发送者用同一 client_msg_id 是两条独立消息
	other, err := s.AppendMessage(ctx, &model.Message{
		ID:             3,
		ConversationID: 1,
		SenderID:       200,
		Type:           model.MessageTypeText,
		Content:        "hello",
		ClientMsgID:    "client-abc",
	})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if other.Seq != 2 {
		t.Errorf("Expected seq 2 for other sender, got %d", other.Seq)
	}

	conv, _ := s.GetConversation(ctx, 1)
	if conv.LastSeq != 2 {
		t.Errorf("Expected LastSeq 2, got %d", conv.LastSeq)
	}
}

func TestMemoryStore_AppendMessage_Authorization(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	_, err := s.AppendMessage(ctx, &model.Message{
		ID: 1, ConversationID: 1, SenderID: 999,
		Type: model.MessageTypeText, Content: "intruder",
	})
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}

	_, err = s.AppendMessage(ctx, &model.Message{
		ID: 2, ConversationID: 42, SenderID: 100,
		Type: model.MessageTypeText, Content: "void",
	})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestMemoryStore_MarkRead_MonotonicAndIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	for i := 0; i < 5; i++ {
		appendText(t, s, 1, 200, fmt.Sprintf("m%d", i))
	}

	seq, err := s.MarkRead(ctx, 1, 100, 5)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if seq != 5 {
		t.Errorf("Expected marker 5, got %d", seq)
	}

	// 迟到的小值上报不回退
	seq, err = s.MarkRead(ctx, 1, 100, 3)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if seq != 5 {
		t.Errorf("Expected marker to stay at 5, got %d", seq)
	}

	// 重复上报幂等
	seq, _ = s.MarkRead(ctx, 1, 100, 5)
	if seq != 5 {
		t.Errorf("Expected marker 5 after replay, got %d", seq)
	}

	if _, err := s.MarkRead(ctx, 1, 999, 1); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for non-member, got %v", err)
	}
}

func TestMemoryStore_MarkRead_ClampedToLastSeq(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	appendText(t, s, 1, 200, "one")
	appendText(t, s, 1, 200, "two")

	// 上报超过 last_seq 的水位被封顶，不能预读未来消息
	seq, err := s.MarkRead(ctx, 1, 100, 1_000_000_000)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("Expected marker clamped to 2, got %d", seq)
	}

	// 封顶后新消息照常计入未读
	appendText(t, s, 1, 200, "three")
	count, err := s.UnreadCount(ctx, 1, 100)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected unread 1 after clamp, got %d", count)
	}
}

func TestMemoryStore_ClientDedupe_RedactsDeleted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	first, err := s.AppendMessage(ctx, &model.Message{
		ID: 1, ConversationID: 1, SenderID: 100,
		Type: model.MessageTypeText, Content: "secret", ClientMsgID: "c-del",
	})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := s.SoftDeleteMessage(ctx, first.ID, 100); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	// 删除后重放同一 client_msg_id，返回的消息内容同样置空
	replay, err := s.AppendMessage(ctx, &model.Message{
		ID: 2, ConversationID: 1, SenderID: 100,
		Type: model.MessageTypeText, Content: "secret", ClientMsgID: "c-del",
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replay.ID != first.ID || replay.Seq != first.Seq {
		t.Errorf("Expected dedupe to return original message, got id=%d seq=%d", replay.ID, replay.Seq)
	}
	if !replay.Deleted || replay.Content != "" {
		t.Errorf("Expected replay redacted, got deleted=%v content=%q", replay.Deleted, replay.Content)
	}
}

func TestMemoryStore_UnreadCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	// B 发 3 条，A 发 1 条
	appendText(t, s, 1, 200, "b1") // seq 1
	appendText(t, s, 1, 200, "b2") // seq 2
	appendText(t, s, 1, 100, "a1") // seq 3
	appendText(t, s, 1, 200, "b3") // seq 4

	// A 未读：不含自己发的那条
	count, err := s.UnreadCount(ctx, 1, 100)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected unread 3 for A, got %d", count)
	}

	// A 读到 seq 2
	if _, err := s.MarkRead(ctx, 1, 100, 2); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	count, _ = s.UnreadCount(ctx, 1, 100)
	if count != 1 {
		t.Errorf("Expected unread 1 after reading to seq 2, got %d", count)
	}

	// B 未读：A 发的那条
	count, _ = s.UnreadCount(ctx, 1, 200)
	if count != 1 {
		t.Errorf("Expected unread 1 for B, got %d", count)
	}
}

func TestMemoryStore_UnreadCount_ExcludesDeleted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	m1 := appendText(t, s, 1, 200, "one")
	appendText(t, s, 1, 200, "two")

	if err := s.SoftDeleteMessage(ctx, m1.ID, 200); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	count, err := s.UnreadCount(ctx, 1, 100)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected deleted message excluded, unread 1, got %d", count)
	}
}

func TestMemoryStore_DirectConversation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	productID := int64(77)
	newDirectConversation(t, s, 1, &productID, 100, 200)

	// 同一 (商品, 成员对) 再建报重复，成员顺序无关
	conv := &model.Conversation{ID: 2, Kind: model.ConversationKindDirect, ProductID: &productID, CreatorID: 200}
	err := s.CreateConversation(ctx, conv, []int64{200, 100})
	if !errors.Is(err, ErrDirectExists) {
		t.Errorf("Expected ErrDirectExists, got %v", err)
	}

	// 不同商品是另一个会话
	otherProduct := int64(88)
	newDirectConversation(t, s, 3, &otherProduct, 100, 200)

	found, err := s.FindDirectConversation(ctx, &productID, 200, 100)
	if err != nil {
		t.Fatalf("FindDirectConversation failed: %v", err)
	}
	if found == nil || found.ID != 1 {
		t.Errorf("Expected to find conversation 1, got %+v", found)
	}

	missing, err := s.FindDirectConversation(ctx, nil, 100, 300)
	if err != nil {
		t.Fatalf("FindDirectConversation failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing direct conversation, got %+v", missing)
	}

	// direct 会话人数固定，不能再拉人
	if err := s.AddMember(ctx, 1, 300); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}
}

func TestMemoryStore_RemoveMember(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200, 300)
	appendText(t, s, 1, 100, "before leave")

	if err := s.RemoveMember(ctx, 1, 300); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	// 退出后不能发消息
	_, err := s.AppendMessage(ctx, &model.Message{
		ID: 99, ConversationID: 1, SenderID: 300,
		Type: model.MessageTypeText, Content: "after leave",
	})
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember after leave, got %v", err)
	}

	// 历史仍可读：成员关系保留
	has, _ := s.HasMembership(ctx, 1, 300)
	if !has {
		t.Error("Expected former member to retain membership record")
	}
	active, _ := s.IsActiveMember(ctx, 1, 300)
	if active {
		t.Error("Expected former member to be inactive")
	}

	// 重复退出报错
	if err := s.RemoveMember(ctx, 1, 300); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember on double leave, got %v", err)
	}
}

func TestMemoryStore_GroupClosesOnLastLeave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)
	appendText(t, s, 1, 100, "hello")

	if err := s.RemoveMember(ctx, 1, 100); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if err := s.RemoveMember(ctx, 1, 200); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	conv, _ := s.GetConversation(ctx, 1)
	if conv.Status != model.ConversationStatusClosed {
		t.Errorf("Expected closed conversation, got %s", conv.Status)
	}

	// 关闭后拒绝写入，历史依然可读
	if err := s.AddMember(ctx, 1, 300); !errors.Is(err, ErrConversationClosed) {
		t.Errorf("Expected ErrConversationClosed, got %v", err)
	}
	msgs, err := s.ListMessagesSince(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("ListMessagesSince failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("Expected history to remain readable, got %d messages", len(msgs))
	}
}

func TestMemoryStore_SoftDeleteMessage(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	msg := appendText(t, s, 1, 100, "secret")
	appendText(t, s, 1, 200, "reply")

	// 非发送者不能删
	if err := s.SoftDeleteMessage(ctx, msg.ID, 200); !errors.Is(err, ErrNotSender) {
		t.Errorf("Expected ErrNotSender, got %v", err)
	}

	if err := s.SoftDeleteMessage(ctx, msg.ID, 100); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	// 序号保留，内容置空
	msgs, _ := s.ListMessagesSince(ctx, 1, 0, 0)
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if !msgs[0].Deleted || msgs[0].Content != "" {
		t.Errorf("Expected first message redacted, got deleted=%v content=%q", msgs[0].Deleted, msgs[0].Content)
	}
	if msgs[0].Seq != 1 || msgs[1].Seq != 2 {
		t.Errorf("Expected seqs 1,2 preserved, got %d,%d", msgs[0].Seq, msgs[1].Seq)
	}

	// 重复删除幂等
	if err := s.SoftDeleteMessage(ctx, msg.ID, 100); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
}

func TestMemoryStore_ListMessagesSince(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newGroupConversation(t, s, 1, 100, 200)

	for i := 1; i <= 10; i++ {
		appendText(t, s, 1, 100, fmt.Sprintf("m%d", i))
	}

	msgs, err := s.ListMessagesSince(ctx, 1, 4, 3)
	if err != nil {
		t.Fatalf("ListMessagesSince failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != int64(5+i) {
			t.Errorf("Expected seq %d at position %d, got %d", 5+i, i, m.Seq)
		}
	}

	// 水位之后没有消息时返回空
	empty, _ := s.ListMessagesSince(ctx, 1, 10, 0)
	if len(empty) != 0 {
		t.Errorf("Expected empty result, got %d", len(empty))
	}
}
