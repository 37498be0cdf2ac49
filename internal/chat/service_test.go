package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sudooom.market/internal/model"
	"sudooom.market/pkg/snowflake"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	store := NewMemoryStore()
	return NewService(store, nil, nil, node, 100, 10), store
}

func TestService_CreateConversation_DirectGetOrCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	productID := int64(42)

	req := &CreateConversationRequest{
		Kind:           model.ConversationKindDirect,
		ProductID:      &productID,
		ParticipantIDs: []int64{200},
	}

	first, err := svc.CreateConversation(ctx, 100, req)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	// 买家重试同一会话，拿到同一个 ID
	second, err := svc.CreateConversation(ctx, 100, req)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same conversation on retry, got %d and %d", first.ID, second.ID)
	}

	// 对方发起也命中同一个会话
	reverse, err := svc.CreateConversation(ctx, 200, &CreateConversationRequest{
		Kind:           model.ConversationKindDirect,
		ProductID:      &productID,
		ParticipantIDs: []int64{100},
	})
	if err != nil {
		t.Fatalf("Reverse create failed: %v", err)
	}
	if reverse.ID != first.ID {
		t.Errorf("Expected same conversation from either side, got %d and %d", first.ID, reverse.ID)
	}
}

func TestService_CreateConversation_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 参与者列表里重复出现创建者
	_, err := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{100, 200},
	})
	if !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}

	// direct 必须恰好两人
	_, err = svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindDirect,
		ParticipantIDs: []int64{200, 300},
	})
	if !errors.Is(err, ErrInvalidParticipants) {
		t.Errorf("Expected ErrInvalidParticipants, got %v", err)
	}
}

func TestService_SendMessage_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		Title:          "numbers",
		ParticipantIDs: []int64{200},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	cases := []struct {
		name string
		req  *SendMessageRequest
	}{
		{"empty content", &SendMessageRequest{Content: "   "}},
		{"too long", &SendMessageRequest{Content: strings.Repeat("x", 101)}},
		{"bad type", &SendMessageRequest{Type: "carrier_pigeon", Content: "hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SendMessage(ctx, 100, conv.ID, tc.req); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("Expected ErrInvalidMessage, got %v", err)
			}
		})
	}

	// 省略 type 默认为 text
	msg, err := svc.SendMessage(ctx, 100, conv.ID, &SendMessageRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.Type != model.MessageTypeText {
		t.Errorf("Expected default type text, got %s", msg.Type)
	}
	if msg.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", msg.Seq)
	}
}

func TestService_SendMessage_DoesNotAdvanceSenderMarker(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})

	if _, err := svc.SendMessage(ctx, 100, conv.ID, &SendMessageRequest{Content: "hi"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	marker, err := store.ReadMarker(ctx, conv.ID, 100)
	if err != nil {
		t.Fatalf("ReadMarker failed: %v", err)
	}
	if marker != 0 {
		t.Errorf("Expected sender marker unchanged at 0, got %d", marker)
	}

	// 自己发的消息不算自己的未读
	count, _ := svc.UnreadCount(ctx, 100, conv.ID)
	if count != 0 {
		t.Errorf("Expected 0 unread for sender, got %d", count)
	}
}

func TestService_UnreadTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	convA, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})
	convB, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{300},
	})

	for i := 0; i < 2; i++ {
		if _, err := svc.SendMessage(ctx, 200, convA.ID, &SendMessageRequest{Content: "a"}); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
	if _, err := svc.SendMessage(ctx, 300, convB.ID, &SendMessageRequest{Content: "b"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	total, err := svc.UnreadTotal(ctx, 100)
	if err != nil {
		t.Fatalf("UnreadTotal failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}

	// 读完一个会话后总数下降
	if _, err := svc.MarkRead(ctx, 100, convA.ID, 2); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	total, _ = svc.UnreadTotal(ctx, 100)
	if total != 1 {
		t.Errorf("Expected total 1 after reading convA, got %d", total)
	}

	// 退出会话后不再计入
	if err := svc.LeaveConversation(ctx, 100, convB.ID); err != nil {
		t.Fatalf("LeaveConversation failed: %v", err)
	}
	total, _ = svc.UnreadTotal(ctx, 100)
	if total != 0 {
		t.Errorf("Expected total 0 after leaving convB, got %d", total)
	}
}

func TestService_MarkRead_RejectsNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})

	if _, err := svc.MarkRead(ctx, 100, conv.ID, -1); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Expected ErrInvalidMessage for negative seq, got %v", err)
	}
}

func TestService_AddParticipant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})

	// 非成员不能拉人
	if err := svc.AddParticipant(ctx, 999, conv.ID, 300); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for outsider, got %v", err)
	}

	if err := svc.AddParticipant(ctx, 100, conv.ID, 300); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	// 已是成员不能重复添加
	if err := svc.AddParticipant(ctx, 100, conv.ID, 300); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}

	// 退出后的成员不能再拉人
	if err := svc.LeaveConversation(ctx, 300, conv.ID); err != nil {
		t.Fatalf("LeaveConversation failed: %v", err)
	}
	if err := svc.AddParticipant(ctx, 300, conv.ID, 400); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for former member, got %v", err)
	}
}

func TestService_ListMessages_FormerMemberCanRead(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})
	if _, err := svc.SendMessage(ctx, 100, conv.ID, &SendMessageRequest{Content: "hello"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.LeaveConversation(ctx, 200, conv.ID); err != nil {
		t.Fatalf("LeaveConversation failed: %v", err)
	}

	// 退出后历史可读
	msgs, err := svc.ListMessages(ctx, 200, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("Expected 1 message, got %d", len(msgs))
	}

	// 但不能再发
	if _, err := svc.SendMessage(ctx, 200, conv.ID, &SendMessageRequest{Content: "still here?"}); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}

	// 从未加入的人连历史都看不了
	if _, err := svc.ListMessages(ctx, 999, conv.ID, 0, 0); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for outsider, got %v", err)
	}
}

func TestService_ListConversations_Summaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		Title:          "books",
		ParticipantIDs: []int64{200},
	})
	if _, err := svc.SendMessage(ctx, 200, conv.ID, &SendMessageRequest{Content: "selling calculus"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	summaries, err := svc.ListConversations(ctx, 100)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].UnreadCount != 1 {
		t.Errorf("Expected unread 1, got %d", summaries[0].UnreadCount)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Content != "selling calculus" {
		t.Errorf("Expected last message, got %+v", summaries[0].LastMessage)
	}
}

func TestService_DirectConversationFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, 1, &CreateConversationRequest{
		Kind:           model.ConversationKindDirect,
		ParticipantIDs: []int64{2},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	hi, err := svc.SendMessage(ctx, 1, conv.ID, &SendMessageRequest{Content: "hi"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if hi.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", hi.Seq)
	}

	hey, err := svc.SendMessage(ctx, 2, conv.ID, &SendMessageRequest{Content: "hey"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if hey.Seq != 2 {
		t.Errorf("Expected seq 2, got %d", hey.Seq)
	}

	// A 只有对方那条未读
	count, err := svc.UnreadCount(ctx, 1, conv.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected unread 1 for A, got %d", count)
	}

	// B 读到 seq 2 后归零
	if _, err := svc.MarkRead(ctx, 2, conv.ID, 2); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	count, _ = svc.UnreadCount(ctx, 2, conv.ID)
	if count != 0 {
		t.Errorf("Expected unread 0 for B after markRead, got %d", count)
	}
}

func TestService_DeleteMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, 100, &CreateConversationRequest{
		Kind:           model.ConversationKindGroup,
		ParticipantIDs: []int64{200},
	})
	msg, err := svc.SendMessage(ctx, 100, conv.ID, &SendMessageRequest{Content: "oops"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.DeleteMessage(ctx, 200, msg.ID); !errors.Is(err, ErrNotSender) {
		t.Errorf("Expected ErrNotSender, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, 100, msg.ID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if err := svc.DeleteMessage(ctx, 100, 12345); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}
