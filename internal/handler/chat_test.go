package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.market/internal/chat"
	"sudooom.market/pkg/response"
	"sudooom.market/pkg/snowflake"
)

// APIResponse 用于解析响应体
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// setupChatRouter 内存存储 + 假登录中间件，完整跑 HTTP 层
func setupChatRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := chat.NewService(chat.NewMemoryStore(), nil, nil, node, 2000, 50)
	h := NewChatHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// 测试用：从 header 读当前用户
		var userID int64
		fmt.Sscanf(c.GetHeader("X-Test-User"), "%d", &userID)
		c.Set("user_id", userID)
		c.Next()
	})

	r.POST("/conversations", h.CreateConversation)
	r.GET("/conversations", h.ListConversations)
	r.GET("/conversations/:id", h.GetConversation)
	r.POST("/conversations/:id/messages", h.SendMessage)
	r.GET("/conversations/:id/messages", h.ListMessages)
	r.PUT("/conversations/:id/read", h.MarkRead)
	r.GET("/conversations/:id/unread", h.UnreadCount)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID int64, body interface{}) *APIResponse {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", fmt.Sprintf("%d", userID))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestChatHandler_SendAndListFlow(t *testing.T) {
	r := setupChatRouter(t)

	// 创建 direct 会话
	resp := doJSON(t, r, http.MethodPost, "/conversations", 100, gin.H{
		"kind":            "direct",
		"participant_ids": []int64{200},
	})
	require.Equal(t, response.CodeSuccess, resp.Code)

	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &conv))
	require.NotEmpty(t, conv.ID)

	// 发消息
	resp = doJSON(t, r, http.MethodPost, "/conversations/"+conv.ID+"/messages", 100, gin.H{
		"content": "is the bike still available?",
	})
	require.Equal(t, response.CodeSuccess, resp.Code)

	var msg struct {
		Seq int64 `json:"seq"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &msg))
	assert.Equal(t, int64(1), msg.Seq)

	// 对方拉取消息
	resp = doJSON(t, r, http.MethodGet, "/conversations/"+conv.ID+"/messages", 200, nil)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var msgs []struct {
		Seq     int64  `json:"seq"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "is the bike still available?", msgs[0].Content)

	// 对方未读 1，上报已读后归零
	resp = doJSON(t, r, http.MethodGet, "/conversations/"+conv.ID+"/unread", 200, nil)
	var unread struct {
		Unread int64 `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &unread))
	assert.Equal(t, int64(1), unread.Unread)

	resp = doJSON(t, r, http.MethodPut, "/conversations/"+conv.ID+"/read", 200, gin.H{"up_to_seq": 1})
	require.Equal(t, response.CodeSuccess, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/conversations/"+conv.ID+"/unread", 200, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &unread))
	assert.Equal(t, int64(0), unread.Unread)
}

func TestChatHandler_CreateConversation_SelfChat(t *testing.T) {
	r := setupChatRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/conversations", 100, gin.H{
		"kind":            "direct",
		"participant_ids": []int64{100},
	})
	assert.Equal(t, response.CodeCannotChatSelf, resp.Code)
}

func TestChatHandler_NonMemberRejected(t *testing.T) {
	r := setupChatRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/conversations", 100, gin.H{
		"kind":            "group",
		"title":           "textbooks",
		"participant_ids": []int64{200},
	})
	require.Equal(t, response.CodeSuccess, resp.Code)

	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &conv))

	// 非成员发消息被拒
	resp = doJSON(t, r, http.MethodPost, "/conversations/"+conv.ID+"/messages", 999, gin.H{
		"content": "let me in",
	})
	assert.Equal(t, response.CodeNotAMember, resp.Code)

	// 非成员读消息也被拒
	resp = doJSON(t, r, http.MethodGet, "/conversations/"+conv.ID+"/messages", 999, nil)
	assert.Equal(t, response.CodeNotAMember, resp.Code)
}

func TestChatHandler_InvalidParams(t *testing.T) {
	r := setupChatRouter(t)

	// kind 非法
	resp := doJSON(t, r, http.MethodPost, "/conversations", 100, gin.H{
		"kind":            "broadcast",
		"participant_ids": []int64{200},
	})
	assert.Equal(t, response.CodeInvalidParams, resp.Code)

	// 会话 ID 非数字
	resp = doJSON(t, r, http.MethodGet, "/conversations/abc/messages", 100, nil)
	assert.Equal(t, response.CodeInvalidParams, resp.Code)

	// 不存在的会话
	resp = doJSON(t, r, http.MethodPost, "/conversations/12345/messages", 100, gin.H{"content": "hi"})
	assert.Equal(t, response.CodeConversationNotFound, resp.Code)
}
