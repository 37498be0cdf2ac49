package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.market/internal/chat"
	"sudooom.market/internal/middleware"
	"sudooom.market/pkg/response"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler 创建会话处理器
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateConversation 创建会话
// @Summary      创建会话
// @Description  direct 会话按 (商品, 成员对) 去重，重复创建返回已有会话
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body chat.CreateConversationRequest true "会话信息"
// @Success      200  {object}  response.Response{data=model.Conversation}
// @Router       /conversations [post]
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req chat.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	creatorID := middleware.GetUserID(c)
	if len(req.ParticipantIDs) == 1 && req.ParticipantIDs[0] == creatorID {
		response.Error(c, response.CodeCannotChatSelf)
		return
	}

	conv, err := h.chatService.CreateConversation(c.Request.Context(), creatorID, &req)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, conv)
}

// ListConversations 会话列表
// @Summary      会话列表
// @Description  按最近活动排序，带未读数和最后一条消息
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.ConversationSummary}
// @Router       /conversations [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)

	summaries, err := h.chatService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, summaries)
}

// GetConversation 会话详情
// @Summary      会话详情
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200  {object}  response.Response{data=object{conversation=model.Conversation,member_ids=[]string}}
// @Router       /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	conv, members, err := h.chatService.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, gin.H{
		"conversation": conv,
		"member_ids":   members,
	})
}

// SendMessage 发送消息
// @Summary      发送消息
// @Description  带 client_msg_id 时同一发送者重复提交只落一条
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body chat.SendMessageRequest true "消息内容"
// @Success      200  {object}  response.Response{data=model.Message}
// @Router       /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req chat.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	senderID := middleware.GetUserID(c)
	msg, err := h.chatService.SendMessage(c.Request.Context(), senderID, conversationID, &req)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, msg)
}

// ListMessages 拉取消息
// @Summary      拉取消息
// @Description  返回 seq 大于 after_seq 的消息，按 seq 升序
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        after_seq query int false "起始序号（不含）"
// @Param        limit query int false "数量上限"
// @Success      200  {object}  response.Response{data=[]model.Message}
// @Router       /conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	afterSeq, _ := strconv.ParseInt(c.DefaultQuery("after_seq", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	userID := middleware.GetUserID(c)
	messages, err := h.chatService.ListMessages(c.Request.Context(), userID, conversationID, afterSeq, limit)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, messages)
}

// DeleteMessage 删除消息
// @Summary      删除消息
// @Description  软删除，只有发送者本人可操作；序号保留
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "消息ID"
// @Success      200  {object}  response.Response
// @Router       /messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.chatService.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, nil)
}

// MarkRead 上报已读水位
// @Summary      上报已读
// @Description  水位只前进不后退，重复上报幂等
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body object{up_to_seq=int} true "已读到的序号"
// @Success      200  {object}  response.Response{data=object{read_seq=int}}
// @Router       /conversations/{id}/read [put]
func (h *ChatHandler) MarkRead(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req struct {
		UpToSeq int64 `json:"up_to_seq" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	readSeq, err := h.chatService.MarkRead(c.Request.Context(), userID, conversationID, req.UpToSeq)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, gin.H{"read_seq": readSeq})
}

// UnreadCount 单会话未读数
// @Summary      会话未读数
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200  {object}  response.Response{data=object{unread=int}}
// @Router       /conversations/{id}/unread [get]
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	count, err := h.chatService.UnreadCount(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, gin.H{"unread": count})
}

// UnreadTotal 未读总数
// @Summary      未读总数
// @Description  当前用户所有活跃会话的未读数之和
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object{unread=int}}
// @Router       /conversations/unread [get]
func (h *ChatHandler) UnreadTotal(c *gin.Context) {
	userID := middleware.GetUserID(c)

	total, err := h.chatService.UnreadTotal(c.Request.Context(), userID)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, gin.H{"unread": total})
}

// AddParticipant 拉人进会话
// @Summary      添加成员
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body object{user_id=string} true "新成员"
// @Success      200  {object}  response.Response
// @Router       /conversations/{id}/members [post]
func (h *ChatHandler) AddParticipant(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req struct {
		UserID int64 `json:"user_id,string" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	actorID := middleware.GetUserID(c)
	if err := h.chatService.AddParticipant(c.Request.Context(), actorID, conversationID, req.UserID); err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, nil)
}

// LeaveConversation 退出会话
// @Summary      退出会话
// @Description  退出后不能再发消息，历史仍可查看
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200  {object}  response.Response
// @Router       /conversations/{id}/members/me [delete]
func (h *ChatHandler) LeaveConversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.chatService.LeaveConversation(c.Request.Context(), userID, conversationID); err != nil {
		h.writeChatError(c, err)
		return
	}

	response.Success(c, nil)
}

// writeChatError 会话错误映射
func (h *ChatHandler) writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		response.Error(c, response.CodeConversationNotFound)
	case errors.Is(err, chat.ErrConversationClosed):
		response.Error(c, response.CodeConversationClosed)
	case errors.Is(err, chat.ErrNotMember):
		response.Error(c, response.CodeNotAMember)
	case errors.Is(err, chat.ErrAlreadyMember):
		response.Error(c, response.CodeAlreadyMember)
	case errors.Is(err, chat.ErrCapacityExceeded):
		response.Error(c, response.CodeCapacityExceeded)
	case errors.Is(err, chat.ErrMessageNotFound):
		response.Error(c, response.CodeMessageNotFound)
	case errors.Is(err, chat.ErrNotSender):
		response.Error(c, response.CodeNotMessageSender)
	case errors.Is(err, chat.ErrInvalidMessage), errors.Is(err, chat.ErrInvalidParticipants):
		response.Error(c, response.CodeInvalidMessage)
	default:
		response.Error(c, response.CodeServerError)
	}
}
