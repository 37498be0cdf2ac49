package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError // 默认返回服务器错误
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeEmailExists        = 10001
	CodeInvalidCredentials = 10002
	CodeTokenInvalid       = 10003
	CodeTokenExpired       = 10004
	CodeUserDisabled       = 10005
	CodeEmailNotStudent    = 10006

	// 用户相关 11000-11999
	CodeUserNotFound  = 11001
	CodeInvalidParams = 11002

	// 商品相关 13000-13999
	CodeProductNotFound   = 13001
	CodeCategoryNotFound  = 13002
	CodeNotProductOwner   = 13003
	CodeAlreadyFavorited  = 13004
	CodeFavoriteNotFound  = 13005
	CodeProductNotActive  = 13006
	CodeCannotRateSelf    = 13007
	CodeAlreadyRated      = 13008

	// 会话相关 14000-14999
	CodeConversationNotFound = 14001
	CodeAlreadyMember        = 14002
	CodeCapacityExceeded     = 14003
	CodeMessageNotFound      = 14004
	CodeNotAMember           = 14005
	CodeNotMessageSender     = 14006
	CodeConversationClosed   = 14007
	CodeInvalidMessage       = 14008
	CodeCannotChatSelf       = 14009

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeDBError       = 50002
	CodeTooManyReqest = 50003
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrEmailExists        = NewError(CodeEmailExists, "邮箱已被注册")
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "邮箱或密码错误")
	ErrTokenInvalid       = NewError(CodeTokenInvalid, "Token 无效")
	ErrTokenExpired       = NewError(CodeTokenExpired, "Token 已过期")
	ErrUserDisabled       = NewError(CodeUserDisabled, "用户已被禁用")
	ErrEmailNotStudent    = NewError(CodeEmailNotStudent, "仅支持校园邮箱注册")
)

// 用户相关
var (
	ErrUserNotFound  = NewError(CodeUserNotFound, "用户不存在")
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

// 商品相关
var (
	ErrProductNotFound  = NewError(CodeProductNotFound, "商品不存在")
	ErrCategoryNotFound = NewError(CodeCategoryNotFound, "分类不存在")
	ErrNotProductOwner  = NewError(CodeNotProductOwner, "无权操作该商品")
	ErrAlreadyFavorited = NewError(CodeAlreadyFavorited, "已收藏该商品")
	ErrFavoriteNotFound = NewError(CodeFavoriteNotFound, "未收藏该商品")
	ErrProductNotActive = NewError(CodeProductNotActive, "商品已下架")
	ErrCannotRateSelf   = NewError(CodeCannotRateSelf, "不能给自己评分")
	ErrAlreadyRated     = NewError(CodeAlreadyRated, "已评价过该交易")
)

// 会话相关
var (
	ErrConversationNotFound = NewError(CodeConversationNotFound, "会话不存在")
	ErrAlreadyMember        = NewError(CodeAlreadyMember, "已在会话中")
	ErrCapacityExceeded     = NewError(CodeCapacityExceeded, "会话人数已达上限")
	ErrMessageNotFound      = NewError(CodeMessageNotFound, "消息不存在")
	ErrNotAMember           = NewError(CodeNotAMember, "不是会话成员")
	ErrNotMessageSender     = NewError(CodeNotMessageSender, "只能操作自己发送的消息")
	ErrConversationClosed   = NewError(CodeConversationClosed, "会话已关闭")
	ErrInvalidMessage       = NewError(CodeInvalidMessage, "消息内容不合法")
	ErrCannotChatSelf       = NewError(CodeCannotChatSelf, "不能和自己发起会话")
)

// 系统相关
var (
	ErrServerError    = NewError(CodeServerError, "服务器内部错误")
	ErrDBError        = NewError(CodeDBError, "数据库错误")
	ErrTooManyRequest = NewError(CodeTooManyReqest, "请求过于频繁，请稍后再试")
)
