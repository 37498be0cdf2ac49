package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.market/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 错误码常量（使用 pkg/errors 包的定义）
const (
	CodeSuccess = apperrors.CodeSuccess

	// 认证相关 10000-10999
	CodeEmailExists        = apperrors.CodeEmailExists
	CodeInvalidCredentials = apperrors.CodeInvalidCredentials
	CodeTokenInvalid       = apperrors.CodeTokenInvalid
	CodeTokenExpired       = apperrors.CodeTokenExpired
	CodeUserDisabled       = apperrors.CodeUserDisabled
	CodeEmailNotStudent    = apperrors.CodeEmailNotStudent

	// 用户相关 11000-11999
	CodeUserNotFound  = apperrors.CodeUserNotFound
	CodeInvalidParams = apperrors.CodeInvalidParams

	// 商品相关 13000-13999
	CodeProductNotFound  = apperrors.CodeProductNotFound
	CodeCategoryNotFound = apperrors.CodeCategoryNotFound
	CodeNotProductOwner  = apperrors.CodeNotProductOwner
	CodeAlreadyFavorited = apperrors.CodeAlreadyFavorited
	CodeFavoriteNotFound = apperrors.CodeFavoriteNotFound
	CodeProductNotActive = apperrors.CodeProductNotActive
	CodeCannotRateSelf   = apperrors.CodeCannotRateSelf
	CodeAlreadyRated     = apperrors.CodeAlreadyRated

	// 会话相关 14000-14999
	CodeConversationNotFound = apperrors.CodeConversationNotFound
	CodeAlreadyMember        = apperrors.CodeAlreadyMember
	CodeCapacityExceeded     = apperrors.CodeCapacityExceeded
	CodeMessageNotFound      = apperrors.CodeMessageNotFound
	CodeNotAMember           = apperrors.CodeNotAMember
	CodeNotMessageSender     = apperrors.CodeNotMessageSender
	CodeConversationClosed   = apperrors.CodeConversationClosed
	CodeInvalidMessage       = apperrors.CodeInvalidMessage
	CodeCannotChatSelf       = apperrors.CodeCannotChatSelf

	// 系统错误 50000-50999
	CodeServerError = apperrors.CodeServerError
	CodeDBError     = apperrors.CodeDBError
)

// codeMessages 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:              "success",
	CodeEmailExists:          "邮箱已被注册",
	CodeInvalidCredentials:   "邮箱或密码错误",
	CodeTokenInvalid:         "Token 无效",
	CodeTokenExpired:         "Token 已过期",
	CodeUserDisabled:         "用户已被禁用",
	CodeEmailNotStudent:      "仅支持校园邮箱注册",
	CodeUserNotFound:         "用户不存在",
	CodeInvalidParams:        "参数校验失败",
	CodeProductNotFound:      "商品不存在",
	CodeCategoryNotFound:     "分类不存在",
	CodeNotProductOwner:      "无权操作该商品",
	CodeAlreadyFavorited:     "已收藏该商品",
	CodeFavoriteNotFound:     "未收藏该商品",
	CodeProductNotActive:     "商品已下架",
	CodeCannotRateSelf:       "不能给自己评分",
	CodeAlreadyRated:         "已评价过该交易",
	CodeConversationNotFound: "会话不存在",
	CodeAlreadyMember:        "已在会话中",
	CodeCapacityExceeded:     "会话人数已达上限",
	CodeMessageNotFound:      "消息不存在",
	CodeNotAMember:           "不是会话成员",
	CodeNotMessageSender:     "只能操作自己发送的消息",
	CodeConversationClosed:   "会话已关闭",
	CodeInvalidMessage:       "消息内容不合法",
	CodeCannotChatSelf:       "不能和自己发起会话",
	CodeServerError:          "服务器内部错误",
	CodeDBError:              "数据库错误",
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	message := codeMessages[code]
	if message == "" {
		message = "unknown error"
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	message := apperrors.GetMessage(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeTokenInvalid,
		Message: codeMessages[CodeTokenInvalid],
		Data:    nil,
	})
}
