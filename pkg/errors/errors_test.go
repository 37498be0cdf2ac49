package errors

import (
	"errors"
	"testing"
)

func TestNewError(t *testing.T) {
	err := NewError(14001, "test error")

	if err.Code != 14001 {
		t.Errorf("Expected code 14001, got %d", err.Code)
	}
	if err.Message != "test error" {
		t.Errorf("Expected message 'test error', got '%s'", err.Message)
	}
	if err.Err != nil {
		t.Error("Expected Err to be nil")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			err:      NewError(14001, "test error"),
			expected: "[14001] test error",
		},
		{
			name:     "with wrapped error",
			err:      NewError(14001, "test error").Wrap(errors.New("original error")),
			expected: "[14001] test error: original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestAppError_Wrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := ErrConversationNotFound.Wrap(originalErr)

	if wrapped.Code != CodeConversationNotFound {
		t.Errorf("Expected code preserved, got %d", wrapped.Code)
	}
	if !errors.Is(wrapped, originalErr) {
		t.Error("Expected errors.Is to find wrapped error")
	}
	// 原始预定义错误不能被修改
	if ErrConversationNotFound.Err != nil {
		t.Error("Expected predefined error to remain unwrapped")
	}
}

func TestIs(t *testing.T) {
	wrapped := ErrNotAMember.Wrap(errors.New("db said no"))

	if !Is(wrapped, ErrNotAMember) {
		t.Error("Expected Is to match by code")
	}
	if Is(wrapped, ErrAlreadyMember) {
		t.Error("Expected Is to reject different code")
	}
	if Is(errors.New("plain"), ErrNotAMember) {
		t.Error("Expected Is to reject plain error")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(ErrCapacityExceeded); got != CodeCapacityExceeded {
		t.Errorf("Expected %d, got %d", CodeCapacityExceeded, got)
	}
	if got := GetCode(errors.New("plain")); got != CodeServerError {
		t.Errorf("Expected default %d for plain error, got %d", CodeServerError, got)
	}
}

func TestGetMessage(t *testing.T) {
	if got := GetMessage(ErrEmailNotStudent); got != "仅支持校园邮箱注册" {
		t.Errorf("Unexpected message: %s", got)
	}
	if got := GetMessage(errors.New("plain")); got != "服务器内部错误" {
		t.Errorf("Unexpected default message: %s", got)
	}
}
