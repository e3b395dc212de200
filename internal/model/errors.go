// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, idea, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeAccountExists      = "ACCOUNT_EXISTS"
	ErrCodeInvalidBranch      = "INVALID_BRANCH"
	ErrCodeInvalidDifficulty  = "INVALID_DIFFICULTY"
	ErrCodeDailyLimitReached  = "DAILY_LIMIT_REACHED"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
	ErrCodeIdeaNotFound       = "IDEA_NOT_FOUND"
	ErrCodePremiumRequired    = "PREMIUM_REQUIRED"
	ErrCodeInvalidProfile     = "INVALID_PROFILE"
	ErrCodeInvalidAvatar      = "INVALID_AVATAR"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request and try again.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Please log in.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password.",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewEmailNotVerifiedError はメール未確認エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "Please verify your email before logging in.",
		Category: "auth",
		Action:   "Open the verification link sent to your inbox.",
	}
}

// NewAccountExistsError はアカウント重複エラーを生成する。
func NewAccountExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountExists,
		Message:  "An account with this email already exists.",
		Category: "auth",
		Action:   "Log in instead.",
	}
}

// NewInvalidBranchError は無効な学科エラーを生成する。
func NewInvalidBranchError(branch string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBranch,
		Message:  fmt.Sprintf("Unknown branch: %s", branch),
		Category: "validation",
		Action:   "Choose one of CSE, ECE, Mechanical, Civil, IT.",
	}
}

// NewInvalidDifficultyError は無効な難易度エラーを生成する。
func NewInvalidDifficultyError(difficulty string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDifficulty,
		Message:  fmt.Sprintf("Unknown difficulty: %s", difficulty),
		Category: "validation",
		Action:   "Choose one of Easy, Medium, Hard.",
	}
}

// NewDailyLimitReachedError は無料枠の上限到達エラーを生成する。
func NewDailyLimitReachedError(used, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeDailyLimitReached,
		Message:  fmt.Sprintf("You've used %d/%d free ideas today. Upgrade to premium for unlimited ideas!", used, limit),
		Category: "idea",
		Action:   "Upgrade to premium or come back tomorrow.",
	}
}

// NewGenerationFailedError はアイデア生成失敗エラーを生成する。
func NewGenerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  "Failed to generate idea. Try again.",
		Category: "idea",
		Action:   "Wait a moment and try again.",
	}
}

// NewIdeaNotFoundError はアイデア未検出エラーを生成する。
func NewIdeaNotFoundError(ideaID string) *APIError {
	return &APIError{
		Code:     ErrCodeIdeaNotFound,
		Message:  fmt.Sprintf("Idea not found: %s", ideaID),
		Category: "idea",
		Action:   "Reload your saved ideas.",
	}
}

// NewPremiumRequiredError はプレミアム限定機能エラーを生成する。
func NewPremiumRequiredError(feature string) *APIError {
	return &APIError{
		Code:     ErrCodePremiumRequired,
		Message:  fmt.Sprintf("%s is premium-only. Upgrade for ₹100/month!", feature),
		Category: "payment",
		Action:   "Upgrade to premium.",
	}
}

// NewInvalidProfileError はプロフィール更新内容の不正エラーを生成する。
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  reason,
		Category: "validation",
		Action:   "Fix the highlighted field and save again.",
	}
}

// NewInvalidAvatarError はアバター画像の不正エラーを生成する。
func NewInvalidAvatarError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAvatar,
		Message:  reason,
		Category: "validation",
		Action:   "Select a valid image (<5MB).",
	}
}
