package model

import "time"

// User 用户模型
type User struct {
	ID             int64     `json:"id,string" db:"id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	University     string    `json:"university" db:"university"`
	StudentID      string    `json:"studentId" db:"student_id"`
	Phone          string    `json:"phone" db:"phone"`
	AvatarURL      string    `json:"avatarUrl" db:"avatar_url"`
	Bio            string    `json:"bio" db:"bio"`
	CampusLocation string    `json:"campusLocation" db:"campus_location"`
	EmailVerified  bool      `json:"emailVerified" db:"email_verified"`
	Status         int       `json:"status" db:"status"`
	AverageRating  float64   `json:"averageRating" db:"average_rating"`
	TotalRatings   int       `json:"totalRatings" db:"total_ratings"`
	TotalSales     int       `json:"totalSales" db:"total_sales"`
	TotalPurchases int       `json:"totalPurchases" db:"total_purchases"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// UserStatus 用户状态
const (
	UserStatusNormal   = 0 // 正常
	UserStatusDisabled = 1 // 禁用
	UserStatusBanned   = 2 // 封禁
)

// FullName 用户全名
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RatingTransactionType 评分交易类型
const (
	RatingTransactionSale     = "sale"     // 卖出
	RatingTransactionPurchase = "purchase" // 买入
	RatingTransactionGeneral  = "general"  // 其他
)

// Rating 用户评分
type Rating struct {
	ID              int64     `json:"id,string" db:"id"`
	RatedUserID     int64     `json:"ratedUserId" db:"rated_user_id"`
	RaterID         int64     `json:"raterId" db:"rater_id"`
	Score           int       `json:"score" db:"score"`
	Comment         string    `json:"comment" db:"comment"`
	TransactionType string    `json:"transactionType" db:"transaction_type"`
	ProductID       *int64    `json:"productId,omitempty" db:"product_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}
