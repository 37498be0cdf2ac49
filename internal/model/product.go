package model

import "time"

// Category 商品分类
type Category struct {
	ID          int64     `json:"id,string" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	ParentID    *int64    `json:"parentId,omitempty" db:"parent_id"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// ProductCondition 商品成色
const (
	ConditionNew       = "new"       // 全新
	ConditionLikeNew   = "like_new"  // 几乎全新
	ConditionExcellent = "excellent" // 优秀
	ConditionGood      = "good"      // 良好
	ConditionFair      = "fair"      // 一般
	ConditionPoor      = "poor"      // 较差
)

// ValidCondition 成色取值是否合法
func ValidCondition(condition string) bool {
	switch condition {
	case ConditionNew, ConditionLikeNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ProductStatus 商品状态
const (
	ProductStatusActive   = "active"   // 在售
	ProductStatusSold     = "sold"     // 已售出
	ProductStatusReserved = "reserved" // 已预定
	ProductStatusInactive = "inactive" // 下架
	ProductStatusFlagged  = "flagged"  // 被举报
)

// ValidProductStatus 状态取值是否合法
func ValidProductStatus(status string) bool {
	switch status {
	case ProductStatusActive, ProductStatusSold, ProductStatusReserved, ProductStatusInactive, ProductStatusFlagged:
		return true
	}
	return false
}

// Product 商品模型
// 价格以分为单位存储，避免浮点运算误差
type Product struct {
	ID                 int64     `json:"id,string" db:"id"`
	Title              string    `json:"title" db:"title"`
	Description        string    `json:"description" db:"description"`
	PriceCents         int64     `json:"priceCents" db:"price_cents"`
	OriginalPriceCents *int64    `json:"originalPriceCents,omitempty" db:"original_price_cents"`
	Condition          string    `json:"condition" db:"condition"`
	Status             string    `json:"status" db:"status"`
	CategoryID         int64     `json:"categoryId,string" db:"category_id"`
	SellerID           int64     `json:"sellerId,string" db:"seller_id"`
	PickupLocation     string    `json:"pickupLocation" db:"pickup_location"`
	CampusArea         string    `json:"campusArea" db:"campus_area"`
	IsNegotiable       bool      `json:"isNegotiable" db:"is_negotiable"`
	PickupOnly         bool      `json:"pickupOnly" db:"pickup_only"`
	DeliveryFeeCents   *int64    `json:"deliveryFeeCents,omitempty" db:"delivery_fee_cents"`
	IsFeatured         bool      `json:"isFeatured" db:"is_featured"`
	IsUrgent           bool      `json:"isUrgent" db:"is_urgent"`
	ViewCount          int       `json:"viewCount" db:"view_count"`
	FavoriteCount      int       `json:"favoriteCount" db:"favorite_count"`
	Tags               string    `json:"tags" db:"tags"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAvailable 商品是否可售
func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusActive
}

// DiscountPercent 折扣百分比，未设置原价时为 0
func (p *Product) DiscountPercent() float64 {
	if p.OriginalPriceCents == nil || *p.OriginalPriceCents <= p.PriceCents {
		return 0
	}
	return float64(*p.OriginalPriceCents-p.PriceCents) / float64(*p.OriginalPriceCents) * 100
}

// ProductImage 商品图片
// 图片文件本身存储在对象存储中，这里只记录 URL
type ProductImage struct {
	ID        int64     `json:"id,string" db:"id"`
	ProductID int64     `json:"productId,string" db:"product_id"`
	URL       string    `json:"url" db:"url"`
	AltText   string    `json:"altText" db:"alt_text"`
	IsPrimary bool      `json:"isPrimary" db:"is_primary"`
	SortOrder int       `json:"sortOrder" db:"sort_order"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Favorite 商品收藏
type Favorite struct {
	ID        int64     `json:"id,string" db:"id"`
	UserID    int64     `json:"userId,string" db:"user_id"`
	ProductID int64     `json:"productId,string" db:"product_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
