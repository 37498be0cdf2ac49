package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.market/internal/model"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository 商品数据访问
type ProductRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, title, description, price_cents, original_price_cents, condition, status,
		category_id, seller_id, pickup_location, campus_area, is_negotiable, pickup_only,
		delivery_fee_cents, is_featured, is_urgent, view_count, favorite_count, tags,
		created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	product := &model.Product{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.PriceCents,
		&product.OriginalPriceCents,
		&product.Condition,
		&product.Status,
		&product.CategoryID,
		&product.SellerID,
		&product.PickupLocation,
		&product.CampusArea,
		&product.IsNegotiable,
		&product.PickupOnly,
		&product.DeliveryFeeCents,
		&product.IsFeatured,
		&product.IsUrgent,
		&product.ViewCount,
		&product.FavoriteCount,
		&product.Tags,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create 创建商品
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (id, title, description, price_cents, original_price_cents, condition, status,
			category_id, seller_id, pickup_location, campus_area, is_negotiable, pickup_only,
			delivery_fee_cents, is_urgent, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.PriceCents,
		product.OriginalPriceCents,
		product.Condition,
		product.Status,
		product.CategoryID,
		product.SellerID,
		product.PickupLocation,
		product.CampusArea,
		product.IsNegotiable,
		product.PickupOnly,
		product.DeliveryFeeCents,
		product.IsUrgent,
		product.Tags,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
}

// GetByID 根据 ID 获取商品
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// Update 更新商品信息
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	query := `
		UPDATE products
		SET title = $2, description = $3, price_cents = $4, original_price_cents = $5,
		    condition = $6, category_id = $7, pickup_location = $8, campus_area = $9,
		    is_negotiable = $10, pickup_only = $11, delivery_fee_cents = $12,
		    is_urgent = $13, tags = $14, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.PriceCents,
		product.OriginalPriceCents,
		product.Condition,
		product.CategoryID,
		product.PickupLocation,
		product.CampusArea,
		product.IsNegotiable,
		product.PickupOnly,
		product.DeliveryFeeCents,
		product.IsUrgent,
		product.Tags,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// UpdateStatus 更新商品状态
func (r *ProductRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.Exec(ctx, `UPDATE products SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// IncrementViewCount 浏览数 +1
func (r *ProductRepository) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE products SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

// SearchFilter 商品搜索条件
type SearchFilter struct {
	Keyword       string
	CategoryID    int64
	SellerID      int64
	MinPriceCents int64
	MaxPriceCents int64
	Condition     string
	Status        string
	Limit         int
	Offset        int
}

// Search 搜索商品
// 条件为零值时不参与过滤；默认只返回在售商品
func (r *ProductRepository) Search(ctx context.Context, filter *SearchFilter) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}
	idx := 1

	status := filter.Status
	if status == "" {
		status = model.ProductStatusActive
	}
	query += fmt.Sprintf(" AND status = $%d", idx)
	args = append(args, status)
	idx++

	if filter.Keyword != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d OR tags ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+filter.Keyword+"%")
		idx++
	}
	if filter.CategoryID > 0 {
		query += fmt.Sprintf(" AND category_id = $%d", idx)
		args = append(args, filter.CategoryID)
		idx++
	}
	if filter.SellerID > 0 {
		query += fmt.Sprintf(" AND seller_id = $%d", idx)
		args = append(args, filter.SellerID)
		idx++
	}
	if filter.MinPriceCents > 0 {
		query += fmt.Sprintf(" AND price_cents >= $%d", idx)
		args = append(args, filter.MinPriceCents)
		idx++
	}
	if filter.MaxPriceCents > 0 {
		query += fmt.Sprintf(" AND price_cents <= $%d", idx)
		args = append(args, filter.MaxPriceCents)
		idx++
	}
	if filter.Condition != "" {
		query += fmt.Sprintf(" AND condition = $%d", idx)
		args = append(args, filter.Condition)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY is_featured DESC, created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// AddImage 添加商品图片
// 设为主图时同一事务内先清掉旧主图
func (r *ProductRepository) AddImage(ctx context.Context, image *model.ProductImage) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if image.IsPrimary {
		if _, err := tx.Exec(ctx, `
			UPDATE product_images SET is_primary = FALSE
			WHERE product_id = $1 AND is_primary = TRUE
		`, image.ProductID); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO product_images (id, product_id, url, alt_text, is_primary, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		image.ID,
		image.ProductID,
		image.URL,
		image.AltText,
		image.IsPrimary,
		image.SortOrder,
	).Scan(&image.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListImages 商品图片列表，主图优先
func (r *ProductRepository) ListImages(ctx context.Context, productID int64) ([]*model.ProductImage, error) {
	query := `
		SELECT id, product_id, url, alt_text, is_primary, sort_order, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, sort_order ASC
	`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*model.ProductImage
	for rows.Next() {
		image := &model.ProductImage{}
		err := rows.Scan(
			&image.ID,
			&image.ProductID,
			&image.URL,
			&image.AltText,
			&image.IsPrimary,
			&image.SortOrder,
			&image.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
