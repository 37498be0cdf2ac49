package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.market/internal/model"
)

var (
	ErrAlreadyFavorited = errors.New("product already favorited")
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// FavoriteRepository 商品收藏数据访问
// 收藏数冗余在商品行上，增删收藏与计数更新放在同一事务里
type FavoriteRepository struct {
	db *pgxpool.Pool
}

// NewFavoriteRepository 创建收藏仓库
func NewFavoriteRepository(db *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add 收藏商品
func (r *FavoriteRepository) Add(ctx context.Context, favorite *model.Favorite) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM product_favorites WHERE user_id = $1 AND product_id = $2)
	`, favorite.UserID, favorite.ProductID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyFavorited
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO product_favorites (id, user_id, product_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, favorite.ID, favorite.UserID, favorite.ProductID).Scan(&favorite.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET favorite_count = favorite_count + 1 WHERE id = $1
	`, favorite.ProductID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Remove 取消收藏
func (r *FavoriteRepository) Remove(ctx context.Context, userID, productID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		DELETE FROM product_favorites WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrFavoriteNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET favorite_count = GREATEST(favorite_count - 1, 0) WHERE id = $1
	`, productID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Exists 是否已收藏
func (r *FavoriteRepository) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM product_favorites WHERE user_id = $1 AND product_id = $2)
	`, userID, productID).Scan(&exists)
	return exists, err
}

// ListProducts 用户收藏的商品列表，按收藏时间倒序
func (r *FavoriteRepository) ListProducts(ctx context.Context, userID int64, limit, offset int) ([]*model.Product, error) {
	query := `
		SELECT p.id, p.title, p.description, p.price_cents, p.original_price_cents, p.condition, p.status,
			p.category_id, p.seller_id, p.pickup_location, p.campus_area, p.is_negotiable, p.pickup_only,
			p.delivery_fee_cents, p.is_featured, p.is_urgent, p.view_count, p.favorite_count, p.tags,
			p.created_at, p.updated_at
		FROM product_favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
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
