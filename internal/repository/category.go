package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.market/internal/model"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryRepository 商品分类数据访问
type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository 创建分类仓库
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, slug, description, icon, parent_id, is_active, created_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	category := &model.Category{}
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.Icon,
		&category.ParentID,
		&category.IsActive,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetByID 根据 ID 获取分类
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM product_categories WHERE id = $1`
	category, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetBySlug 根据 slug 获取分类
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM product_categories WHERE slug = $1`
	category, err := scanCategory(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// ListActive 列出启用的分类
func (r *CategoryRepository) ListActive(ctx context.Context) ([]*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM product_categories WHERE is_active = TRUE ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}
