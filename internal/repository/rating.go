package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.market/internal/model"
)

var (
	ErrAlreadyRated = errors.New("transaction already rated")
)

// RatingRepository 用户评分数据访问
// 平均分冗余在用户行上，与评分写入放在同一事务里
type RatingRepository struct {
	db *pgxpool.Pool
}

// NewRatingRepository 创建评分仓库
func NewRatingRepository(db *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create 创建评分并更新被评用户的平均分
func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_ratings
			WHERE rated_user_id = $1 AND rater_id = $2 AND product_id IS NOT DISTINCT FROM $3
		)
	`, rating.RatedUserID, rating.RaterID, rating.ProductID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRated
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO user_ratings (id, rated_user_id, rater_id, score, comment, transaction_type, product_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		rating.ID,
		rating.RatedUserID,
		rating.RaterID,
		rating.Score,
		rating.Comment,
		rating.TransactionType,
		rating.ProductID,
	).Scan(&rating.CreatedAt)
	if err != nil {
		return err
	}

	// 增量更新平均分: (avg*n + score) / (n+1)
	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET average_rating = (average_rating * total_ratings + $2) / (total_ratings + 1),
		    total_ratings = total_ratings + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, rating.RatedUserID, rating.Score); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListForUser 用户收到的评分，按时间倒序
func (r *RatingRepository) ListForUser(ctx context.Context, ratedUserID int64, limit, offset int) ([]*model.Rating, error) {
	query := `
		SELECT id, rated_user_id, rater_id, score, comment, transaction_type, product_id, created_at
		FROM user_ratings
		WHERE rated_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, ratedUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []*model.Rating
	for rows.Next() {
		rating := &model.Rating{}
		err := rows.Scan(
			&rating.ID,
			&rating.RatedUserID,
			&rating.RaterID,
			&rating.Score,
			&rating.Comment,
			&rating.TransactionType,
			&rating.ProductID,
			&rating.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}
