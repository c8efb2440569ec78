package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*models.Post, error)
	Schedule(ctx context.Context, id int64, at time.Time) error
	Claim(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID string, at time.Time) error
	MarkFailed(ctx context.Context, id int64, message string) error
	Remove(ctx context.Context, id int64) (bool, error)
}

// claimTTL outlives the publish task timeout.
const claimTTL = 10 * time.Minute

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, author_id, social_account_id, content, media_url, media_kind, status,
	scheduled_time, published_time, platform_post_id, error_message, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (author_id, social_account_id, content, media_url, media_kind, status, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.AuthorID,
		post.SocialAccountID,
		post.Content,
		post.MediaURL,
		post.MediaKind,
		post.Status,
		post.ScheduledTime,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

// ListForUser returns posts on accounts of every organization the user
// belongs to, newest first.
func (r *postRepository) ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*models.Post, error) {
	query := `
		SELECT p.id, p.author_id, p.social_account_id, p.content, p.media_url, p.media_kind, p.status,
			p.scheduled_time, p.published_time, p.platform_post_id, p.error_message, p.created_at, p.updated_at
		FROM posts p
		JOIN social_accounts sa ON sa.id = p.social_account_id
		JOIN organization_members m ON m.organization_id = sa.organization_id
		WHERE m.user_id = $1
		ORDER BY p.id DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) Schedule(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE posts
		SET status = 'scheduled', scheduled_time = $2, error_message = '', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('published', 'publishing')
	`
	return r.exec(ctx, query, id, at)
}

// Claim moves a post to publishing and reports whether this caller won it.
// A claim older than claimTTL is considered abandoned and can be taken over.
func (r *postRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'publishing', updated_at = NOW()
		WHERE id = $1 AND (status IN ('draft', 'scheduled', 'failed')
			OR (status = 'publishing' AND updated_at < $2))
	`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().Add(-claimTTL))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPublished records the platform identifier. A post is published at most once.
func (r *postRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = 'published', platform_post_id = $2, published_time = $3, error_message = '', updated_at = NOW()
		WHERE id = $1 AND status <> 'published'
	`
	return r.exec(ctx, query, id, platformPostID, at)
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, message string) error {
	query := `
		UPDATE posts
		SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'published'
	`
	return r.exec(ctx, query, id, message)
}

// Remove deletes a post that has not been published and reports whether a
// row was deleted.
func (r *postRepository) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND status NOT IN ('published', 'publishing')`, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *postRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(s scanner) (*models.Post, error) {
	var p models.Post
	var scheduled, published sql.NullTime
	err := s.Scan(&p.ID, &p.AuthorID, &p.SocialAccountID, &p.Content, &p.MediaURL, &p.MediaKind, &p.Status,
		&scheduled, &published, &p.PlatformPostID, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scheduled.Valid {
		p.ScheduledTime = &scheduled.Time
	}
	if published.Valid {
		p.PublishedTime = &published.Time
	}
	return &p, nil
}
