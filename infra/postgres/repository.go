package postgres

import (
	"context"
	"database/sql"
	"discussion/domain"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqForeignKeyViolation  = "23503"
	pqInvalidTextRepresent = "22P02"
)

type PgRepository struct {
	db *sqlx.DB
}

func NewPgRepository(dsn string) *PgRepository {
	db := sqlx.MustConnect("postgres", dsn)
	configurePool(db)

	return &PgRepository{db: db}
}

// Open is NewPgRepository without the panic.
func Open(dsn string) (*PgRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	configurePool(db)

	return &PgRepository{db: db}, nil
}

func configurePool(db *sqlx.DB) {
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
}

func (r *PgRepository) Close() error {
	return r.db.Close()
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetPoolStats returns current connection pool statistics
func (r *PgRepository) GetPoolStats() map[string]any {
	stats := r.db.Stats()
	return map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// translate turns references to rows that do not exist into sql.ErrNoRows.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation, pqInvalidTextRepresent:
			return fmt.Errorf("%w: %s", sql.ErrNoRows, pqErr.Message)
		}
	}
	return err
}

func (r *PgRepository) CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	var c domain.Comment
	query := `
		INSERT INTO comments (
			content_id, content_kind, author_id, parent_comment_id, body
		) VALUES (
			:content_id, :content_kind, :author_id, :parent_comment_id, :body
		) RETURNING *`

	rows, err := r.db.NamedQueryContext(ctx, query, comment)
	if err != nil {
		return c, translate(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return c, translate(err)
		}
		return c, fmt.Errorf("insert comment: no row returned")
	}
	if err := rows.StructScan(&c); err != nil {
		return c, err
	}
	return c, nil
}

func (r *PgRepository) GetCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	var c domain.Comment
	query := `SELECT * FROM comments WHERE id = $1`

	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return c, translate(err)
	}
	return c, nil
}

func (r *PgRepository) UpdateComment(ctx context.Context, id, authorID, body string) (domain.Comment, error) {
	var c domain.Comment
	query := `
		UPDATE comments
		SET body = $3, is_edited = TRUE, updated_at = clock_timestamp()
		WHERE id = $1 AND author_id = $2 AND NOT is_deleted
		RETURNING *`

	if err := r.db.GetContext(ctx, &c, query, id, authorID, body); err != nil {
		return c, translate(err)
	}
	return c, nil
}

func (r *PgRepository) SoftDeleteComment(ctx context.Context, id, authorID string) (bool, error) {
	query := `
		UPDATE comments
		SET is_deleted = TRUE, body = '', updated_at = clock_timestamp()
		WHERE id = $1 AND author_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, authorID)
	if err != nil {
		if errors.Is(translate(err), sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PgRepository) ListCommentsByContentID(ctx context.Context, contentID, callerID string) ([]domain.CommentWithAuthor, error) {
	comments := make([]domain.CommentWithAuthor, 0)
	query := `
		SELECT
			c.*,
			COALESCE(u.id, c.author_id) AS "author.user_id",
			COALESCE(u.username, '')    AS "author.username",
			u.display_name              AS "author.display_name",
			u.profile_picture_url       AS "author.profile_picture_url",
			(SELECT COUNT(*) FROM comment_upvotes v WHERE v.comment_id = c.id) AS upvote_count,
			EXISTS (
				SELECT 1 FROM comment_upvotes v WHERE v.comment_id = c.id AND v.user_id = $2
			) AS has_user_upvoted
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.content_id = $1
		ORDER BY c.created_at, c.seq`

	if err := r.db.SelectContext(ctx, &comments, query, contentID, callerID); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *PgRepository) AddUpvote(ctx context.Context, commentID, userID string) (bool, error) {
	query := `
		INSERT INTO comment_upvotes (comment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (comment_id, user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		return false, translate(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PgRepository) RemoveUpvote(ctx context.Context, commentID, userID string) (bool, error) {
	query := `DELETE FROM comment_upvotes WHERE comment_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		if errors.Is(translate(err), sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PgRepository) CountUpvotes(ctx context.Context, commentID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM comment_upvotes WHERE comment_id = $1`

	if err := r.db.GetContext(ctx, &count, query, commentID); err != nil {
		return 0, translate(err)
	}
	return count, nil
}

const userColumns = `u.id, u.username, u.display_name, u.email, u.profile_picture_url`

func (r *PgRepository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return u, err
	}
	return u, nil
}

func (r *PgRepository) GetUsersByUsernames(ctx context.Context, usernames []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(usernames))
	if len(usernames) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users u WHERE u.username = ANY($1) ORDER BY u.username`

	if err := r.db.SelectContext(ctx, &users, query, pq.Array(usernames)); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PgRepository) ListParticipants(ctx context.Context, contentID string) ([]domain.User, error) {
	users := make([]domain.User, 0)
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN (
			SELECT user_id, MIN(joined_at) AS joined_at
			FROM (
				SELECT user_id, joined_at FROM content_participants WHERE content_id = $1
				UNION ALL
				SELECT author_id, created_at FROM comments WHERE content_id = $1
			) seen
			GROUP BY user_id
		) p ON p.user_id = u.id
		ORDER BY p.joined_at, u.username`

	if err := r.db.SelectContext(ctx, &users, query, contentID); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PgRepository) AddParticipant(ctx context.Context, contentID, userID string) error {
	query := `
		INSERT INTO content_participants (content_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (content_id, user_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, contentID, userID)
	return translate(err)
}

// UpsertUser mirrors a user from the identity provider into the directory.
func (r *PgRepository) UpsertUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (id, username, display_name, email, profile_picture_url)
		VALUES (:id, :username, :display_name, :email, :profile_picture_url)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			profile_picture_url = EXCLUDED.profile_picture_url`

	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

type notificationRow struct {
	domain.Notification
	RawMetadata []byte `db:"metadata"`
}

func (r *PgRepository) InsertNotification(ctx context.Context, notification domain.Notification) (domain.Notification, error) {
	metadata, err := json.Marshal(notification.Metadata)
	if err != nil {
		return notification, fmt.Errorf("marshal notification metadata: %w", err)
	}
	if notification.Metadata == nil {
		metadata = []byte("{}")
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at`

	row := r.db.QueryRowxContext(ctx, query,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		metadata,
	)
	if err := row.Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt); err != nil {
		return notification, err
	}
	return notification, nil
}

func (r *PgRepository) DeleteNotificationsByCommentID(ctx context.Context, commentID string) (int64, error) {
	query := `DELETE FROM notifications WHERE metadata ->> 'commentId' = $1`

	result, err := r.db.ExecContext(ctx, query, commentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PgRepository) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows := make([]notificationRow, 0)
	query := `
		SELECT id, user_id, type, title, message, metadata, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		n := row.Notification
		if err := json.Unmarshal(row.RawMetadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal notification metadata: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
