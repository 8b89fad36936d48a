package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// NotificationRepo persists notifications addressed to users.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = "id,user_id,title,message,type,is_read,read_at,created_at"

func scanNotification(sc rowScanner) (model.Notification, error) {
	var (
		n      model.Notification
		typ    string
		readAt sql.NullTime
	)
	if err := sc.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
		return model.Notification{}, err
	}
	n.Type = model.NotificationType(typ)
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}

// InsertTx inserts n inside the caller's transaction.
func (r *NotificationRepo) InsertTx(ctx context.Context, tx *sql.Tx, n model.Notification) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO notifications (id,user_id,title,message,type,is_read,read_at,created_at) VALUES (?,?,?,?,?,?,?,?)",
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead, n.ReadAt, n.CreatedAt)
	return err
}

// GetByID returns the notification or ErrNotFound.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (model.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id=? LIMIT 1", id))
	return n, notFound(err)
}

// ListByUser returns one page of the user's notifications, newest first,
// and the total count.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, page Page) ([]model.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// CountUnread returns the number of unread notifications of userID.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=0", userID).Scan(&n)
	return n, err
}

// MarkRead flags the notification read.  The user_id predicate keeps the
// write scoped to the owner even if a caller skipped the ownership check.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1, read_at=COALESCE(read_at, ?) WHERE id=? AND user_id=?",
		at, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
