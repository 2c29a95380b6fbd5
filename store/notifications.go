package store

import "context"

type notificationRepo struct{ s *SQLStore }

const notificationColumns = `id, user_id, title, message, type, is_read, action_url, created_at`

func scanNotification(sc scanner) (Notification, error) {
	var n Notification
	err := sc.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.ActionURL, &n.CreatedAt)
	return n, err
}

func (r notificationRepo) List(ctx context.Context, userID *int64) ([]Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications`
	var args []any
	if userID != nil {
		q += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.s.query(ctx, q, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, n)
	}
	return out, dbError(rows.Err())
}

func (r notificationRepo) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(r.s.queryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &n, nil
}

func (r notificationRepo) Create(ctx context.Context, n *Notification) error {
	now := r.s.now()
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	err := r.s.queryRow(ctx,
		`INSERT INTO notifications (user_id, title, message, type, is_read, action_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.ActionURL, now,
	).Scan(&n.ID)
	if err != nil {
		return dbError(err)
	}
	n.CreatedAt = now
	return nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id int64) error {
	return r.s.execOne(ctx, `UPDATE notifications SET is_read = ? WHERE id = ?`, true, id)
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID *int64) (int64, error) {
	q := `UPDATE notifications SET is_read = ? WHERE is_read = ?`
	args := []any{true, false}
	if userID != nil {
		q += ` AND user_id = ?`
		args = append(args, *userID)
	}
	res, err := r.s.exec(ctx, q, args...)
	if err != nil {
		return 0, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func (r notificationRepo) Delete(ctx context.Context, id int64) error {
	return r.s.execOne(ctx, `DELETE FROM notifications WHERE id = ?`, id)
}
