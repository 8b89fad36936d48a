package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// AuditRepo appends to and reads the audit_logs table.  It has no
// update or delete methods.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// InsertTx appends a inside the caller's transaction.
func (r *AuditRepo) InsertTx(ctx context.Context, tx *sql.Tx, a model.AuditLog) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO audit_logs (id,actor_id,action,target_id,target_type,metadata,ip_address,user_agent,created_at) VALUES (?,?,?,?,?,?,?,?,?)",
		a.ID, a.ActorID, a.Action, a.TargetID, a.TargetType, meta, a.IPAddress, a.UserAgent, a.CreatedAt)
	return err
}

// AuditFilter narrows List.
type AuditFilter struct {
	ActorID  string
	Action   string
	TargetID string
	Page     Page
}

// List returns one page of entries, newest first, and the total count.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditLog, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.ActorID != "" {
		where = append(where, "actor_id=?")
		args = append(args, f.ActorID)
	}
	if f.Action != "" {
		where = append(where, "action=?")
		args = append(args, f.Action)
	}
	if f.TargetID != "" {
		where = append(where, "target_id=?")
		args = append(args, f.TargetID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,actor_id,action,target_id,target_type,metadata,ip_address,user_agent,created_at FROM audit_logs WHERE "+
			cond+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.AuditLog{}
	for rows.Next() {
		var (
			a                    model.AuditLog
			targetID, targetType sql.NullString
			ip, ua               sql.NullString
			meta                 []byte
		)
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &targetID, &targetType, &meta, &ip, &ua, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.TargetID = nullString(targetID)
		a.TargetType = nullString(targetType)
		a.IPAddress = nullString(ip)
		a.UserAgent = nullString(ua)
		a.Metadata = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
