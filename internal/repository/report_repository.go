package repository

import (
	"context"
	"database/sql"
)

// ReportRepo computes the admin overview aggregates.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a new ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// DepartmentCount is the number of requests filed against a department.
type DepartmentCount struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Requests     int    `json:"requests"`
}

// StatusCount is the number of requests in a status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthlyRevenue is the sum of paid payments in a calendar month (YYYY-MM).
type MonthlyRevenue struct {
	Month        string `json:"month"`
	RevenueCents int64  `json:"revenue_cents"`
}

// Overview bundles the report sections.
type Overview struct {
	ByDepartment []DepartmentCount `json:"requests_by_department"`
	ByStatus     []StatusCount     `json:"requests_by_status"`
	Revenue      []MonthlyRevenue  `json:"monthly_revenue"`
}

// Overview runs the three report queries.  Revenue covers the last
// twelve months of settled payments.
func (r *ReportRepo) Overview(ctx context.Context) (Overview, error) {
	var out Overview

	rows, err := r.db.QueryContext(ctx, `SELECT d.id, d.name, COUNT(r.id)
FROM departments d
LEFT JOIN services s ON s.department_id = d.id
LEFT JOIN requests r ON r.service_id = s.id AND r.deleted_at IS NULL
GROUP BY d.id, d.name
ORDER BY d.name`)
	if err != nil {
		return out, err
	}
	out.ByDepartment = []DepartmentCount{}
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.DepartmentID, &dc.Name, &dc.Requests); err != nil {
			rows.Close()
			return out, err
		}
		out.ByDepartment = append(out.ByDepartment, dc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM requests WHERE deleted_at IS NULL GROUP BY status ORDER BY status")
	if err != nil {
		return out, err
	}
	out.ByStatus = []StatusCount{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			rows.Close()
			return out, err
		}
		out.ByStatus = append(out.ByStatus, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT DATE_FORMAT(payment_date, '%Y-%m') AS month, SUM(amount_cents)
FROM payments
WHERE status = 'paid' AND payment_date >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL 12 MONTH)
GROUP BY month
ORDER BY month`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	out.Revenue = []MonthlyRevenue{}
	for rows.Next() {
		var mr MonthlyRevenue
		if err := rows.Scan(&mr.Month, &mr.RevenueCents); err != nil {
			return out, err
		}
		out.Revenue = append(out.Revenue, mr)
	}
	return out, rows.Err()
}
