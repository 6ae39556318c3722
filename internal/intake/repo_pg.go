package intake

import (
	"context"
	"database/sql"
)

// PGRepo implements SubmissionRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Append inserts a submission row.
func (r *PGRepo) Append(ctx context.Context, sub Submission) error {
	const query = `
INSERT INTO submissions (
    id,
    received_at,
    client_name,
    policy_number,
    insurance_company,
    address,
    client_phone,
    agent_email,
    folder_key,
    folder_url,
    photo_count,
    status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	status := sub.Status
	if status == "" {
		status = StatusReceived
	}
	_, err := r.DB.ExecContext(
		ctx,
		query,
		sub.ID,
		sub.ReceivedAt,
		sub.ClientName,
		sub.PolicyNumber,
		sub.InsuranceCompany,
		sub.Address,
		sub.ClientPhone,
		sub.AgentEmail,
		sub.FolderKey,
		sub.FolderURL,
		sub.PhotoCount,
		status,
	)
	return err
}

// List returns the latest submissions.
func (r *PGRepo) List(ctx context.Context, limit int) ([]Submission, error) {
	const query = `
SELECT id, received_at, client_name, policy_number, insurance_company, address, client_phone, agent_email, folder_key, folder_url, photo_count, status
FROM submissions
ORDER BY received_at DESC
LIMIT $1`

	rows, err := r.DB.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(
			&sub.ID,
			&sub.ReceivedAt,
			&sub.ClientName,
			&sub.PolicyNumber,
			&sub.InsuranceCompany,
			&sub.Address,
			&sub.ClientPhone,
			&sub.AgentEmail,
			&sub.FolderKey,
			&sub.FolderURL,
			&sub.PhotoCount,
			&sub.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

var _ SubmissionRepo = (*PGRepo)(nil)
