package repo

import (
	"context"
	"database/sql"

	"asistenku/internal/domain"
)

const userColumns = `id, role, name, email, whatsapp, company, keahlian, domisili, internal_role, partner_level, status, created_at, updated_at`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var email, whatsapp, company, keahlian, domisili, internalRole, partnerLevel sql.NullString
	err := scan(&u.ID, &u.Role, &u.Name, &email, &whatsapp, &company, &keahlian, &domisili, &internalRole, &partnerLevel, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Email = email.String
	u.Whatsapp = whatsapp.String
	u.Company = company.String
	u.Keahlian = keahlian.String
	u.Domisili = domisili.String
	u.InternalRole = internalRole.String
	u.PartnerLevel = partnerLevel.String
	return u, nil
}

func (r Repo) InsertUserTx(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Role, u.Name, nullable(u.Email), nullable(u.Whatsapp), nullable(u.Company), nullable(u.Keahlian),
		nullable(u.Domisili), nullable(u.InternalRole), nullable(u.PartnerLevel), u.Status, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row.Scan)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row.Scan)
}

type UserFilters struct {
	Role   string
	Status string
	Limit  int
}

func (r Repo) ListUsers(ctx context.Context, f UserFilters) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any
	if f.Role != "" {
		query += ` AND role=?`
		args = append(args, f.Role)
	}
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) UpdateUserStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
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

func (r Repo) UpdateUserPartnerLevelTx(ctx context.Context, tx *sql.Tx, id, level, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET partner_level=?, updated_at=? WHERE id=?`, level, updatedAt, id)
	if err != nil {
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

// SuperadminExists reports whether the one-time superadmin claim has
// already happened.
func (r Repo) SuperadminExists(ctx context.Context) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=?`, domain.RoleSuperadmin).Scan(&n)
	return n > 0, err
}
