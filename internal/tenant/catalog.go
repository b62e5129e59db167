package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posrapor/posrapor/internal/shared"
)

// Catalog provides access to the service-owned main database: users, their
// branches, and the register extension table. Branch POS databases are never
// touched from here.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog constructs a catalog repository.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// UserByID loads a user with branches and report permissions.
func (c *Catalog) UserByID(ctx context.Context, id int64) (*User, error) {
	const query = `
		SELECT id, eposta, admin, abonelik_bitis, izinli_raporlar, COALESCE(secili_sube, 0)
		FROM kullanicilar
		WHERE id = $1
	`
	var (
		user    User
		reports []string
		subEnd  *time.Time
	)
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Admin, &subEnd, &reports, &user.SelectedBranch,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if subEnd != nil {
		user.SubscriptionEnd = *subEnd
	}
	user.AllowedReports = AllowedReportsFromCatalog(reports)

	branches, err := c.userBranches(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Branches = branches
	return &user, nil
}

// Credentials holds the login row for a user.
type Credentials struct {
	UserID       int64
	PasswordHash string
}

// CredentialsByEmail fetches the password hash for login verification.
func (c *Catalog) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	const query = `SELECT id, sifre_hash FROM kullanicilar WHERE lower(eposta) = lower($1)`
	var creds Credentials
	err := c.pool.QueryRow(ctx, query, email).Scan(&creds.UserID, &creds.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credentials{}, shared.ErrInvalidCredentials
		}
		return Credentials{}, err
	}
	return creds, nil
}

func (c *Catalog) userBranches(ctx context.Context, userID int64) ([]Branch, error) {
	const query = `
		SELECT id, ad, db_host, COALESCE(db_port, 5432), db_name, db_user, db_sifre,
		       kasa_no, COALESCE(kasalar, '{}'), COALESCE(kapanis_saati, 0)
		FROM subeler
		WHERE kullanici_id = $1
		ORDER BY sira, id
	`
	rows, err := c.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var (
			branch  Branch
			kasalar []int32
		)
		err := rows.Scan(
			&branch.ID, &branch.Name, &branch.DBHost, &branch.DBPort, &branch.DBName,
			&branch.DBUser, &branch.DBPassword, &branch.KasaNo, &kasalar, &branch.ClosingHour,
		)
		if err != nil {
			return nil, err
		}
		for _, kasa := range kasalar {
			branch.Kasalar = append(branch.Kasalar, int(kasa))
		}
		branches = append(branches, branch)
	}
	return branches, rows.Err()
}

// BranchKasalar reads extension registers for a branch. Implements KasaLookup.
func (c *Catalog) BranchKasalar(ctx context.Context, branchID int64) ([]int, error) {
	const query = `SELECT kasa_no FROM sube_kasalari WHERE sube_id = $1 ORDER BY kasa_no`
	rows, err := c.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kasalar []int
	for rows.Next() {
		var kasa int
		if err := rows.Scan(&kasa); err != nil {
			return nil, err
		}
		kasalar = append(kasalar, kasa)
	}
	return kasalar, rows.Err()
}

// UpdateSelectedBranch persists the user's branch selection.
func (c *Catalog) UpdateSelectedBranch(ctx context.Context, userID int64, index int) error {
	const query = `UPDATE kullanicilar SET secili_sube = $2 WHERE id = $1`
	tag, err := c.pool.Exec(ctx, query, userID, index)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastSeen records login activity; warmup jobs use it to pick scopes.
func (c *Catalog) TouchLastSeen(ctx context.Context, userID int64) error {
	const query = `UPDATE kullanicilar SET son_giris = now() WHERE id = $1`
	_, err := c.pool.Exec(ctx, query, userID)
	return err
}

// ActiveUserIDs lists users seen since the given time.
func (c *Catalog) ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	const query = `SELECT id FROM kullanicilar WHERE son_giris >= $1 ORDER BY id`
	rows, err := c.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
