package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"gmb_sync/internal/domain"
)

// Open returns a pooled *sqlx.DB: 10 max open, 5 idle, 30 minute lifetime.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

type Repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) *Repo { return &Repo{db: db} }

// ---- job inputs ----

func (r *Repo) ListLocationBridges(ctx context.Context) ([]domain.LocationBridge, error) {
	var out []domain.LocationBridge
	if err := r.db.SelectContext(ctx, &out, listBridgesSQL); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetCredential(ctx context.Context, organizationID int64, sub string) (domain.Credential, error) {
	var c domain.Credential
	if err := r.db.GetContext(ctx, &c, getCredentialSQL, organizationID, sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, domain.ErrNotFound
		}
		return domain.Credential{}, err
	}
	return c, nil
}

// ---- locations ----

func (r *Repo) GetLocation(ctx context.Context, id string) (domain.Row, error) {
	raw := map[string]any{}
	if err := r.db.QueryRowxContext(ctx, getLocationSQL, id).MapScan(raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decodeRow(locationReadCols, raw), nil
}

func (r *Repo) InsertLocation(ctx context.Context, row domain.Row) error {
	args, err := encodeArgs(locationInsertCols, row)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertLocationSQL, args...)
	return err
}

func (r *Repo) UpdateLocation(ctx context.Context, id string, row domain.Row) error {
	args, err := encodeArgs(locationUpdateCols, row)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, updateLocationSQL, append(args, id)...)
	return err
}

// ---- reviews ----

func (r *Repo) ListReviews(ctx context.Context, gmbID string) ([]domain.Row, error) {
	rows, err := r.db.QueryxContext(ctx, listReviewsSQL, gmbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		raw := map[string]any{}
		if err := rows.MapScan(raw); err != nil {
			return nil, err
		}
		out = append(out, decodeRow(reviewReadCols, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) InsertReview(ctx context.Context, row domain.Row) error {
	args, err := encodeArgs(reviewInsertCols, row)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertReviewSQL, args...)
	return err
}

func (r *Repo) UpdateReview(ctx context.Context, id string, row domain.Row) error {
	args, err := encodeArgs(reviewUpdateCols, row)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, updateReviewSQL, append(args, id)...)
	return err
}

func (r *Repo) CountLiveReviews(ctx context.Context, gmbID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, countLiveReviewsSQL, gmbID)
	return n, err
}

// ---- history and notifications ----

func (r *Repo) InsertHistory(ctx context.Context, hs []domain.HistoryEntry) error {
	if len(hs) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx, insertHistorySQL, hs)
	return err
}

func (r *Repo) InsertNotifications(ctx context.Context, ns []domain.NotificationEntry) error {
	if len(ns) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx, insertNotificationsSQL, ns)
	return err
}

func (r *Repo) UserIDsByOrganization(ctx context.Context, organizationID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, userIDsByOrganizationSQL, organizationID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repo) NotificationTypeID(ctx context.Context, key string) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, notificationTypeIDSQL, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// ---- row codec ----

func decodeRow(cols []domain.Field, raw map[string]any) domain.Row {
	out := make(domain.Row, len(cols))
	for _, c := range cols {
		out[c.Name] = domain.DecodeColumn(c.Kind, raw[c.Name])
	}
	return out
}

func encodeArgs(cols []domain.Field, row domain.Row) ([]any, error) {
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		v, err := domain.EncodeColumn(c.Kind, row[c.Name])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}
