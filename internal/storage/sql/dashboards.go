package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage"
	"github.com/jmoiron/sqlx"
)

var _ storage.DashboardProvider = (*Store)(nil)

type dashboardRow struct {
	domain.DashboardMetadata
	Content string `db:"content"`
}

func getDashboard(ctx context.Context, db dbInterface, url string) (*domain.DashboardMetadata, error) {
	var row dashboardRow
	err := db.GetContext(ctx, &row, db.Rebind(
		`SELECT url, name, description, owner, landing_page, content FROM dashboards WHERE url = ?`), url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	dashboard := row.DashboardMetadata
	if err := json.Unmarshal([]byte(row.Content), &dashboard.Content); err != nil {
		return nil, fmt.Errorf("decoding content of dashboard %s: %w", url, err)
	}
	return &dashboard, nil
}

func isSharedWith(ctx context.Context, db dbInterface, url, username string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, db.Rebind(
		`SELECT COUNT(*) FROM dashboard_shares WHERE dashboard_url = ? AND username = ?`), url, username)
	return count > 0, err
}

// GetDashboardByUser implements storage.DashboardProvider. The owner and users the
// dashboard is shared with may view it.
func (s *Store) GetDashboardByUser(ctx context.Context, username, dashboardURL string) (*domain.DashboardMetadata, error) {
	dashboard, err := getDashboard(ctx, s.db, dashboardURL)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewError(domain.KindDashboard, fmt.Sprintf("cannot retrieve dashboard '%s'", dashboardURL), err)
	}
	if dashboard.Owner == username {
		return dashboard, nil
	}
	shared, err := isSharedWith(ctx, s.db, dashboardURL, username)
	if err != nil {
		return nil, domain.NewError(domain.KindDashboard, fmt.Sprintf("cannot check access to dashboard '%s'", dashboardURL), err)
	}
	if !shared {
		return nil, domain.ErrUnauthorized
	}
	return dashboard, nil
}

// SaveDashboard inserts or replaces a dashboard.
func (s *Store) SaveDashboard(ctx context.Context, dashboard *domain.DashboardMetadata) error {
	content, err := json.Marshal(dashboard.Content)
	if err != nil {
		return fmt.Errorf("encoding dashboard content: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError("cannot save dashboard", err)
	}
	if err := saveDashboard(ctx, tx, dashboard, string(content)); err != nil {
		rollbackQuietly(s.log, tx)
		return persistenceError(fmt.Sprintf("cannot save dashboard '%s'", dashboard.URL), err)
	}
	if err := tx.Commit(); err != nil {
		return persistenceError(fmt.Sprintf("cannot save dashboard '%s'", dashboard.URL), err)
	}
	return nil
}

func saveDashboard(ctx context.Context, tx *sqlx.Tx, dashboard *domain.DashboardMetadata, content string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM dashboards WHERE url = ?`), dashboard.URL); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO dashboards (url, name, description, owner, landing_page, content) VALUES (?, ?, ?, ?, ?, ?)`),
		dashboard.URL, dashboard.Name, dashboard.Description, dashboard.Owner, dashboard.Landing, content)
	return err
}

// ShareDashboard lets username view the dashboard. Sharing twice is a no-op.
func (s *Store) ShareDashboard(ctx context.Context, dashboardURL, username string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO dashboard_shares (dashboard_url, username) VALUES (?, ?)`), dashboardURL, username)
	if err != nil && !isUniqueViolation(err) {
		return persistenceError(fmt.Sprintf("cannot share dashboard '%s'", dashboardURL), err)
	}
	return nil
}
