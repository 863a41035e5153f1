package sql

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage"
	"github.com/jmoiron/sqlx"
)

// WidgetMetadataDao persists widget resource records in the WIDGET_RESOURCE table.
// Every operation acquires its own connection and releases it before returning.
type WidgetMetadataDao struct {
	db      *sqlx.DB
	queries *QueryManager
	log     *slog.Logger
}

var _ storage.WidgetMetadataStore = (*WidgetMetadataDao)(nil)

// NewWidgetMetadataDao creates a DAO over db using the dialect in queries.
func NewWidgetMetadataDao(db *sqlx.DB, queries *QueryManager, log *slog.Logger) *WidgetMetadataDao {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WidgetMetadataDao{db: db, queries: queries, log: log}
}

// InitTable creates the widget resource table unless the existence probe finds it.
func (d *WidgetMetadataDao) InitTable(ctx context.Context) error {
	if d.tableExists(ctx, WidgetResourceTable) {
		return nil
	}
	return d.createWidgetResourceTable(ctx)
}

func (d *WidgetMetadataDao) createWidgetResourceTable(ctx context.Context) error {
	query, err := d.queries.Query(QueryCreateWidgetResourceTable)
	if err != nil {
		return persistenceError(fmt.Sprintf("unable to create the '%s' table", WidgetResourceTable), err)
	}
	err = d.inTx(ctx, query, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query)
		return err
	})
	if err != nil {
		return persistenceError(fmt.Sprintf("unable to create the '%s' table", WidgetResourceTable), err)
	}
	d.log.Info("created widget resource table", "table", WidgetResourceTable, "product", d.queries.Product())
	return nil
}

// tableExists runs the dialect's probe query. Any failure is taken to mean the table
// is absent.
func (d *WidgetMetadataDao) tableExists(ctx context.Context, table string) bool {
	query, err := d.queries.TableCheckQuery(table)
	if err != nil {
		d.log.Debug("table assumed absent, no existence check query", "table", table, "error", err)
		return false
	}
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		d.log.Debug("table assumed absent since its existence check failed",
			"table", table, "query", query, "error", err)
		return false
	}
	closeQuietly(d.log, "result set", rows)
	return true
}

// Insert records widgetID. Registering an id twice fails with domain.ErrAlreadyExists.
func (d *WidgetMetadataDao) Insert(ctx context.Context, widgetID string) error {
	query, err := d.queries.Query(QueryInsertWidget)
	if err != nil {
		return persistenceError(fmt.Sprintf("cannot insert widget id: '%s'", widgetID), err)
	}
	err = d.inTx(ctx, query, func(tx *sqlx.Tx) error {
		return execPrepared(ctx, d.log, tx, query, widgetID)
	})
	if isUniqueViolation(err) {
		return persistenceError(fmt.Sprintf("widget id '%s' is already registered", widgetID), domain.ErrAlreadyExists)
	}
	if err != nil {
		return persistenceError(fmt.Sprintf("cannot insert widget id: '%s'", widgetID), err)
	}
	return nil
}

// List returns every recorded widget id in ascending order.
func (d *WidgetMetadataDao) List(ctx context.Context) ([]string, error) {
	query, err := d.queries.Query(QueryListWidgets)
	if err != nil {
		return nil, persistenceError("cannot list widget ids", err)
	}
	ids := []string{}
	if err := d.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, persistenceError("cannot list widget ids", err)
	}
	return ids, nil
}

// Delete removes the record for widgetID. An unknown id affects no rows and is not an error.
func (d *WidgetMetadataDao) Delete(ctx context.Context, widgetID string) error {
	query, err := d.queries.Query(QueryDeleteWidgetByID)
	if err != nil {
		return persistenceError(fmt.Sprintf("cannot delete widget id: '%s'", widgetID), err)
	}
	err = d.inTx(ctx, query, func(tx *sqlx.Tx) error {
		return execPrepared(ctx, d.log, tx, query, widgetID)
	})
	if err != nil {
		return persistenceError(fmt.Sprintf("cannot delete widget id: '%s'", widgetID), err)
	}
	return nil
}

// inTx runs fn in a transaction, committing on success and rolling back on any failure.
func (d *WidgetMetadataDao) inTx(ctx context.Context, query string, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		rollbackQuietly(d.log, tx)
		d.log.Debug("failed to execute SQL query", "query", query, "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		rollbackQuietly(d.log, tx)
		d.log.Debug("failed to commit SQL query", "query", query, "error", err)
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// execPrepared prepares query on tx, executes it with args and closes the statement.
func execPrepared(ctx context.Context, log *slog.Logger, tx *sqlx.Tx, query string, args ...any) error {
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "prepared statement", stmt)
	_, err = stmt.ExecContext(ctx, args...)
	return err
}
