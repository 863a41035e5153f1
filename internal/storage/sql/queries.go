package sql

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Product is a database product whose SQL dialect the queries are written for.
type Product string

const (
	ProductSQLite     Product = "SQLite"
	ProductPostgreSQL Product = "PostgreSQL"
	ProductMySQL      Product = "MySQL"
)

// WidgetResourceTable is the table recording widget resources.
const WidgetResourceTable = "WIDGET_RESOURCE"

// Query keys.
const (
	QueryTableCheck                = "TABLE_CHECK"
	QueryCreateWidgetResourceTable = "CREATE_WIDGET_RESOURCE_TABLE"
	QueryInsertWidget              = "INSERT_WIDGET"
	QueryListWidgets               = "LIST_WIDGETS"
	QueryDeleteWidgetByID          = "DELETE_WIDGET_BY_ID"
)

// TableNamePlaceholder is replaced with the probed table in QueryTableCheck.
const TableNamePlaceholder = "{{TABLE_NAME}}"

var driverProducts = map[string]Product{
	"sqlite3":  ProductSQLite,
	"postgres": ProductPostgreSQL,
	"pgx":      ProductPostgreSQL,
	"mysql":    ProductMySQL,
}

// Queries are written with '?' bind vars and rebound for the driver.
var dialectQueries = map[Product]map[string]string{
	ProductSQLite: {
		QueryTableCheck:                "SELECT 1 FROM {{TABLE_NAME}} LIMIT 1",
		QueryCreateWidgetResourceTable: "CREATE TABLE WIDGET_RESOURCE (ID VARCHAR(255) NOT NULL, PRIMARY KEY (ID))",
		QueryInsertWidget:              "INSERT INTO WIDGET_RESOURCE (ID) VALUES (?)",
		QueryListWidgets:               "SELECT ID FROM WIDGET_RESOURCE ORDER BY ID",
		QueryDeleteWidgetByID:          "DELETE FROM WIDGET_RESOURCE WHERE ID = ?",
	},
	ProductPostgreSQL: {
		QueryTableCheck:                "SELECT 1 FROM {{TABLE_NAME}} LIMIT 1",
		QueryCreateWidgetResourceTable: "CREATE TABLE WIDGET_RESOURCE (ID VARCHAR(255) NOT NULL, PRIMARY KEY (ID))",
		QueryInsertWidget:              "INSERT INTO WIDGET_RESOURCE (ID) VALUES (?)",
		QueryListWidgets:               "SELECT ID FROM WIDGET_RESOURCE ORDER BY ID",
		QueryDeleteWidgetByID:          "DELETE FROM WIDGET_RESOURCE WHERE ID = ?",
	},
	ProductMySQL: {
		QueryTableCheck:                "SELECT 1 FROM {{TABLE_NAME}} LIMIT 1",
		QueryCreateWidgetResourceTable: "CREATE TABLE WIDGET_RESOURCE (ID VARCHAR(255) NOT NULL, PRIMARY KEY (ID)) ENGINE=InnoDB",
		QueryInsertWidget:              "INSERT INTO WIDGET_RESOURCE (ID) VALUES (?)",
		QueryListWidgets:               "SELECT ID FROM WIDGET_RESOURCE ORDER BY ID",
		QueryDeleteWidgetByID:          "DELETE FROM WIDGET_RESOURCE WHERE ID = ?",
	},
}

// QueryManager resolves dialect-specific SQL for one database product.
type QueryManager struct {
	driver  string
	product Product
	queries map[string]string
}

// NewQueryManager returns the query set for the product behind a sqlx driver name.
func NewQueryManager(driver string) (*QueryManager, error) {
	product, ok := driverProducts[driver]
	if !ok {
		return nil, persistenceError(fmt.Sprintf("no SQL dialect for database driver %q", driver), nil)
	}
	return &QueryManager{driver: driver, product: product, queries: dialectQueries[product]}, nil
}

// Product returns the database product the queries target.
func (m *QueryManager) Product() Product {
	return m.product
}

// Query returns the query for key with bind vars in the driver's style.
func (m *QueryManager) Query(key string) (string, error) {
	q, ok := m.queries[key]
	if !ok {
		return "", fmt.Errorf("query %s is not defined for %s", key, m.product)
	}
	return sqlx.Rebind(sqlx.BindType(m.driver), q), nil
}

// TableCheckQuery returns the existence probe for table.
func (m *QueryManager) TableCheckQuery(table string) (string, error) {
	q, err := m.Query(QueryTableCheck)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(q, TableNamePlaceholder, table), nil
}
