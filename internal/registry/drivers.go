// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package registry

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/nakagami/firebirdsql"
)

// Supported database drivers
const (
	DriverFirebird = "firebirdsql"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// Options describe how to reach the Easyfatt database.
type Options struct {
	Driver   string
	Filename string
	DSN      string
	Host     string
	User     string
	Password string
}

// DataSource returns the driver specific data source name. An explicit DSN always wins.
// Firebird and SQLite sources can be built from the database file name.
func (o Options) DataSource() (string, error) {
	dsn := strings.TrimSpace(o.DSN)
	switch o.Driver {
	case DriverFirebird:
		if dsn != "" {
			return dsn, nil
		}
		if o.Filename == "" {
			return "", fmt.Errorf("database filename or dsn is required for %s", o.Driver)
		}
		return fmt.Sprintf("%s@%s/%s", url.UserPassword(o.User, o.Password).String(), o.Host,
			filepath.ToSlash(o.Filename)), nil
	case DriverSQLite:
		if dsn != "" {
			return dsn, nil
		}
		if o.Filename == "" {
			return "", fmt.Errorf("database filename or dsn is required for %s", o.Driver)
		}
		return "file:" + filepath.ToSlash(o.Filename) + "?mode=ro", nil
	case DriverMySQL:
		if dsn == "" {
			return "", fmt.Errorf("database dsn is required for %s", o.Driver)
		}
		// the queries use double quoted identifiers
		if strings.Contains(dsn, "sql_mode") {
			return dsn, nil
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + "sql_mode=%27ANSI_QUOTES%27", nil
	case DriverPostgres:
		if dsn == "" {
			return "", fmt.Errorf("database dsn is required for %s", o.Driver)
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", o.Driver)
	}
}
