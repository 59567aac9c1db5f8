package mysql

import (
	"fmt"
	"github.com/go-sql-driver/mysql"
	"github.com/oniti/migrations/internal/database"
	"github.com/pkg/errors"
)

const (
	DriverName     = "mysql"
	DefaultCharset = "utf8mb4"

	errNoSuchTable = 1146
	errDupEntry    = 1062
)

type Dialect struct {
	migrationsTable, charset string
}

var _ database.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable, charset string) *Dialect {
	if charset == "" {
		charset = DefaultCharset
	}

	return &Dialect{migrationsTable: migrationsTable, charset: charset}
}

func (d Dialect) DriverName() string {
	return DriverName
}

func (d Dialect) ProbeQuery() string {
	return fmt.Sprintf("SELECT 1 FROM `%s` LIMIT 1", d.migrationsTable)
}

func (d Dialect) CreateQuery() string {
	const createSQL = "CREATE TABLE `%s` (" +
		"`id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
		"`file` VARCHAR(255) NOT NULL, " +
		"`step` INT NOT NULL, " +
		"UNIQUE (`file`)" +
		") ENGINE=InnoDB CHARACTER SET=%s"

	return fmt.Sprintf(createSQL, d.migrationsTable, d.charset)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS `%s`", d.migrationsTable)
}

func (d Dialect) IsUndefinedTable(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errNoSuchTable || string(myErr.SQLState[:]) == "42S02"
	}

	return false
}

func (d Dialect) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errDupEntry
	}

	return false
}
