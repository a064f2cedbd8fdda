package database

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bitterfly/go-chaos/onetomany/schema"
	"github.com/bitterfly/go-chaos/onetomany/utils"
	sqlite "github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type psqlInfo struct {
	Host     string
	Port     int
	User     string
	Password string
	Dbname   string
	Sslmode  string
}

type ErrorType int

const (
	OpenError ErrorType = iota
	ConfigError
	MigrateError
	QueryError
)

func (t ErrorType) String() string {
	switch t {
	case OpenError:
		return "open"
	case ConfigError:
		return "config"
	case MigrateError:
		return "migrate"
	case QueryError:
		return "query"
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

type DatabaseError struct {
	ErrorType ErrorType
	msg       error
}

func newOpenError(err error) *DatabaseError {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: OpenError,
		msg:       fmt.Errorf("database open error: %w", err),
	}
}

func newConfigError(err error) *DatabaseError {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: ConfigError,
		msg:       fmt.Errorf("database config error: %w", err),
	}
}

func newMigrateError(err error) *DatabaseError {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: MigrateError,
		msg:       fmt.Errorf("database migrate error: %w", err),
	}
}

func newQueryError(err error) *DatabaseError {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: QueryError,
		msg:       fmt.Errorf("database query error: %w", err),
	}
}

func (e *DatabaseError) Error() string {
	return e.msg.Error()
}

func (e *DatabaseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.msg
}

// IsNotFound reports whether err is a query that matched no record.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (p psqlInfo) String() string {
	return fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Dbname, p.Sslmode)
}

func getPsqlInfo(filename string) (*psqlInfo, *DatabaseError) {
	jsonFile, err := os.Open(filename)
	if err != nil {
		return nil, newOpenError(err)
	}
	defer jsonFile.Close()

	var info psqlInfo
	if _, err := utils.Parse(jsonFile, &info); err != nil {
		return nil, newConfigError(fmt.Errorf("%s: %w", filename, err))
	}
	return &info, nil
}

// Automigrate creates the game and review tables. The inspector itself never
// calls it; the store's schema belongs to the application.
func Automigrate(db *gorm.DB) *DatabaseError {
	if err := db.AutoMigrate(&schema.Game{}); err != nil {
		return newMigrateError(fmt.Errorf("schema game, %w", err))
	}
	if err := db.AutoMigrate(&schema.Review{}); err != nil {
		return newMigrateError(fmt.Errorf("schema review, %w", err))
	}
	return nil
}

var sqlLogOutput io.Writer = os.Stderr

// sqlEcho ends every line with \r\n so echoed SQL stays aligned while the
// inspector holds the terminal in raw mode.
type sqlEcho struct {
	out io.Writer
}

func (e sqlEcho) Printf(format string, args ...interface{}) {
	line := strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", "\r\n")
	fmt.Fprint(e.out, line+"\r\n")
}

func gormConfig(cfg Config) *gorm.Config {
	level := logger.Silent
	if cfg.LogSQL {
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.New(sqlEcho{out: sqlLogOutput}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})}
}

// sqliteDSN opens path read-only; query_only also refuses temp tables.
func sqliteDSN(path string) string {
	return "file:" + path + "?mode=ro&_pragma=query_only(1)"
}

// Open connects to the store described by cfg. A sqlite store must already
// exist and is opened read-only.
func Open(cfg Config) (*gorm.DB, *DatabaseError) {
	switch cfg.Driver {
	case DriverSqlite:
		return openSqlite(cfg.Path, gormConfig(cfg))
	case DriverPostgres:
		return openPostgres(cfg.PsqlInfo, gormConfig(cfg))
	}
	return nil, newConfigError(fmt.Errorf("unknown driver %q", cfg.Driver))
}

func openSqlite(path string, config *gorm.Config) (*gorm.DB, *DatabaseError) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newOpenError(err)
	}
	if !info.Mode().IsRegular() {
		return nil, newOpenError(fmt.Errorf("%s is not a regular file", path))
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), config)
	if err != nil {
		return nil, newOpenError(err)
	}
	return db, nil
}

func openPostgres(filename string, config *gorm.Config) (*gorm.DB, *DatabaseError) {
	psqlInfo, derr := getPsqlInfo(filename)
	if derr != nil {
		return nil, derr
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        psqlInfo.String(),
	}), config)
	if err != nil {
		return nil, newOpenError(err)
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
