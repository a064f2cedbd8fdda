package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bitterfly/go-chaos/onetomany/schema"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"
)

// Session is the object-relational context handed to the inspector. It is
// bound to one engine for the lifetime of the process and only reads.
type Session struct {
	db *gorm.DB
}

type Counts struct {
	Games   int64
	Reviews int64
}

type RatingSummary struct {
	GameID uint
	Count  int
	Mean   float64
	StdDev float64
	Min    int
	Max    int
}

func NewSession(db *gorm.DB) *Session {
	return &Session{db: db.Session(&gorm.Session{})}
}

// HasSchema reports whether both entity tables exist. A store that cannot be
// read at all, such as a file that is not a database, is an error.
func (s *Session) HasSchema(ctx context.Context) (bool, *DatabaseError) {
	tables, derr := s.Tables(ctx)
	if derr != nil {
		return false, derr
	}
	games := s.db.NamingStrategy.TableName("Game")
	reviews := s.db.NamingStrategy.TableName("Review")
	return slices.Contains(tables, games) && slices.Contains(tables, reviews), nil
}

func (s *Session) Tables(ctx context.Context) ([]string, *DatabaseError) {
	tables, err := s.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, newQueryError(err)
	}
	slices.Sort(tables)
	return tables, nil
}

func (s *Session) Games(ctx context.Context) ([]schema.Game, *DatabaseError) {
	games := make([]schema.Game, 0)
	err := s.db.WithContext(ctx).Order("id").Find(&games).Error
	return games, newQueryError(err)
}

func (s *Session) Game(ctx context.Context, id uint) (*schema.Game, *DatabaseError) {
	var game schema.Game
	err := s.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		First(&game, id).Error
	if err != nil {
		return nil, newQueryError(fmt.Errorf("game %d: %w", id, err))
	}
	return &game, nil
}

func (s *Session) Reviews(ctx context.Context, gameID uint) ([]schema.Review, *DatabaseError) {
	reviews := make([]schema.Review, 0)
	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&schema.Game{}, gameID).Error; err != nil {
		return nil, newQueryError(fmt.Errorf("game %d: %w", gameID, err))
	}
	if err := db.Where("game_id = ?", gameID).Order("id").Find(&reviews).Error; err != nil {
		return nil, newQueryError(err)
	}
	return reviews, nil
}

func (s *Session) Review(ctx context.Context, id uint) (*schema.Review, *DatabaseError) {
	var review schema.Review
	err := s.db.WithContext(ctx).Preload("Game").First(&review, id).Error
	if err != nil {
		return nil, newQueryError(fmt.Errorf("review %d: %w", id, err))
	}
	return &review, nil
}

func (s *Session) Count(ctx context.Context) (Counts, *DatabaseError) {
	var counts Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&schema.Game{}).Count(&counts.Games).Error; err != nil {
		return Counts{}, newQueryError(err)
	}
	if err := db.Model(&schema.Review{}).Count(&counts.Reviews).Error; err != nil {
		return Counts{}, newQueryError(err)
	}
	return counts, nil
}

// RatingSummary aggregates the ratings of one game's reviews. A game with a
// single review has a standard deviation of zero.
func (s *Session) RatingSummary(ctx context.Context, gameID uint) (RatingSummary, *DatabaseError) {
	summary := RatingSummary{GameID: gameID}
	ratings := make([]int, 0)
	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&schema.Game{}, gameID).Error; err != nil {
		return summary, newQueryError(fmt.Errorf("game %d: %w", gameID, err))
	}
	err := db.Model(&schema.Review{}).
		Where("game_id = ?", gameID).
		Pluck("rating", &ratings).Error
	if err != nil {
		return summary, newQueryError(err)
	}

	summary.Count = len(ratings)
	if summary.Count == 0 {
		return summary, nil
	}

	xs := make([]float64, len(ratings))
	for i, r := range ratings {
		xs[i] = float64(r)
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(xs, nil)
	if math.IsNaN(summary.StdDev) {
		summary.StdDev = 0
	}
	summary.Min = int(floats.Min(xs))
	summary.Max = int(floats.Max(xs))
	return summary, nil
}

var readPrefixes = []string{"select", "with", "pragma", "explain"}

func isReadQuery(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	return slices.Contains(readPrefixes, strings.ToLower(fields[0]))
}

// Raw runs an ad-hoc read query and renders every value as text. The prefix
// check only gives a clear message: the query runs in a transaction that is
// always rolled back, on a store the sqlite driver opened read-only.
func (s *Session) Raw(ctx context.Context, query string) ([]string, [][]string, *DatabaseError) {
	if !isReadQuery(query) {
		return nil, nil, newQueryError(fmt.Errorf("only read queries are allowed: %q", query))
	}

	opts := &sql.TxOptions{ReadOnly: s.db.Dialector.Name() == DriverPostgres}
	tx := s.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return nil, nil, newQueryError(tx.Error)
	}
	defer tx.Rollback()

	rows, err := tx.Raw(query).Rows()
	if err != nil {
		return nil, nil, newQueryError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, newQueryError(err)
	}

	result := make([][]string, 0)
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, newQueryError(err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, newQueryError(err)
	}
	return columns, result, nil
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
