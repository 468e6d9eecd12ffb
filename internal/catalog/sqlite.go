// Package catalog reads the rows variability is evaluated for: the
// parameter blob of each object plus the float columns some models need.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/star/catsim/internal/variability"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrIdentifier is returned for table or column names that cannot be
// placed in a query.
var ErrIdentifier = errors.New("invalid SQL identifier")

func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrIdentifier, name)
	}
	return nil
}

// SQLiteSource reads catalog tables from a SQLite database.
type SQLiteSource struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteSource returns a source for the database at path. Call Open
// before use.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Open connects to the database.
func (s *SQLiteSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("opening catalog %s: %w", s.path, err)
	}
	s.db = db
	return nil
}

// Close releases the connection.
func (s *SQLiteSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSource) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("catalog source is not open")
	}
	return s.db, nil
}

// TableColumns returns the column names of table in declaration order.
func (s *SQLiteSource) TableColumns(ctx context.Context, table string) ([]string, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("catalog table %q does not exist", table)
	}
	return cols, nil
}

// Load reads every row of table: the rowid, the parameter blob column and
// the named float columns. NULL blobs become the "None" sentinel and NULL
// floats NaN.
func (s *SQLiteSource) Load(ctx context.Context, table string, columns []string) (*Batch, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	for _, c := range columns {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	selectList := append([]string{"rowid", variability.ParamColumn}, columns...)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(selectList, ", "), table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	b := &Batch{columns: make(map[string][]float64, len(columns))}
	for _, c := range columns {
		b.columns[c] = nil
	}

	var (
		id    int64
		blob  sql.NullString
		vals  = make([]sql.NullFloat64, len(columns))
		dests = make([]any, 0, 2+len(columns))
	)
	dests = append(dests, &id, &blob)
	for i := range vals {
		dests = append(dests, &vals[i])
	}

	for rows.Next() {
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		b.IDs = append(b.IDs, id)
		if blob.Valid {
			b.Params = append(b.Params, blob.String)
		} else {
			b.Params = append(b.Params, variability.NullModel)
		}
		for i, c := range columns {
			v := math.NaN()
			if vals[i].Valid {
				v = vals[i].Float64
			}
			b.columns[c] = append(b.columns[c], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// Batch is a set of catalog rows. It supplies the float columns it was
// loaded with to the variability models.
type Batch struct {
	IDs    []int64
	Params []string

	columns map[string][]float64
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	return len(b.Params)
}

// Column returns a loaded float column.
func (b *Batch) Column(name string) ([]float64, error) {
	col, ok := b.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: catalog column %q was not loaded", variability.ErrMissingPrerequisite, name)
	}
	if col == nil {
		col = []float64{}
	}
	return col, nil
}
