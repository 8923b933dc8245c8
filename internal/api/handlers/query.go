package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"gorm.io/gorm"
)

// listQuery is the parsed form of the common list parameters.
type listQuery struct {
	values  url.Values
	page    dto.PaginationParams
	search  string
	orderBy string
}

// sortColumns maps an API sortBy value to a column; unknown keys fall back
// to created_at.
type sortColumns map[string]string

var baseSort = sortColumns{"createdAt": "created_at", "updatedAt": "updated_at"}

func (s sortColumns) with(extra sortColumns) sortColumns {
	out := make(sortColumns, len(s)+len(extra))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func parseListQuery(r *http.Request, sortable sortColumns) listQuery {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	p := dto.PaginationParams{Page: page, Limit: limit}
	p.Normalize()

	column, ok := sortable[q.Get("sortBy")]
	if !ok {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(q.Get("sortOrder"), "asc") {
		dir = "ASC"
	}

	return listQuery{
		values:  q,
		page:    p,
		search:  strings.TrimSpace(q.Get("search")),
		orderBy: column + " " + dir,
	}
}

// searchScope matches the search term case-insensitively against columns.
func searchScope(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(escapeLike(term)) + "%"
		clauses := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, c := range columns {
			clauses[i] = "LOWER(" + c + ") LIKE ? ESCAPE '\\'"
			args[i] = pattern
		}
		return db.Where(strings.Join(clauses, " OR "), args...)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// eq adds column = value when the query parameter is present.
func (q listQuery) eq(db *gorm.DB, param, column string) *gorm.DB {
	if v := q.values.Get(param); v != "" {
		return db.Where(column+" = ?", v)
	}
	return db
}

// eqUUID is eq for id columns; malformed ids match nothing.
func (q listQuery) eqUUID(db *gorm.DB, param, column string) *gorm.DB {
	v := q.values.Get(param)
	if v == "" {
		return db
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return db.Where("1 = 0")
	}
	return db.Where(column+" = ?", id)
}

func (q listQuery) eqBool(db *gorm.DB, param, column string) *gorm.DB {
	if b, err := strconv.ParseBool(q.values.Get(param)); err == nil {
		return db.Where(column+" = ?", b)
	}
	return db
}

func (q listQuery) intRange(db *gorm.DB, minParam, maxParam, column string) *gorm.DB {
	if n, err := strconv.Atoi(q.values.Get(minParam)); err == nil {
		db = db.Where(column+" >= ?", n)
	}
	if n, err := strconv.Atoi(q.values.Get(maxParam)); err == nil {
		db = db.Where(column+" <= ?", n)
	}
	return db
}

func (q listQuery) decimalMin(db *gorm.DB, param, column string) *gorm.DB {
	if d, err := decimal.NewFromString(q.values.Get(param)); err == nil {
		return db.Where(column+" >= ?", d)
	}
	return db
}

func (q listQuery) decimalMax(db *gorm.DB, param, column string) *gorm.DB {
	if d, err := decimal.NewFromString(q.values.Get(param)); err == nil {
		return db.Where(column+" <= ?", d)
	}
	return db
}

// timeParam accepts RFC 3339 or a bare date.
func (q listQuery) timeParam(param string) (time.Time, bool) {
	v := q.values.Get(param)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func queryInt(r *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// paginate counts the filtered rows of model, then loads one page into dest.
func paginate(db *gorm.DB, q listQuery, model, dest any) (*dto.Pagination, error) {
	scoped := db.Model(model)

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := scoped.Session(&gorm.Session{}).
		Order(q.orderBy).Offset(q.page.Offset()).Limit(q.page.Limit).
		Find(dest).Error; err != nil {
		return nil, err
	}
	return q.page.Result(total), nil
}

// GroupCount is one bucket of a stats breakdown. The _id key is the shape
// the SPA reads.
type GroupCount struct {
	ID    string `json:"_id"`
	Count int64  `json:"count"`
}

func groupCount(db *gorm.DB, model any, column string) ([]GroupCount, error) {
	rows := []GroupCount{}
	err := db.Model(model).
		Select("COALESCE(" + column + ", '') AS id, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
