package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int

	rawOffset int
	hasOffset bool
}

// FromContext extracts and validates pagination params from the request.
// Both page/size and the older skip/limit parameter pair are accepted.
func FromContext(c *gin.Context) Query {
	return FromContextDefault(c, DefaultSize)
}

// FromContextDefault is FromContext with a caller-chosen default page size.
func FromContextDefault(c *gin.Context, defaultSize int) Query {
	if defaultSize < 1 || defaultSize > MaxSize {
		defaultSize = DefaultSize
	}
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", strconv.Itoa(defaultSize)), defaultSize)
	if v, ok := c.GetQuery("limit"); ok {
		size = parseIntOr(v, size)
	}

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	q := Query{Page: page, Size: size}
	if v, ok := c.GetQuery("skip"); ok {
		offset := parseIntOr(v, 0)
		if offset < 0 {
			offset = 0
		}
		q.hasOffset = true
		q.rawOffset = offset
		q.Page = offset/q.Size + 1
	}
	return q
}

// Offset returns the row offset, honoring a raw skip= value when one was given.
func (q Query) Offset() int {
	if q.hasOffset {
		return q.rawOffset
	}
	return (q.Page - 1) * q.Size
}

// Paginate applies limit/offset to a GORM query and returns the pagination metadata.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))

	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
