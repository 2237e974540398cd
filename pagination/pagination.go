package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

type Params struct {
	Page    int
	PerPage int
}

// Meta is the pagination object returned next to a collection.
type Meta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

// New clamps page to >= 1 and perPage to 1..MaxPerPage. Zero perPage means
// the default.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// FromQuery reads ?page and ?per_page. Unparseable values fall back to the
// defaults.
func FromQuery(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(DefaultPerPage)))
	return New(page, perPage)
}

func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

func (p Params) Meta(total int64) Meta {
	pages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return Meta{Page: p.Page, PerPage: p.PerPage, Total: total, Pages: pages}
}
