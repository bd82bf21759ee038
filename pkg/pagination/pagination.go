// Package pagination implements the from/size convention of the shareit API.
//
// from is a page index, not a row offset: the first returned row is
// from*size. Omitting both parameters means "no pagination".
package pagination

import (
	"math"
	"strconv"

	"gorm.io/gorm"

	"shareit/pkg/apperr"
)

const DefaultSize = 100

type Page struct {
	From int
	Size int
}

// Parse reads raw query values. It returns a nil page when both are empty.
// A lone from defaults size to DefaultSize, a lone size defaults from to 0.
func Parse(fromStr, sizeStr string) (*Page, error) {
	if fromStr == "" && sizeStr == "" {
		return nil, nil
	}
	p := &Page{From: 0, Size: DefaultSize}
	if fromStr != "" {
		v, err := strconv.Atoi(fromStr)
		if err != nil {
			return nil, apperr.BadRequest("from must be an integer, got %q", fromStr)
		}
		p.From = v
	}
	if sizeStr != "" {
		v, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, apperr.BadRequest("size must be an integer, got %q", sizeStr)
		}
		p.Size = v
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) Validate() error {
	if p == nil {
		return nil
	}
	if p.From < 0 {
		return apperr.BadRequest("from must not be negative")
	}
	if p.Size == 0 {
		return apperr.BadRequest("size == 0")
	}
	if p.Size < 0 {
		return apperr.BadRequest("size must be positive")
	}
	if p.From > math.MaxInt/p.Size {
		return apperr.BadRequest("from is out of range")
	}
	return nil
}

func (p *Page) Offset() int {
	if p == nil {
		return 0
	}
	return p.From * p.Size
}

// Scope applies the page to a gorm query.
func Scope(p *Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p == nil {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Size)
	}
}

// Slice applies the page to an in-memory result. It never returns nil.
func Slice[T any](p *Page, all []T) []T {
	if p == nil {
		if all == nil {
			return []T{}
		}
		return all
	}
	if p.Size <= 0 || p.From > len(all)/p.Size {
		return []T{}
	}
	off := p.Offset()
	if off >= len(all) {
		return []T{}
	}
	end := off + p.Size
	if end > len(all) {
		end = len(all)
	}
	return all[off:end]
}
