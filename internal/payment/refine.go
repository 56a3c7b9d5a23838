package payment

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Criteria are conjunctive; zero fields do not filter.
type Criteria struct {
	Search     string
	ProjectID  *uuid.UUID
	CategoryID *uuid.UUID
	Status     *Status
	From       *time.Time
	To         *time.Time
}

// FilterItems keeps the items matching every criterion, preserving order.
func FilterItems(items []*Item, c Criteria) []*Item {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]*Item, 0, len(items))

	for _, it := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(it.ItemName), search) &&
			!strings.Contains(strings.ToLower(it.Notes), search) {
			continue
		}

		if c.ProjectID != nil && it.ProjectID != *c.ProjectID {
			continue
		}

		if c.CategoryID != nil && (it.CategoryID == nil || *it.CategoryID != *c.CategoryID) {
			continue
		}

		if c.Status != nil && it.Status != *c.Status {
			continue
		}

		start := civilDate(it.StartDate)
		if c.From != nil && start.Before(civilDate(*c.From)) {
			continue
		}

		if c.To != nil && start.After(civilDate(*c.To)) {
			continue
		}

		out = append(out, it)
	}

	return out
}

// SortKey names a sortable item field.
type SortKey string

const (
	SortByName        SortKey = "itemName"
	SortByTotalAmount SortKey = "totalAmount"
	SortByPaidAmount  SortKey = "paidAmount"
	SortByStartDate   SortKey = "startDate"
	SortByEndDate     SortKey = "endDate"
	SortByStatus      SortKey = "status"
	SortByCreatedAt   SortKey = "createdAt"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByName, SortByTotalAmount, SortByPaidAmount, SortByStartDate,
		SortByEndDate, SortByStatus, SortByCreatedAt:
		return true
	}

	return false
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortItems returns a stably sorted copy; equal keys keep their input order.
// Items without an end date sort after dated ones in ascending order.
// An unknown key returns the copy unsorted.
func SortItems(items []*Item, key SortKey, dir Direction) []*Item {
	out := make([]*Item, len(items))
	copy(out, items)

	if !key.Valid() {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], key)
		if dir == Desc {
			return c > 0
		}

		return c < 0
	})

	return out
}

func compare(a, b *Item, key SortKey) int {
	switch key {
	case SortByName:
		return strings.Compare(a.ItemName, b.ItemName)
	case SortByTotalAmount:
		return a.TotalAmount.Cmp(b.TotalAmount)
	case SortByPaidAmount:
		return a.PaidAmount.Cmp(b.PaidAmount)
	case SortByStartDate:
		return a.StartDate.Compare(b.StartDate)
	case SortByEndDate:
		switch {
		case a.EndDate == nil && b.EndDate == nil:
			return 0
		case a.EndDate == nil:
			return 1
		case b.EndDate == nil:
			return -1
		}

		return a.EndDate.Compare(*b.EndDate)
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	}

	return 0
}

type PageInfo struct {
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
}

// Paginate slices out one page. Page numbers start at 1; pageSize defaults to
// DefaultPageSize and is capped at MaxPageSize.
func Paginate(items []*Item, page, pageSize int) ([]*Item, PageInfo) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pageSize = min(pageSize, MaxPageSize)
	page = max(page, 1)

	total := len(items)
	info := PageInfo{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	// compare page numbers first so (page-1)*pageSize cannot overflow
	if page > info.TotalPages {
		return []*Item{}, info
	}

	start := (page - 1) * pageSize

	end := min(start+pageSize, total)

	return items[start:end], info
}
