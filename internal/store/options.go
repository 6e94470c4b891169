package store

import (
	"github.com/membreg/reconciler/internal/store/model"
	"gorm.io/gorm"
)

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByID
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type CandidateQueryFilter BaseQuerier

func NewCandidateQueryFilter() *CandidateQueryFilter {
	return &CandidateQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *CandidateQueryFilter) ByStatuses(statuses ...model.VerificationStatus) *CandidateQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status_enum_id IN ?", statuses)
	})
	return qf
}

// Selectable keeps the candidates whose status is not final.
func (qf *CandidateQueryFilter) Selectable() *CandidateQueryFilter {
	return qf.ByStatuses(model.SelectableStatuses()...)
}

func (qf *CandidateQueryFilter) ByScope(scope string) *CandidateQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("scope_code = ?", scope)
	})
	return qf
}

type CandidateQueryOptions BaseQuerier

func NewCandidateQueryOptions() *CandidateQueryOptions {
	return &CandidateQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *CandidateQueryOptions) WithSortOrder(sort SortOrder) *CandidateQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByID:
			return tx.Order("id")
		default:
			return tx
		}
	})
	return o
}

// Limit results
func (o *CandidateQueryOptions) WithLimit(limit int) *CandidateQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}
