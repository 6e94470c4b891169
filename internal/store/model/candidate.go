package model

import (
	"encoding/json"
	"time"
)

type VerificationStatus int

const (
	StatusUnknown VerificationStatus = iota + 1
	StatusRegistered
	StatusNotRegistered
	StatusVerificationFailed
)

func (s VerificationStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusRegistered:
		return "registered"
	case StatusNotRegistered:
		return "not_registered"
	case StatusVerificationFailed:
		return "verification_failed"
	default:
		return "invalid"
	}
}

// IsTerminal reports whether a candidate in this status is never selected again.
func (s VerificationStatus) IsTerminal() bool {
	return s == StatusRegistered || s == StatusNotRegistered
}

// SelectableStatuses lists the statuses eligible for (re)verification.
func SelectableStatuses() []VerificationStatus {
	return []VerificationStatus{StatusUnknown, StatusVerificationFailed}
}

// Candidate is a member record whose registration status is confirmed against the external registry.
type Candidate struct {
	ID             int64              `gorm:"primaryKey;autoIncrement"`
	ExternalKey    string             `gorm:"column:external_key;type:VARCHAR;size:32;not null;index"`
	StatusID       VerificationStatus `gorm:"column:status_enum_id;not null;default:1;index"`
	Registered     bool               `gorm:"column:status_boolean_flag;not null;default:false"`
	LastVerifiedAt *time.Time         `gorm:"column:last_verified_at"`
	DistrictCode   *string            `gorm:"column:district_code;type:VARCHAR;size:32"`
	ScopeCode      *string            `gorm:"column:scope_code;type:VARCHAR;size:32;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Candidate) TableName() string {
	return "candidates"
}

func (c Candidate) String() string {
	val, _ := json.Marshal(c)
	return string(val)
}

type CandidateList []Candidate

// VerificationUpdate is the projection of a verification attempt written back to a candidate.
type VerificationUpdate struct {
	Status       VerificationStatus
	DistrictCode *string
	VerifiedAt   time.Time
}

// StatusCount is one row of a per-status aggregate.
type StatusCount struct {
	Status VerificationStatus `gorm:"column:status_enum_id"`
	Total  int64              `gorm:"column:total"`
}
