package domain

import (
	"slices"
	"time"
)

// IssueCategory classifies the reported infrastructure problem.
type IssueCategory string

const (
	CategoryRoad        IssueCategory = "Road"
	CategoryWater       IssueCategory = "Water"
	CategorySanitation  IssueCategory = "Sanitation"
	CategoryElectricity IssueCategory = "Electricity"
	CategoryStreetlight IssueCategory = "Streetlight"
	CategoryOther       IssueCategory = "Other"
)

// ParseIssueCategory reports whether s names a known category.
func ParseIssueCategory(s string) (IssueCategory, bool) {
	switch c := IssueCategory(s); c {
	case CategoryRoad, CategoryWater, CategorySanitation, CategoryElectricity, CategoryStreetlight, CategoryOther:
		return c, true
	}
	return "", false
}

// StaffAssignment records who an issue was handed to.
type StaffAssignment struct {
	Email      string
	Name       string
	AssignedAt time.Time
}

// Issue is the current-state snapshot of a reported problem.
type Issue struct {
	ID            string
	Title         string
	Description   string
	Category      IssueCategory
	Location      string
	ImageURL      string
	ReporterEmail string
	ReporterName  string
	Status        IssueStatus
	IsBoosted     bool
	Upvotes       int
	Voters        []string
	AssignedStaff *StaffAssignment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasVoted reports whether voter already upvoted the issue.
func (i *Issue) HasVoted(voter string) bool {
	return slices.Contains(i.Voters, voter)
}

// IsAssigned reports whether a staff member has been assigned.
func (i *Issue) IsAssigned() bool {
	return i.AssignedStaff != nil && i.AssignedStaff.Email != ""
}
