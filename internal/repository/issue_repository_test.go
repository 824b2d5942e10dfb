package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicfix/civicfix-server/internal/domain"
)

func TestBuildIssueWhereEmptyFilter(t *testing.T) {
	where, args := buildIssueWhere(IssueFilter{})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildIssueWhereNumbersPlaceholdersInOrder(t *testing.T) {
	category := domain.CategoryWater
	assignee := "staff@example.com"
	boosted := true
	search := "  Leak "

	where, args := buildIssueWhere(IssueFilter{
		Statuses:      []domain.IssueStatus{domain.StatusPending, domain.StatusWorking},
		Category:      &category,
		AssigneeEmail: &assignee,
		Boosted:       &boosted,
		SearchTerm:    &search,
	})

	assert.Equal(t,
		"1=1 AND status IN ($1,$2) AND category=$3 AND assigned_staff_email=$4 AND is_boosted=$5"+
			` AND (LOWER(title) LIKE $6 ESCAPE '\' OR LOWER(description) LIKE $6 ESCAPE '\')`,
		where)
	assert.Equal(t, []any{domain.StatusPending, domain.StatusWorking, category, assignee, true, "%leak%"}, args)
}

func TestBuildIssueWhereIgnoresBlankSearch(t *testing.T) {
	blank := "   "
	where, args := buildIssueWhere(IssueFilter{SearchTerm: &blank})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildIssueWhereEscapesLikeWildcards(t *testing.T) {
	search := `50%_off\`
	where, args := buildIssueWhere(IssueFilter{SearchTerm: &search})
	assert.Equal(t, `1=1 AND (LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(description) LIKE $1 ESCAPE '\')`, where)
	assert.Equal(t, []any{`%50\%\_off\\%`}, args)
}
