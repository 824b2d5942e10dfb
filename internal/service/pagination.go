package service

import "github.com/civicfix/civicfix-server/internal/config"

// pageRules clamps 1-based page requests. A limit outside 1..max falls back to the default.
type pageRules struct {
	defaultLimit int
	maxLimit     int
}

func newPageRules(limits config.LimitsConfig) pageRules {
	rules := pageRules{defaultLimit: limits.DefaultPageLimit, maxLimit: limits.MaxPageLimit}
	if rules.maxLimit <= 0 {
		rules.maxLimit = 100
	}
	if rules.defaultLimit <= 0 || rules.defaultLimit > rules.maxLimit {
		rules.defaultLimit = min(10, rules.maxLimit)
	}
	return rules
}

func (r pageRules) clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > r.maxLimit {
		limit = r.defaultLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
