package itemstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dalemusser/homeready/internal/domain/models"
)

// StatusFilter selects items by completion.
type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusPending StatusFilter = "pending"
	StatusDone    StatusFilter = "done"
)

// NecessityFilter selects items by necessity; NecessityAll keeps every item.
type NecessityFilter string

const NecessityAll NecessityFilter = "all"

// ParseStatusFilter maps "", all, pending and done. Blank means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return StatusAll, nil
	case StatusAll, StatusPending, StatusDone:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// ParseNecessityFilter maps "", all, high, medium and low. Blank means all.
func ParseNecessityFilter(s string) (NecessityFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == string(NecessityAll) {
		return NecessityAll, nil
	}
	if n, ok := models.ParseNecessity(v); ok {
		return NecessityFilter(n), nil
	}
	return "", fmt.Errorf("unknown necessity filter %q", s)
}

// View filters items by status then necessity, and sorts the result:
// pending before done when sortByStatus is set, then high < medium < low.
// The sort is stable and items is not modified.
func View(items []models.Item, status StatusFilter, necessity NecessityFilter, sortByStatus bool) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		switch status {
		case StatusPending:
			if it.Done {
				continue
			}
		case StatusDone:
			if !it.Done {
				continue
			}
		}
		if necessity != NecessityAll && necessity != "" && string(it.NecessityLevel) != string(necessity) {
			continue
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if sortByStatus && out[i].Done != out[j].Done {
			return !out[i].Done
		}
		return out[i].NecessityLevel.Rank() < out[j].NecessityLevel.Rank()
	})
	return out
}
