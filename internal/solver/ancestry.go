package solver

import (
	"github.com/bogdanivan12/odes/internal/models"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

// buildAncestry resolves, for every group, the chain of ancestor ids ordered from
// direct parent to root. A parent reference outside the input set or a cycle in
// the parent graph fails the whole build.
func buildAncestry(groups []models.Group) (map[string][]string, error) {
	byID := make(map[string]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	memo := make(map[string][]string, len(groups))
	visiting := make(map[string]bool)

	var walk func(id string) ([]string, error)
	walk = func(id string) ([]string, error) {
		if chain, ok := memo[id]; ok {
			return chain, nil
		}
		if visiting[id] {
			return nil, apperrors.Clone(apperrors.ErrInvalidGraph, "invalid_graph")
		}
		visiting[id] = true
		defer delete(visiting, id)

		g := byID[id]
		if g.ParentGroupID == nil || *g.ParentGroupID == "" {
			memo[id] = []string{}
			return memo[id], nil
		}
		pid := *g.ParentGroupID
		if _, ok := byID[pid]; !ok {
			return nil, apperrors.Clone(apperrors.ErrInvalidGraph, "invalid_graph")
		}
		parents, err := walk(pid)
		if err != nil {
			return nil, err
		}
		chain := make([]string, 0, len(parents)+1)
		chain = append(chain, pid)
		chain = append(chain, parents...)
		memo[id] = chain
		return chain, nil
	}

	for _, g := range groups {
		if _, err := walk(g.ID); err != nil {
			return nil, err
		}
	}
	return memo, nil
}
