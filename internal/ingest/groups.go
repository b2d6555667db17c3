package ingest

import (
	"fmt"

	"github.com/tradelog/journal-api/internal/broker"
)

// BuildBracketGroups partitions broker order ids into related groups using
// parent/child (bracket) and one-cancels-other linkage. Keys are
// "parent:<id>", "oco:<id>" and "standalone:<id>"; values are ordered,
// duplicate-free order id lists. The grouping is advisory scoping for the
// matcher, recomputed on demand and never stored; an order id may appear in
// more than one group.
func BuildBracketGroups(orders []broker.Order) map[string][]int64 {
	if len(orders) == 0 {
		return map[string][]int64{}
	}

	known := make(map[int64]bool, len(orders))
	for _, o := range orders {
		if o.ID != nil {
			known[*o.ID] = true
		}
	}

	byParent := make(map[int64][]int64)
	parentOrder := make([]int64, 0)
	byOco := make(map[int64][]int64)
	ocoOrder := make([]int64, 0)
	var standalones []int64

	for _, o := range orders {
		if o.ID == nil {
			continue
		}
		oid := *o.ID

		if o.ParentID != nil {
			if _, seen := byParent[*o.ParentID]; !seen {
				parentOrder = append(parentOrder, *o.ParentID)
			}
			byParent[*o.ParentID] = append(byParent[*o.ParentID], oid)
		}
		if o.OcoID != nil {
			if _, seen := byOco[*o.OcoID]; !seen {
				ocoOrder = append(ocoOrder, *o.OcoID)
			}
			byOco[*o.OcoID] = append(byOco[*o.OcoID], oid)
		}
		// Orders carrying both links additionally form their own group.
		if o.ParentID != nil && o.OcoID != nil {
			standalones = append(standalones, oid)
		}
	}

	groups := make(map[string][]int64, len(byParent)+len(byOco)+len(standalones))

	for _, parentID := range parentOrder {
		ids := byParent[parentID]
		// The parent itself heads the group when it is a known order and not
		// already in its own child list.
		if known[parentID] && !contains(ids, parentID) {
			ids = append([]int64{parentID}, ids...)
		}
		groups[fmt.Sprintf("parent:%d", parentID)] = ids
	}

	for _, ocoID := range ocoOrder {
		groups[fmt.Sprintf("oco:%d", ocoID)] = dedupe(byOco[ocoID])
	}

	for _, oid := range standalones {
		groups[fmt.Sprintf("standalone:%d", oid)] = []int64{oid}
	}

	return groups
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
