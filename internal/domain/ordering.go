package domain

import "sort"

// SortInstances produces the display order for one day's instances.
//
// Instances are grouped by band; unrecognized or absent slot keys fall
// into the implicit "none" group. Within a band the primary key is state
// priority (done, running, idle, unknown) with ties broken by Order
// ascending. Groups concatenate as "none" followed by bandKeys in the
// caller-supplied order.
//
// The sort is stable: Order values may legitimately tie after a
// renormalization race, and equal composite keys keep their relative
// insertion order.
func SortInstances(instances []*TaskInstance, bandKeys []SlotKey) []*TaskInstance {
	known := make(map[SlotKey]bool, len(bandKeys))
	for _, k := range bandKeys {
		known[k] = true
	}

	groups := make(map[SlotKey][]*TaskInstance, len(bandKeys)+1)
	for _, inst := range instances {
		key := inst.SlotKey
		if !known[key] {
			key = SlotNone
		}
		groups[key] = append(groups[key], inst)
	}

	result := make([]*TaskInstance, 0, len(instances))
	appendGroup := func(key SlotKey) {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := group[i].State.Priority(), group[j].State.Priority()
			if pi != pj {
				return pi < pj
			}
			return group[i].Order < group[j].Order
		})
		result = append(result, group...)
	}

	appendGroup(SlotNone)
	for _, key := range bandKeys {
		appendGroup(key)
	}
	return result
}

// BandInstances filters instances down to one band, sorted ascending by
// Order. Used to build the sibling sequence for AllocateOrder.
func BandInstances(instances []*TaskInstance, key SlotKey) []*TaskInstance {
	var band []*TaskInstance
	for _, inst := range instances {
		if inst.SlotKey == key {
			band = append(band, inst)
		}
	}
	sort.SliceStable(band, func(i, j int) bool {
		return band[i].Order < band[j].Order
	})
	return band
}
