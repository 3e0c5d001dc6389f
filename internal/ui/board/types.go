package board

import "github.com/riordanpawley/taskband/internal/domain"

// Band is one rendered time-band column. The leading "none" group
// renders as its own column when it has instances.
type Band struct {
	Key       domain.SlotKey
	Title     string
	Instances []*domain.TaskInstance
}

// Cursor represents the current cursor position
type Cursor struct {
	Band     int // Band index within the rendered columns
	Instance int // Instance index within the band
}

// BuildBands groups sorted instances into renderable columns. The
// instances must already be in display order (see domain.SortInstances);
// grouping here just slices them per band.
func BuildBands(instances []*domain.TaskInstance, showNone bool) []Band {
	keys := domain.SlotKeys()
	known := make(map[domain.SlotKey]bool, len(keys))
	for _, key := range keys {
		known[key] = true
	}

	byKey := make(map[domain.SlotKey][]*domain.TaskInstance)
	for _, inst := range instances {
		key := inst.SlotKey
		if !known[key] {
			key = domain.SlotNone
		}
		byKey[key] = append(byKey[key], inst)
	}

	var bands []Band
	if showNone || len(byKey[domain.SlotNone]) > 0 {
		bands = append(bands, Band{
			Key:       domain.SlotNone,
			Title:     "Unplaced",
			Instances: byKey[domain.SlotNone],
		})
	}
	for _, key := range keys {
		bands = append(bands, Band{
			Key:       key,
			Title:     string(key),
			Instances: byKey[key],
		})
	}
	return bands
}
