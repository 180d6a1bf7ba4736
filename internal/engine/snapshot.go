package engine

import (
	"fmt"

	"github.com/tatianab/dungeon-floor/internal/models"
)

// Snapshot is the persisted projection of the floor.
func (f *Floor) Snapshot() models.FloorRecord {
	return models.FloorRecord{
		Type:             f.floorType,
		Description:      f.description,
		Penalty:          f.penalty,
		CompletionRate:   f.progression.CompletionRate,
		History:          f.history.Entries(),
		SuggestedActions: f.SuggestedActions(),
		End:              f.end,
	}
}

// Restore loads a persisted projection into f. Out-of-range progress is
// clamped to the floor's event length.
func (f *Floor) Restore(rec models.FloorRecord) error {
	floorType, err := models.ParseFloorType(string(rec.Type))
	if err != nil {
		return fmt.Errorf("restore floor: %w", err)
	}
	f.floorType = floorType
	f.description = rec.Description
	f.penalty = max(rec.Penalty, 0)
	f.progression = models.LoadProgression(rec.CompletionRate, f.rules.EventLength)
	f.history = models.LoadHistory(rec.History)
	f.suggested = append([]string(nil), rec.SuggestedActions...)
	f.end = rec.End
	return nil
}
