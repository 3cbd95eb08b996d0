package stats

import (
	"context"

	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/store"
)

// Report is a stored encounter ready for rendering.
type Report struct {
	Preview   model.EncounterPreview
	Encounter *model.Encounter
}

// BuildReport loads an encounter from the store. An id of 0 selects the
// most recent encounter.
func BuildReport(ctx context.Context, st *store.Store, id int64) (Report, error) {
	if id == 0 {
		latest, err := st.LatestID(ctx)
		if err != nil {
			return Report{}, err
		}
		id = latest
	}
	preview, enc, err := st.GetEncounter(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return Report{Preview: preview, Encounter: enc}, nil
}
