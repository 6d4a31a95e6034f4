package db

import (
	"context"
	"fmt"

	"lamptruth/internal/types"
)

// ConditionsRepository reads the stored measurement snapshots that the
// validation run compares live sources against.
type ConditionsRepository struct {
	db DBTX
}

// NewConditionsRepository creates a ConditionsRepository backed by the given
// database connection (pool or transaction).
func NewConditionsRepository(db DBTX) *ConditionsRepository {
	return &ConditionsRepository{db: db}
}

// currentConditionsQuery joins the stored conditions with their owning lamps
// and users so each record carries its location and owner display name.
// Newest snapshots come first; grouping by location is done in Go.
const currentConditionsQuery = `
SELECT
	cc.lamp_id,
	cc.wave_height_m,
	cc.wave_period_s,
	cc.wind_speed_mps,
	cc.wind_direction_deg,
	cc.last_updated,
	u.location,
	u.username
FROM current_conditions cc
JOIN lamps l ON cc.lamp_id = l.lamp_id
JOIN users u ON l.user_id = u.user_id
ORDER BY cc.last_updated DESC`

// ListCurrentConditions returns every stored measurement snapshot currently
// on file, newest first.
func (r *ConditionsRepository) ListCurrentConditions(ctx context.Context) ([]types.ReferenceRecord, error) {
	rows, err := r.db.Query(ctx, currentConditionsQuery)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageQuery, "querying current conditions", err)
	}
	defer rows.Close()

	var records []types.ReferenceRecord
	for rows.Next() {
		var rec types.ReferenceRecord
		if err := rows.Scan(
			&rec.LampID,
			&rec.WaveHeightM,
			&rec.WavePeriodS,
			&rec.WindSpeedMps,
			&rec.WindDirection,
			&rec.LastUpdated,
			&rec.Location,
			&rec.Username,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeStorageQuery,
				fmt.Sprintf("scanning condition row %d", len(records)), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageQuery, "iterating condition rows", err)
	}

	return records, nil
}

// GroupByLocation buckets reference records by their location string,
// preserving the query's newest-first order within each bucket. The engine
// uses the first record of a bucket as that location's baseline.
func GroupByLocation(records []types.ReferenceRecord) map[string][]types.ReferenceRecord {
	grouped := make(map[string][]types.ReferenceRecord)
	for _, rec := range records {
		grouped[rec.Location] = append(grouped[rec.Location], rec)
	}
	return grouped
}
