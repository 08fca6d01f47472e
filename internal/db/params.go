package db

import "fmt"

// SaveModelParams atomically replaces the persisted parameter set for the
// given model. Parameters are stored as opaque name/value rows so schema
// evolution on the classifier side never requires a migration here.
func (db *DB) SaveModelParams(modelID string, params map[string]float64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM classifier_params WHERE model_id = ?`, modelID); err != nil {
		return fmt.Errorf("failed to clear model params: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO classifier_params (model_id, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for name, value := range params {
		if _, err := stmt.Exec(modelID, name, value); err != nil {
			return fmt.Errorf("failed to insert param %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// LoadModelParams returns the persisted parameter set for the given model.
// An unknown model yields an empty map; the classifier's per-field defaults
// handle the rest.
func (db *DB) LoadModelParams(modelID string) (map[string]float64, error) {
	rows, err := db.Query(`SELECT name, value FROM classifier_params WHERE model_id = ?`, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query model params: %w", err)
	}
	defer rows.Close()

	params := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan model param: %w", err)
		}
		params[name] = value
	}
	return params, rows.Err()
}
