package db

import (
	"fmt"

	"github.com/banshee-data/posture.report/internal/classifier"
	"github.com/banshee-data/posture.report/internal/telemetry"
)

// AppendTrainingSample stores one labeled feedback sample.
func (db *DB) AppendTrainingSample(ls classifier.LabeledSample) error {
	s := ls.Sample
	_, err := db.Exec(`
		INSERT INTO training_samples
			(pitch_deg, roll_deg, movement, ax, ay, az, gx, gy, gz, timestamp_ms, label_good)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PitchDeg, s.RollDeg, s.Movement,
		s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz,
		s.TimestampMs, ls.Good,
	)
	if err != nil {
		return fmt.Errorf("failed to insert training sample: %w", err)
	}
	return nil
}

// ReplaceTrainingSamples atomically overwrites the stored sample set with
// the given one, preserving order. This matches the full-file-overwrite
// semantics of the persisted sample format.
func (db *DB) ReplaceTrainingSamples(samples []classifier.LabeledSample) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM training_samples`); err != nil {
		return fmt.Errorf("failed to clear training samples: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO training_samples
			(pitch_deg, roll_deg, movement, ax, ay, az, gx, gy, gz, timestamp_ms, label_good)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ls := range samples {
		s := ls.Sample
		if _, err := stmt.Exec(
			s.PitchDeg, s.RollDeg, s.Movement,
			s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz,
			s.TimestampMs, ls.Good,
		); err != nil {
			return fmt.Errorf("failed to insert training sample: %w", err)
		}
	}

	return tx.Commit()
}

// ListTrainingSamples returns all stored samples in insertion order.
func (db *DB) ListTrainingSamples() ([]classifier.LabeledSample, error) {
	rows, err := db.Query(`
		SELECT pitch_deg, roll_deg, movement, ax, ay, az, gx, gy, gz, timestamp_ms, label_good
		FROM training_samples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query training samples: %w", err)
	}
	defer rows.Close()

	var samples []classifier.LabeledSample
	for rows.Next() {
		var s telemetry.Sample
		var good bool
		if err := rows.Scan(
			&s.PitchDeg, &s.RollDeg, &s.Movement,
			&s.Ax, &s.Ay, &s.Az, &s.Gx, &s.Gy, &s.Gz,
			&s.TimestampMs, &good,
		); err != nil {
			return nil, fmt.Errorf("failed to scan training sample: %w", err)
		}
		samples = append(samples, classifier.LabeledSample{Sample: s, Good: good})
	}
	return samples, rows.Err()
}

// CountTrainingSamples returns the number of stored samples.
func (db *DB) CountTrainingSamples() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM training_samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count training samples: %w", err)
	}
	return n, nil
}
