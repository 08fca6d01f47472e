package db

import "fmt"

// PostureEvent is one recorded state transition.
type PostureEvent struct {
	SessionID   string  `json:"session_id"`
	State       string  `json:"state"`
	PitchDeg    float64 `json:"pitch_deg"`
	RollDeg     float64 `json:"roll_deg"`
	Movement    float64 `json:"movement"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// RecordPostureEvent stores one state transition for the session.
func (db *DB) RecordPostureEvent(e PostureEvent) error {
	_, err := db.Exec(`
		INSERT INTO posture_events (session_id, state, pitch_deg, roll_deg, movement, timestamp_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.State, e.PitchDeg, e.RollDeg, e.Movement, e.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record posture event: %w", err)
	}
	return nil
}

// ListPostureEvents returns up to limit most recent events for a session,
// newest first.
func (db *DB) ListPostureEvents(sessionID string, limit int) ([]PostureEvent, error) {
	rows, err := db.Query(`
		SELECT session_id, state, pitch_deg, roll_deg, movement, timestamp_ms
		FROM posture_events
		WHERE session_id = ?
		ORDER BY timestamp_ms DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posture events: %w", err)
	}
	defer rows.Close()

	var events []PostureEvent
	for rows.Next() {
		var e PostureEvent
		if err := rows.Scan(&e.SessionID, &e.State, &e.PitchDeg, &e.RollDeg, &e.Movement, &e.TimestampMs); err != nil {
			return nil, fmt.Errorf("failed to scan posture event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
