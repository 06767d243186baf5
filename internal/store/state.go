package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
)

// StateStore persists the whole AppState as a single JSON snapshot. There is
// one row; every save overwrites it wholesale. No partial writes, no
// versioned migrations on the snapshot itself.
type StateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStateStore(db *sql.DB, logger *slog.Logger) *StateStore {
	return &StateStore{db: db, logger: logger}
}

// Load reads the snapshot and deserializes it. A missing row or a snapshot
// that fails to parse both yield a fresh default state: prior-state loss on
// corruption is accepted rather than reported as a distinct error.
func (s *StateStore) Load() (*model.AppState, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM app_state WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return model.NewAppState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load app state: %w", err)
	}

	state := &model.AppState{}
	if err := json.Unmarshal([]byte(data), state); err != nil {
		s.logger.Warn("app state snapshot unreadable, starting fresh", "error", err)
		return model.NewAppState(), nil
	}
	if state.Days == nil {
		state.Days = make(map[string]*model.DayRecord)
	}
	if state.DeviceID == "" {
		state.DeviceID = model.NewAppState().DeviceID
	}
	return state, nil
}

// Save serializes the state and overwrites the previous snapshot.
func (s *StateStore) Save(state *model.AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal app state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO app_state (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save app state: %w", err)
	}
	return nil
}
