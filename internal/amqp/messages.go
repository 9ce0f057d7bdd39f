package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"despeses/internal/core"
)

// Dataset names the kind of per-month data a sync message refers to.
type Dataset string

const (
	DatasetExpenses Dataset = "expenses"
	DatasetDebts    Dataset = "debts"
)

// MessageVersion is bumped when the wire format changes; consumers reject
// versions they do not know.
const MessageVersion = 1

// DatasetSyncMessage tells the worker that one user's dataset changed for
// one period. It carries no rows: the worker re-reads the authoritative
// store, so stale or duplicated deliveries are harmless.
type DatasetSyncMessage struct {
	Dataset   Dataset   `json:"dataset"`
	Username  string    `json:"username"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
	Version   int64     `json:"version"`
}

func NewDatasetSyncMessage(dataset Dataset, username string, p core.Period) *DatasetSyncMessage {
	return &DatasetSyncMessage{
		Dataset:   dataset,
		Username:  username,
		Year:      p.Year,
		Month:     int(p.Month),
		Timestamp: time.Now(),
		Version:   MessageVersion,
	}
}

func (m *DatasetSyncMessage) Validate() error {
	switch m.Dataset {
	case DatasetExpenses, DatasetDebts:
	default:
		return fmt.Errorf("unknown dataset %q", m.Dataset)
	}
	if err := core.ValidateUsername(m.Username); err != nil {
		return fmt.Errorf("username %q: %w", m.Username, err)
	}
	if _, err := core.NewPeriod(m.Year, m.Month); err != nil {
		return err
	}
	if m.Version != MessageVersion {
		return fmt.Errorf("unsupported message version %d", m.Version)
	}
	return nil
}

// Period returns the period the message refers to.
func (m *DatasetSyncMessage) Period() (core.Period, error) {
	return core.NewPeriod(m.Year, m.Month)
}

func (m *DatasetSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetSyncMessageFromJSON(data []byte) (*DatasetSyncMessage, error) {
	var msg DatasetSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
