package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"flujo/internal/ledger"
)

// ImportMessage carries one batch of records to the import worker.
// The records are flattened into the message body.
type ImportMessage struct {
	BatchID string `json:"batchId"`
	Source  string `json:"source"`
	ledger.Records
	Timestamp time.Time `json:"timestamp"`
}

// NewImportMessage creates a new import message stamped with the current time
func NewImportMessage(batchID, source string, recs ledger.Records) *ImportMessage {
	return &ImportMessage{
		BatchID:   batchID,
		Source:    source,
		Records:   recs,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportMessageFromJSON creates a message from JSON bytes
func ImportMessageFromJSON(data []byte) (*ImportMessage, error) {
	var msg ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BatchID == "" {
		return nil, errors.New("import message without batch id")
	}
	return &msg, nil
}
