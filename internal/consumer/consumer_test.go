package consumer

import (
	"testing"
)

func TestNewConsumer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		topic   string
		groupID string
		wantErr bool
	}{
		{"valid params", "localhost:9092", "risk.flagged", "triage-group", false},
		{"empty brokers", "", "risk.flagged", "triage-group", true},
		{"empty topic", "localhost:9092", "", "triage-group", true},
		{"empty group", "localhost:9092", "risk.flagged", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConsumer(tt.brokers, tt.topic, tt.groupID)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConsumer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if c != nil {
				c.Close()
			}
		})
	}
}
