package notifier

import (
	"testing"
)

func TestNewNotifier_Validation(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		topic   string
		wantErr bool
	}{
		{"valid params", "localhost:9092", "notifications", false},
		{"empty brokers", "", "notifications", true},
		{"empty topic", "localhost:9092", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNotifier(tt.brokers, tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewNotifier() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != nil {
				n.Close()
			}
		})
	}
}
