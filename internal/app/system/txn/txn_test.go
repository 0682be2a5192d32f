package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset by peer"), false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 51", mongo.CommandError{Code: 51, Message: "Illegal operation"}, true},
		{"code 263", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"other code", mongo.CommandError{Code: 112, Message: "WriteConflict"}, false},
		{"wrapped command error", fmt.Errorf("commit batch: %w", mongo.CommandError{Code: 20}), true},
		{"replica set wording", errors.New("Transaction failed: this node is not a REPLICA SET member"), true},
		{"session wording", errors.New("sessions are not supported by the MongoDB cluster"), true},
		{"transaction alone", errors.New("transaction aborted"), false},
		{"transaction and session", errors.New("cannot start transaction in current session state"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
