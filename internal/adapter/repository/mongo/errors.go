package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server error labels.
const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// IsRetryable reports errors labelled by the server as safe to retry as a whole transaction.
func IsRetryable(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorLabel(labelTransientTransaction) || se.HasErrorLabel(labelUnknownCommitResult)
}
