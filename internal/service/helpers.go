package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
)

// timeNow is swapped in tests.
var timeNow = time.Now

func parseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidArgument("malformed user id").WithCause(err)
	}
	return oid, nil
}

func removeID(ids []primitive.ObjectID, target primitive.ObjectID) []primitive.ObjectID {
	return Filter(ids, func(id primitive.ObjectID) bool { return id != target })
}
