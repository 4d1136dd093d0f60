package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ExchangeStatus is the lifecycle state of a contact exchange
type ExchangeStatus string

// Exchange lifecycle. PENDING is the only non-terminal state; a record
// is deleted outright on disconnect rather than transitioned.
const (
	ExchangePending  ExchangeStatus = "PENDING"
	ExchangeAccepted ExchangeStatus = "ACCEPTED"
	ExchangeRejected ExchangeStatus = "REJECTED"
)

// ContactExchange holds the structure for the exchanges collection in mongo.
// At most one document exists per (athleteId, officialId) pair, enforced
// by a unique compound index.
type ContactExchange struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id"`
	AthleteID   primitive.ObjectID  `json:"athleteId" bson:"athleteId"`
	OfficialID  primitive.ObjectID  `json:"officialId" bson:"officialId"`
	Status      ExchangeStatus      `json:"status" bson:"status"`
	InitiatedBy primitive.ObjectID  `json:"initiatedBy" bson:"initiatedBy"`
	CreatedAt   primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	RespondedAt *primitive.DateTime `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
}

// ExchangeRequest is the request body for creating an exchange request
type ExchangeRequest struct {
	FromUserID string `json:"from_user_id" validate:"required"`
	ToUserID   string `json:"to_user_id" validate:"required"`
}

// ExchangeAction is the request body for accepting or rejecting an
// exchange request
type ExchangeAction struct {
	UserID string `json:"user_id" validate:"required"`
}
