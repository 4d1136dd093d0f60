package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Message holds the structure for the messages collection in mongo.
// Documents are append-only; only the read flag is ever updated after
// insert, and only by the conversation handler.
type Message struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	SenderID    primitive.ObjectID `json:"senderId" bson:"senderId"`
	RecipientID primitive.ObjectID `json:"recipientId" bson:"recipientId"`
	Content     string             `json:"content" bson:"content"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	Read        bool               `json:"read" bson:"read"`
}

// SendMessageRequest is the request body for sending a message
type SendMessageRequest struct {
	SenderID    string `json:"sender_id" validate:"required"`
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required,min=1,max=1000"`
}
