package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ContactEntry is one row in a user's contact list with the derived
// display data the frontend needs to render it
type ContactEntry struct {
	ID              primitive.ObjectID  `json:"_id"`
	Name            string              `json:"name"`
	Role            Role                `json:"role"`
	ExchangeStatus  *ExchangeStatus     `json:"exchangeStatus"`
	ExchangeID      *primitive.ObjectID `json:"exchangeId"`
	CanMessage      bool                `json:"canMessage"`
	CanSendRequest  bool                `json:"canSendRequest"`
	LastMessage     *string             `json:"lastMessage"`
	LastMessageTime *primitive.DateTime `json:"lastMessageTime"`
	UnreadCount     int64               `json:"unreadCount"`
}

// PendingRequest is an incoming exchange request awaiting the viewer's
// response
type PendingRequest struct {
	ExchangeID primitive.ObjectID `json:"exchangeId"`
	FromUser   User               `json:"fromUser"`
	ToUser     User               `json:"toUser"`
	Status     ExchangeStatus     `json:"status"`
	CreatedAt  primitive.DateTime `json:"createdAt"`
}

// ContactList partitions every other user relative to the viewer
type ContactList struct {
	Contacts          []ContactEntry   `json:"contacts"`
	PotentialContacts []ContactEntry   `json:"potentialContacts"`
	PendingRequests   []PendingRequest `json:"pendingRequests"`
}
