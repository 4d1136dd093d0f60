package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role identifies which side of the messaging rules a user falls under
type Role string

// The two user roles. Officials have no sending quota but can never
// message each other; athletes are quota-limited.
const (
	RoleAthlete  Role = "ATHLETE"
	RoleOfficial Role = "OFFICIAL"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Role      Role               `json:"role" bson:"role"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
