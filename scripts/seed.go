package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lukaszglowacz/sports-messenger/models"
)

// Seeds a local database with the demo scenario: two athletes who can
// message each other freely, one official connected to the second
// athlete through an accepted exchange, and a short conversation.
// Usage: go run scripts/seed.go
func main() {
	uri := os.Getenv("DB_URI")
	if uri == "" {
		uri = "mongodb://127.0.0.1:27017"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "sports_messenger"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		fmt.Printf("failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)

	count, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		fmt.Printf("failed to count users: %v\n", err)
		os.Exit(1)
	}
	if count > 0 {
		fmt.Println("database already contains data, skipping seed")
		return
	}

	now := time.Now()
	athlete1 := models.User{
		ID: primitive.NewObjectID(), Name: "Athlete One", Email: "athlete1@test.com",
		Role: models.RoleAthlete, CreatedAt: primitive.NewDateTimeFromTime(now.AddDate(0, 0, -30)),
	}
	athlete2 := models.User{
		ID: primitive.NewObjectID(), Name: "Athlete Two", Email: "athlete2@test.com",
		Role: models.RoleAthlete, CreatedAt: primitive.NewDateTimeFromTime(now.AddDate(0, 0, -25)),
	}
	official := models.User{
		ID: primitive.NewObjectID(), Name: "Manager", Email: "manager@test.com",
		Role: models.RoleOfficial, CreatedAt: primitive.NewDateTimeFromTime(now.AddDate(0, 0, -20)),
	}

	users := []interface{}{athlete1, athlete2, official}
	if _, err := db.Collection("users").InsertMany(ctx, users); err != nil {
		fmt.Printf("failed to insert users: %v\n", err)
		os.Exit(1)
	}

	respondedAt := primitive.NewDateTimeFromTime(now.AddDate(0, 0, -9))
	exchange := models.ContactExchange{
		ID:          primitive.NewObjectID(),
		AthleteID:   athlete2.ID,
		OfficialID:  official.ID,
		Status:      models.ExchangeAccepted,
		InitiatedBy: athlete2.ID,
		CreatedAt:   primitive.NewDateTimeFromTime(now.AddDate(0, 0, -10)),
		RespondedAt: &respondedAt,
	}
	if _, err := db.Collection("exchanges").InsertOne(ctx, exchange); err != nil {
		fmt.Printf("failed to insert exchange: %v\n", err)
		os.Exit(1)
	}

	messages := []interface{}{
		models.Message{
			ID: primitive.NewObjectID(), SenderID: athlete1.ID, RecipientID: athlete2.ID,
			Content: "Ready for training tomorrow?", CreatedAt: primitive.NewDateTimeFromTime(now.Add(-2 * time.Hour)), Read: true,
		},
		models.Message{
			ID: primitive.NewObjectID(), SenderID: athlete2.ID, RecipientID: athlete1.ID,
			Content: "Yes, see you at 8.", CreatedAt: primitive.NewDateTimeFromTime(now.Add(-90 * time.Minute)), Read: true,
		},
		models.Message{
			ID: primitive.NewObjectID(), SenderID: athlete2.ID, RecipientID: official.ID,
			Content: "Could we go over the schedule?", CreatedAt: primitive.NewDateTimeFromTime(now.Add(-time.Hour)), Read: false,
		},
	}
	if _, err := db.Collection("messages").InsertMany(ctx, messages); err != nil {
		fmt.Printf("failed to insert messages: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("seeded 3 users, 1 accepted exchange, 3 messages")
}
