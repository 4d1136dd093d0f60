package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lukaszglowacz/sports-messenger/config"
	"github.com/lukaszglowacz/sports-messenger/databases"
	"github.com/lukaszglowacz/sports-messenger/messaging"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// Message exported for testing purposes
type Message struct {
	DB        databases.MessageDatabase
	Validator *messaging.Validator
	Validate  *validator.Validate
}

// SendMessageHandler validates the send against the messaging rules and
// inserts the message when allowed. Refusals are returned as the
// engine's decision body with the mapped status code.
func (m Message) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := m.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid message payload", http.StatusBadRequest, w, err)
		return
	}

	senderID, err := primitive.ObjectIDFromHex(req.SenderID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	now := time.Now()
	decision, err := m.Validator.CanSend(r.Context(), senderID, recipientID, now)
	if err != nil {
		config.ErrorStatus("failed to validate message", http.StatusInternalServerError, w, err)
		return
	}
	if !decision.Allowed {
		w.WriteHeader(decisionStatus(decision))
		json.NewEncoder(w).Encode(decision)
		return
	}

	message := models.Message{
		ID:          primitive.NewObjectID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     strings.TrimSpace(req.Content),
		CreatedAt:   primitive.NewDateTimeFromTime(now),
		Read:        false,
	}
	if _, err := m.DB.InsertOne(r.Context(), message); err != nil {
		config.ErrorStatus("failed to create new message", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// ConversationHandler returns the paginated history between two users,
// oldest first, and marks the contact's messages to the viewer as read
func (m Message) ConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("userId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	contactID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("contactId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		zap.S().Debugf("limit not set, using default of 50")
		limit = 50
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 0
	}

	filter := bson.M{"$or": []bson.M{
		{"senderId": userID, "recipientId": contactID},
		{"senderId": contactID, "recipientId": userID},
	}}
	opts := databases.Paginate(limit, page)
	opts.Sort = bson.D{{Key: "createdAt", Value: 1}}

	dbResp, err := m.DB.Find(r.Context(), filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get messages", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Message{}
	}

	// read-marking is a display concern handled here, never by the
	// validation engine
	_, err = m.DB.UpdateMany(r.Context(),
		bson.M{"senderId": contactID, "recipientId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		zap.S().Warnw("failed to mark messages as read", "error", err)
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// LimitsHandler returns the quota snapshot for a user, optionally
// including the per-official count when officialId is supplied
func (m Message) LimitsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("userId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var officialID *primitive.ObjectID
	if raw := r.URL.Query().Get("officialId"); raw != "" {
		oID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		officialID = &oID
	}

	limits, err := m.Validator.Limits(r.Context(), userID, time.Now(), officialID)
	if errors.Is(err, messaging.ErrUserNotFound) {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to get message limits", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(limits)
}

// ValidateHandler runs the send rules without sending, so the frontend
// can disable the composer before the user types
func (m Message) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	senderID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("senderId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	recipientID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("recipientId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	decision, err := m.Validator.CanSend(r.Context(), senderID, recipientID, time.Now())
	if err != nil {
		config.ErrorStatus("failed to validate message", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(decision)
}

// decisionStatus maps a refusal to its HTTP status: quota refusals are
// 429, unknown users 404, everything else 400
func decisionStatus(decision models.Validation) int {
	switch {
	case decision.Code == messaging.CodeUserNotFound:
		return http.StatusNotFound
	case strings.Contains(decision.Code, "LIMIT"):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
