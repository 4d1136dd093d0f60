package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lukaszglowacz/sports-messenger/api/handlers"
	"github.com/lukaszglowacz/sports-messenger/databases/mocks"
	"github.com/lukaszglowacz/sports-messenger/messaging"
	"github.com/lukaszglowacz/sports-messenger/models"
)

func newMessageHandler(users *mocks.UserDatabase, messages *mocks.MessageDatabase, exchanges *mocks.ExchangeDatabase) handlers.Message {
	return handlers.Message{
		DB:        messages,
		Validator: messaging.New(users, messages, exchanges, time.UTC),
		Validate:  validator.New(),
	}
}

func mockUser(users *mocks.UserDatabase, id primitive.ObjectID, name string, role models.Role) {
	users.On("FindOne", mock.Anything, bson.M{"_id": id}).
		Return(&models.User{ID: id, Name: name, Role: role}, nil)
}

func sendBody(senderID, recipientID primitive.ObjectID, content string) *strings.Reader {
	return strings.NewReader(fmt.Sprintf(
		`{"sender_id": %q, "recipient_id": %q, "content": %q}`,
		senderID.Hex(), recipientID.Hex(), content,
	))
}

func TestMessage_SendMessageHandlerCreated(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	senderID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	mockUser(users, senderID, "Athlete One", models.RoleAthlete)
	mockUser(users, recipientID, "Athlete Two", models.RoleAthlete)
	messages.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	messages.On("InsertOne", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.SenderID == senderID && msg.Content == "see you at practice" && !msg.Read
	})).Return(&mocks.InsertOneResultHelper{}, nil)

	req, _ := http.NewRequest("POST", "/api/v1/messages", sendBody(senderID, recipientID, "  see you at practice  "))
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var created models.Message
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "see you at practice", created.Content)
	messages.AssertExpectations(t)
}

func TestMessage_SendMessageHandlerExchangeRequired(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	senderID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	mockUser(users, senderID, "Athlete One", models.RoleAthlete)
	mockUser(users, recipientID, "Manager", models.RoleOfficial)
	exchanges.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("POST", "/api/v1/messages", sendBody(senderID, recipientID, "hello"))
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var decision models.Validation
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, messaging.CodeExchangeRequired, decision.Code)
	messages.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestMessage_SendMessageHandlerDailyLimit(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	senderID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	mockUser(users, senderID, "Athlete One", models.RoleAthlete)
	mockUser(users, recipientID, "Athlete Two", models.RoleAthlete)
	messages.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(100), nil)

	req, _ := http.NewRequest("POST", "/api/v1/messages", sendBody(senderID, recipientID, "one more"))
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	var decision models.Validation
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.Equal(t, messaging.CodeDailyLimitExceeded, decision.Code)
	assert.Equal(t, int64(100), *decision.Current)
	messages.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestMessage_SendMessageHandlerUnknownUser(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	senderID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("POST", "/api/v1/messages", sendBody(senderID, recipientID, "hello"))
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMessage_SendMessageHandlerInvalidPayload(t *testing.T) {
	m := newMessageHandler(&mocks.UserDatabase{}, &mocks.MessageDatabase{}, &mocks.ExchangeDatabase{})

	// missing content trips the struct validation before any lookup
	body := strings.NewReader(fmt.Sprintf(`{"sender_id": %q, "recipient_id": %q}`,
		primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/messages", body)
	rr := httptest.NewRecorder()

	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid message payload")
}

func TestMessage_SendMessageHandlerBadHex(t *testing.T) {
	m := newMessageHandler(&mocks.UserDatabase{}, &mocks.MessageDatabase{}, &mocks.ExchangeDatabase{})

	body := strings.NewReader(`{"sender_id": "asdf", "recipient_id": "asdf", "content": "hello"}`)
	req, _ := http.NewRequest("POST", "/api/v1/messages", body)
	rr := httptest.NewRecorder()

	http.HandlerFunc(m.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}

func TestMessage_ConversationHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	userID := primitive.NewObjectID()
	contactID := primitive.NewObjectID()

	history := []models.Message{
		{ID: primitive.NewObjectID(), SenderID: contactID, RecipientID: userID, Content: "hello"},
		{ID: primitive.NewObjectID(), SenderID: userID, RecipientID: contactID, Content: "hi"},
	}
	messages.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(history, nil)
	messages.On("UpdateMany", mock.Anything,
		bson.M{"senderId": contactID, "recipientId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	).Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	url := fmt.Sprintf("/api/v1/messages?userId=%s&contactId=%s", userID.Hex(), contactID.Hex())
	req, _ := http.NewRequest("GET", url, nil)
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.ConversationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got []models.Message
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	messages.AssertExpectations(t)
}

func TestMessage_ConversationHandlerEmpty(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	messages.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	messages.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	url := fmt.Sprintf("/api/v1/messages?userId=%s&contactId=%s",
		primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
	req, _ := http.NewRequest("GET", url, nil)
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.ConversationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestMessage_LimitsHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	userID := primitive.NewObjectID()
	mockUser(users, userID, "Athlete One", models.RoleAthlete)
	messages.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(3), nil)

	req, _ := http.NewRequest("GET", "/api/v1/messages/limits?userId="+userID.Hex(), nil)
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.LimitsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var limits models.MessageLimits
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &limits))
	assert.Equal(t, int64(3), limits.TotalToday)
	assert.Equal(t, int64(messaging.DailyLimit), *limits.DailyLimit)
	assert.False(t, limits.IsExceeded)
}

func TestMessage_LimitsHandlerUnknownUser(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("GET", "/api/v1/messages/limits?userId="+primitive.NewObjectID().Hex(), nil)
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.LimitsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get user by ID")
}

func TestMessage_ValidateHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	senderID := primitive.NewObjectID()
	recipientID := primitive.NewObjectID()

	mockUser(users, senderID, "Manager", models.RoleOfficial)
	mockUser(users, recipientID, "Coach", models.RoleOfficial)

	url := fmt.Sprintf("/api/v1/messages/validate?senderId=%s&recipientId=%s", senderID.Hex(), recipientID.Hex())
	req, _ := http.NewRequest("POST", url, nil)
	rr := httptest.NewRecorder()

	m := newMessageHandler(users, messages, exchanges)
	http.HandlerFunc(m.ValidateHandler).ServeHTTP(rr, req)

	// the dry run always answers 200, the refusal lives in the body
	assert.Equal(t, http.StatusOK, rr.Code)

	var decision models.Validation
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, messaging.CodeOfficialsCantMessage, decision.Code)
}
