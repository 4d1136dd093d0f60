package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lukaszglowacz/sports-messenger/api/handlers"
	"github.com/lukaszglowacz/sports-messenger/contacts"
	"github.com/lukaszglowacz/sports-messenger/databases/mocks"
	"github.com/lukaszglowacz/sports-messenger/models"
)

func newContactHandler(users *mocks.UserDatabase, messages *mocks.MessageDatabase, exchanges *mocks.ExchangeDatabase) handlers.Contact {
	return handlers.Contact{
		Service:  contacts.New(users, messages, exchanges),
		Validate: validator.New(),
	}
}

// contactRouter registers the exchange routes so mux.Vars resolves
func contactRouter(c handlers.Contact) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/contacts", c.ContactsHandler).Methods("GET")
	r.HandleFunc("/api/v1/contacts/exchange/request", c.CreateExchangeRequestHandler).Methods("POST")
	r.HandleFunc("/api/v1/contacts/exchange/{exchange_id}/accept", c.AcceptExchangeHandler).Methods("POST")
	r.HandleFunc("/api/v1/contacts/exchange/{exchange_id}/reject", c.RejectExchangeHandler).Methods("POST")
	r.HandleFunc("/api/v1/contacts/exchange/{exchange_id}", c.DisconnectHandler).Methods("DELETE")
	return r
}

func TestContact_CreateExchangeRequestHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	fromID := primitive.NewObjectID()
	toID := primitive.NewObjectID()

	mockUser(users, fromID, "Athlete One", models.RoleAthlete)
	mockUser(users, toID, "Manager", models.RoleOfficial)
	exchanges.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	exchanges.On("InsertOne", mock.Anything, mock.Anything).Return(&mocks.InsertOneResultHelper{}, nil)

	body := strings.NewReader(fmt.Sprintf(`{"from_user_id": %q, "to_user_id": %q}`, fromID.Hex(), toID.Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/request", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var exchange models.ContactExchange
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exchange))
	assert.Equal(t, models.ExchangePending, exchange.Status)
	assert.Equal(t, fromID, exchange.InitiatedBy)
}

func TestContact_CreateExchangeRequestHandlerSameRole(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	fromID := primitive.NewObjectID()
	toID := primitive.NewObjectID()

	mockUser(users, fromID, "Manager", models.RoleOfficial)
	mockUser(users, toID, "Coach", models.RoleOfficial)

	body := strings.NewReader(fmt.Sprintf(`{"from_user_id": %q, "to_user_id": %q}`, fromID.Hex(), toID.Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/request", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to create exchange request")
}

func TestContact_CreateExchangeRequestHandlerDuplicate(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	fromID := primitive.NewObjectID()
	toID := primitive.NewObjectID()

	mockUser(users, fromID, "Athlete One", models.RoleAthlete)
	mockUser(users, toID, "Manager", models.RoleOfficial)
	exchanges.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.ContactExchange{ID: primitive.NewObjectID(), Status: models.ExchangePending}, nil)

	body := strings.NewReader(fmt.Sprintf(`{"from_user_id": %q, "to_user_id": %q}`, fromID.Hex(), toID.Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/request", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestContact_CreateExchangeRequestHandlerUnknownUser(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	body := strings.NewReader(fmt.Sprintf(`{"from_user_id": %q, "to_user_id": %q}`,
		primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/request", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContact_AcceptExchangeHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	athleteID := primitive.NewObjectID()
	officialID := primitive.NewObjectID()
	exchange := &models.ContactExchange{
		ID:          primitive.NewObjectID(),
		AthleteID:   athleteID,
		OfficialID:  officialID,
		Status:      models.ExchangePending,
		InitiatedBy: athleteID,
	}

	exchanges.On("FindOne", mock.Anything, bson.M{"_id": exchange.ID}).Return(exchange, nil)
	exchanges.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	body := strings.NewReader(fmt.Sprintf(`{"user_id": %q}`, officialID.Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/"+exchange.ID.Hex()+"/accept", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var updated models.ContactExchange
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, models.ExchangeAccepted, updated.Status)
}

func TestContact_RejectExchangeHandlerOwnRequest(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	athleteID := primitive.NewObjectID()
	exchange := &models.ContactExchange{
		ID:          primitive.NewObjectID(),
		AthleteID:   athleteID,
		OfficialID:  primitive.NewObjectID(),
		Status:      models.ExchangePending,
		InitiatedBy: athleteID,
	}
	exchanges.On("FindOne", mock.Anything, mock.Anything).Return(exchange, nil)

	body := strings.NewReader(fmt.Sprintf(`{"user_id": %q}`, athleteID.Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/"+exchange.ID.Hex()+"/reject", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestContact_AcceptExchangeHandlerNotParticipant(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	exchange := &models.ContactExchange{
		ID:          primitive.NewObjectID(),
		AthleteID:   primitive.NewObjectID(),
		OfficialID:  primitive.NewObjectID(),
		Status:      models.ExchangePending,
		InitiatedBy: primitive.NewObjectID(),
	}
	exchanges.On("FindOne", mock.Anything, mock.Anything).Return(exchange, nil)

	body := strings.NewReader(fmt.Sprintf(`{"user_id": %q}`, primitive.NewObjectID().Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/"+exchange.ID.Hex()+"/accept", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestContact_AcceptExchangeHandlerNotFound(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	exchanges.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	body := strings.NewReader(fmt.Sprintf(`{"user_id": %q}`, primitive.NewObjectID().Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/"+primitive.NewObjectID().Hex()+"/accept", body)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to respond to exchange")
}

func TestContact_AcceptExchangeHandlerBadHex(t *testing.T) {
	c := newContactHandler(&mocks.UserDatabase{}, &mocks.MessageDatabase{}, &mocks.ExchangeDatabase{})

	body := strings.NewReader(fmt.Sprintf(`{"user_id": %q}`, primitive.NewObjectID().Hex()))
	req, _ := http.NewRequest("POST", "/api/v1/contacts/exchange/asdf/accept", body)
	rr := httptest.NewRecorder()

	contactRouter(c).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}

func TestContact_DisconnectHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	athleteID := primitive.NewObjectID()
	exchange := &models.ContactExchange{
		ID:         primitive.NewObjectID(),
		AthleteID:  athleteID,
		OfficialID: primitive.NewObjectID(),
		Status:     models.ExchangeAccepted,
	}
	exchanges.On("FindOne", mock.Anything, bson.M{"_id": exchange.ID}).Return(exchange, nil)
	exchanges.On("DeleteOne", mock.Anything, bson.M{"_id": exchange.ID}).Return(int64(1), nil)

	url := fmt.Sprintf("/api/v1/contacts/exchange/%s?userId=%s", exchange.ID.Hex(), athleteID.Hex())
	req, _ := http.NewRequest("DELETE", url, nil)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "contact disconnected")
	exchanges.AssertExpectations(t)
}

func TestContact_ContactsHandler(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	athleteID := primitive.NewObjectID()
	mockUser(users, athleteID, "Athlete One", models.RoleAthlete)
	users.On("Find", mock.Anything, mock.Anything).Return([]models.User{}, nil)
	exchanges.On("Find", mock.Anything, mock.Anything).Return([]models.ContactExchange{}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/contacts?userId="+athleteID.Hex(), nil)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var list models.ContactList
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list.Contacts)
	assert.Empty(t, list.PotentialContacts)
}

func TestContact_ContactsHandlerUnknownUser(t *testing.T) {
	users := &mocks.UserDatabase{}
	messages := &mocks.MessageDatabase{}
	exchanges := &mocks.ExchangeDatabase{}

	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req, _ := http.NewRequest("GET", "/api/v1/contacts?userId="+primitive.NewObjectID().Hex(), nil)
	rr := httptest.NewRecorder()

	contactRouter(newContactHandler(users, messages, exchanges)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to list contacts")
}
