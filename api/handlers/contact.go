package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lukaszglowacz/sports-messenger/config"
	"github.com/lukaszglowacz/sports-messenger/contacts"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// Contact exported for testing purposes
type Contact struct {
	Service  *contacts.Service
	Validate *validator.Validate
}

// ContactsHandler returns the viewer's partitioned contact list
func (c Contact) ContactsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("userId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	list, err := c.Service.ListContacts(r.Context(), userID)
	if err != nil {
		c.exchangeErrorStatus("failed to list contacts", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(list)
}

// CreateExchangeRequestHandler opens a new PENDING exchange between the
// two users in the request body
func (c Contact) CreateExchangeRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := c.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid exchange payload", http.StatusBadRequest, w, err)
		return
	}

	fromID, err := primitive.ObjectIDFromHex(req.FromUserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	toID, err := primitive.ObjectIDFromHex(req.ToUserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	exchange, err := c.Service.CreateExchangeRequest(r.Context(), fromID, toID, time.Now())
	if err != nil {
		c.exchangeErrorStatus("failed to create exchange request", w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(exchange)
}

// AcceptExchangeHandler accepts a pending exchange on behalf of the
// acting user in the request body
func (c Contact) AcceptExchangeHandler(w http.ResponseWriter, r *http.Request) {
	c.respondExchange(w, r, c.Service.AcceptExchange)
}

// RejectExchangeHandler rejects a pending exchange on behalf of the
// acting user in the request body
func (c Contact) RejectExchangeHandler(w http.ResponseWriter, r *http.Request) {
	c.respondExchange(w, r, c.Service.RejectExchange)
}

func (c Contact) respondExchange(w http.ResponseWriter, r *http.Request,
	respond func(ctx context.Context, exchangeID, actingID primitive.ObjectID, now time.Time) (*models.ContactExchange, error)) {

	exchangeID, err := primitive.ObjectIDFromHex(mux.Vars(r)["exchange_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var action models.ExchangeAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := c.Validate.Struct(action); err != nil {
		config.ErrorStatus("invalid exchange action payload", http.StatusBadRequest, w, err)
		return
	}

	actingID, err := primitive.ObjectIDFromHex(action.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	exchange, err := respond(r.Context(), exchangeID, actingID, time.Now())
	if err != nil {
		c.exchangeErrorStatus("failed to respond to exchange", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(exchange)
}

// DisconnectHandler deletes an exchange, reverting the pair to
// "no exchange" so a new request can be sent later
func (c Contact) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	exchangeID, err := primitive.ObjectIDFromHex(mux.Vars(r)["exchange_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	actingID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("userId"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if err := c.Service.Disconnect(r.Context(), exchangeID, actingID); err != nil {
		c.exchangeErrorStatus("failed to disconnect contact", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "contact disconnected"}`))
}

// exchangeErrorStatus maps workflow errors onto HTTP statuses
func (c Contact) exchangeErrorStatus(message string, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contacts.ErrUserNotFound), errors.Is(err, contacts.ErrExchangeNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	case errors.Is(err, contacts.ErrNotParticipant):
		config.ErrorStatus(message, http.StatusForbidden, w, err)
	case errors.Is(err, contacts.ErrNotPending),
		errors.Is(err, contacts.ErrOwnRequest),
		errors.Is(err, contacts.ErrDuplicateExchange),
		errors.Is(err, contacts.ErrSameRole):
		config.ErrorStatus(message, http.StatusBadRequest, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}
