// Package contacts manages the contact-exchange workflow between
// athletes and officials and builds the partitioned contact lists the
// frontend renders.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lukaszglowacz/sports-messenger/databases"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// Workflow violations surfaced to handlers for status mapping
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrExchangeNotFound  = errors.New("exchange not found")
	ErrNotParticipant    = errors.New("user is not a participant in this exchange")
	ErrNotPending        = errors.New("exchange is not pending")
	ErrOwnRequest        = errors.New("cannot respond to your own request")
	ErrDuplicateExchange = errors.New("exchange already exists for this pair")
	ErrSameRole          = errors.New("contact exchange only allowed between an athlete and an official")
)

// Service implements the exchange state machine and contact listing
// over the injected database handles
type Service struct {
	Users     databases.UserDatabase
	Messages  databases.MessageDatabase
	Exchanges databases.ExchangeDatabase
}

// New initializes a contact service with the provided database handles
func New(users databases.UserDatabase, messages databases.MessageDatabase, exchanges databases.ExchangeDatabase) *Service {
	return &Service{Users: users, Messages: messages, Exchanges: exchanges}
}

// CreateExchangeRequest opens a PENDING exchange between an athlete and
// an official. Any existing record for the pair, whatever its status,
// is a duplicate; the pair frees up only when the record is deleted
// through Disconnect.
func (s *Service) CreateExchangeRequest(ctx context.Context, fromID, toID primitive.ObjectID, now time.Time) (*models.ContactExchange, error) {
	fromUser, err := s.findUser(ctx, fromID)
	if err != nil {
		return nil, err
	}
	toUser, err := s.findUser(ctx, toID)
	if err != nil {
		return nil, err
	}

	if fromUser.Role == toUser.Role {
		return nil, ErrSameRole
	}

	athleteID, officialID := fromID, toID
	if fromUser.Role == models.RoleOfficial {
		athleteID, officialID = toID, fromID
	}

	pair := bson.M{"athleteId": athleteID, "officialId": officialID}
	existing, err := s.Exchanges.FindOne(ctx, pair)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to look up existing exchange: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateExchange
	}

	exchange := models.ContactExchange{
		ID:          primitive.NewObjectID(),
		AthleteID:   athleteID,
		OfficialID:  officialID,
		Status:      models.ExchangePending,
		InitiatedBy: fromID,
		CreatedAt:   primitive.NewDateTimeFromTime(now),
	}
	if _, err := s.Exchanges.InsertOne(ctx, exchange); err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}
	return &exchange, nil
}

// AcceptExchange transitions a PENDING exchange to ACCEPTED. Only the
// non-initiating participant may respond.
func (s *Service) AcceptExchange(ctx context.Context, exchangeID, actingID primitive.ObjectID, now time.Time) (*models.ContactExchange, error) {
	return s.respond(ctx, exchangeID, actingID, models.ExchangeAccepted, now)
}

// RejectExchange transitions a PENDING exchange to REJECTED. Only the
// non-initiating participant may respond.
func (s *Service) RejectExchange(ctx context.Context, exchangeID, actingID primitive.ObjectID, now time.Time) (*models.ContactExchange, error) {
	return s.respond(ctx, exchangeID, actingID, models.ExchangeRejected, now)
}

func (s *Service) respond(ctx context.Context, exchangeID, actingID primitive.ObjectID, status models.ExchangeStatus, now time.Time) (*models.ContactExchange, error) {
	exchange, err := s.findExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if actingID != exchange.AthleteID && actingID != exchange.OfficialID {
		return nil, ErrNotParticipant
	}
	if actingID == exchange.InitiatedBy {
		return nil, ErrOwnRequest
	}
	if exchange.Status != models.ExchangePending {
		return nil, ErrNotPending
	}

	respondedAt := primitive.NewDateTimeFromTime(now)
	_, err = s.Exchanges.UpdateOne(ctx, bson.M{"_id": exchangeID}, bson.M{
		"$set": bson.M{"status": status, "respondedAt": respondedAt},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exchange: %w", err)
	}

	exchange.Status = status
	exchange.RespondedAt = &respondedAt
	return exchange, nil
}

// Disconnect deletes an exchange record, freeing the pair for a new
// request. Either participant can disconnect at any point.
func (s *Service) Disconnect(ctx context.Context, exchangeID, actingID primitive.ObjectID) error {
	exchange, err := s.findExchange(ctx, exchangeID)
	if err != nil {
		return err
	}
	if actingID != exchange.AthleteID && actingID != exchange.OfficialID {
		return ErrNotParticipant
	}
	if _, err := s.Exchanges.DeleteOne(ctx, bson.M{"_id": exchangeID}); err != nil {
		return fmt.Errorf("failed to delete exchange: %w", err)
	}
	return nil
}

// ListContacts partitions every other user relative to the viewer into
// messageable contacts, potential contacts a request could be sent to,
// and incoming pending requests.
func (s *Service) ListContacts(ctx context.Context, userID primitive.ObjectID) (*models.ContactList, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var list *models.ContactList
	if user.Role == models.RoleAthlete {
		list, err = s.listForAthlete(ctx, userID)
	} else {
		list, err = s.listForOfficial(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	list.PendingRequests, err = s.pendingRequests(ctx, user)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// listForAthlete: every other athlete is always a contact; officials
// are contacts only with an ACCEPTED exchange, potential otherwise.
func (s *Service) listForAthlete(ctx context.Context, athleteID primitive.ObjectID) (*models.ContactList, error) {
	list := &models.ContactList{
		Contacts:          []models.ContactEntry{},
		PotentialContacts: []models.ContactEntry{},
	}

	others, err := s.Users.Find(ctx, bson.M{"role": models.RoleAthlete, "_id": bson.M{"$ne": athleteID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	for _, other := range others {
		entry, err := s.contactEntry(ctx, athleteID, other, nil)
		if err != nil {
			return nil, err
		}
		list.Contacts = append(list.Contacts, entry)
	}

	accepted, err := s.Exchanges.Find(ctx, bson.M{"athleteId": athleteID, "status": models.ExchangeAccepted})
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted exchanges: %w", err)
	}
	for i := range accepted {
		official, err := s.findUser(ctx, accepted[i].OfficialID)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entry, err := s.contactEntry(ctx, athleteID, *official, &accepted[i])
		if err != nil {
			return nil, err
		}
		list.Contacts = append(list.Contacts, entry)
	}

	acceptedIDs := lo.Map(accepted, func(e models.ContactExchange, _ int) primitive.ObjectID {
		return e.OfficialID
	})

	officials, err := s.Users.Find(ctx, bson.M{"role": models.RoleOfficial})
	if err != nil {
		return nil, fmt.Errorf("failed to list officials: %w", err)
	}
	for _, official := range officials {
		if lo.Contains(acceptedIDs, official.ID) {
			continue
		}
		entry, err := s.potentialEntry(ctx, official, bson.M{
			"athleteId":  athleteID,
			"officialId": official.ID,
		})
		if err != nil {
			return nil, err
		}
		list.PotentialContacts = append(list.PotentialContacts, entry)
	}

	return list, nil
}

// listForOfficial: athletes with an ACCEPTED exchange are contacts, the
// rest are potential. Other officials never appear at all.
func (s *Service) listForOfficial(ctx context.Context, officialID primitive.ObjectID) (*models.ContactList, error) {
	list := &models.ContactList{
		Contacts:          []models.ContactEntry{},
		PotentialContacts: []models.ContactEntry{},
	}

	accepted, err := s.Exchanges.Find(ctx, bson.M{"officialId": officialID, "status": models.ExchangeAccepted})
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted exchanges: %w", err)
	}
	for i := range accepted {
		athlete, err := s.findUser(ctx, accepted[i].AthleteID)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entry, err := s.contactEntry(ctx, officialID, *athlete, &accepted[i])
		if err != nil {
			return nil, err
		}
		list.Contacts = append(list.Contacts, entry)
	}

	acceptedIDs := lo.Map(accepted, func(e models.ContactExchange, _ int) primitive.ObjectID {
		return e.AthleteID
	})

	athletes, err := s.Users.Find(ctx, bson.M{"role": models.RoleAthlete})
	if err != nil {
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	for _, athlete := range athletes {
		if lo.Contains(acceptedIDs, athlete.ID) {
			continue
		}
		entry, err := s.potentialEntry(ctx, athlete, bson.M{
			"athleteId":  athlete.ID,
			"officialId": officialID,
		})
		if err != nil {
			return nil, err
		}
		list.PotentialContacts = append(list.PotentialContacts, entry)
	}

	return list, nil
}

// contactEntry builds a messageable contact row with conversation
// preview data. exchange is nil for athlete-athlete pairs.
func (s *Service) contactEntry(ctx context.Context, viewerID primitive.ObjectID, other models.User, exchange *models.ContactExchange) (models.ContactEntry, error) {
	entry := models.ContactEntry{
		ID:         other.ID,
		Name:       other.Name,
		Role:       other.Role,
		CanMessage: true,
	}
	if exchange != nil {
		entry.ExchangeStatus = &exchange.Status
		entry.ExchangeID = &exchange.ID
	}

	last, err := s.lastMessage(ctx, viewerID, other.ID)
	if err != nil {
		return models.ContactEntry{}, err
	}
	if last != nil {
		entry.LastMessage = &last.Content
		entry.LastMessageTime = &last.CreatedAt
	}

	unread, err := s.Messages.CountDocuments(ctx, bson.M{
		"senderId":    other.ID,
		"recipientId": viewerID,
		"read":        false,
	})
	if err != nil {
		return models.ContactEntry{}, fmt.Errorf("failed to count unread messages: %w", err)
	}
	entry.UnreadCount = unread

	return entry, nil
}

// potentialEntry builds a row for a user the viewer cannot message yet.
// Any record for the pair, PENDING or REJECTED alike, blocks a new
// request until it is deleted, matching CreateExchangeRequest.
func (s *Service) potentialEntry(ctx context.Context, other models.User, pairFilter bson.M) (models.ContactEntry, error) {
	entry := models.ContactEntry{
		ID:   other.ID,
		Name: other.Name,
		Role: other.Role,
	}

	existing, err := s.Exchanges.FindOne(ctx, pairFilter)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return models.ContactEntry{}, fmt.Errorf("failed to look up exchange for pair: %w", err)
	}
	if existing != nil {
		entry.ExchangeStatus = &existing.Status
		entry.ExchangeID = &existing.ID
	}
	entry.CanSendRequest = existing == nil

	return entry, nil
}

// pendingRequests returns PENDING exchanges directed at the viewer, i.e.
// where the viewer is a participant but not the initiator.
func (s *Service) pendingRequests(ctx context.Context, user *models.User) ([]models.PendingRequest, error) {
	side := "athleteId"
	if user.Role == models.RoleOfficial {
		side = "officialId"
	}

	pending, err := s.Exchanges.Find(ctx, bson.M{
		side:          user.ID,
		"status":      models.ExchangePending,
		"initiatedBy": bson.M{"$ne": user.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending exchanges: %w", err)
	}

	requests := make([]models.PendingRequest, 0, len(pending))
	for _, exchange := range pending {
		fromUser, err := s.findUser(ctx, exchange.InitiatedBy)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		requests = append(requests, models.PendingRequest{
			ExchangeID: exchange.ID,
			FromUser:   *fromUser,
			ToUser:     *user,
			Status:     exchange.Status,
			CreatedAt:  exchange.CreatedAt,
		})
	}
	return requests, nil
}

// lastMessage returns the most recent message in either direction
// between two users, or nil when they have no conversation yet.
func (s *Service) lastMessage(ctx context.Context, userID, otherID primitive.ObjectID) (*models.Message, error) {
	filter := bson.M{"$or": []bson.M{
		{"senderId": userID, "recipientId": otherID},
		{"senderId": otherID, "recipientId": userID},
	}}
	limit := int64(1)
	opts := &options.FindOptions{Limit: &limit, Sort: bson.D{{Key: "createdAt", Value: -1}}}

	messages, err := s.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last message: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

func (s *Service) findUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.Users.FindOne(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func (s *Service) findExchange(ctx context.Context, id primitive.ObjectID) (*models.ContactExchange, error) {
	exchange, err := s.Exchanges.FindOne(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrExchangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up exchange: %w", err)
	}
	return exchange, nil
}
