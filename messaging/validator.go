// Package messaging implements the message validation and limit
// accounting rules between athletes and officials. All operations are
// pure reads over the message and exchange collections; refusals are
// returned as decisions, not errors, so handlers can render them.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lukaszglowacz/sports-messenger/databases"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// Daily send quotas. Officials are unlimited; both caps apply to
// athletes only.
const (
	DailyLimit         = 100
	OfficialDailyLimit = 5
)

// Machine-readable decision codes returned in models.Validation
const (
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeOfficialsCantMessage  = "OFFICIALS_CANNOT_MESSAGE"
	CodeExchangeRequired      = "EXCHANGE_REQUIRED"
	CodeDailyLimitExceeded    = "DAILY_LIMIT_EXCEEDED"
	CodeOfficialLimitExceeded = "OFFICIAL_DAILY_LIMIT_EXCEEDED"
)

// ErrUserNotFound is returned by Limits when the user id does not resolve
var ErrUserNotFound = errors.New("user not found")

// Validator decides whether a message may be sent and reports quota
// consumption. The location pins the calendar-day boundary used for
// all counts.
type Validator struct {
	Users     databases.UserDatabase
	Messages  databases.MessageDatabase
	Exchanges databases.ExchangeDatabase
	Location  *time.Location
}

// New initializes a validator over the given database handles
func New(users databases.UserDatabase, messages databases.MessageDatabase, exchanges databases.ExchangeDatabase, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{Users: users, Messages: messages, Exchanges: exchanges, Location: loc}
}

// DayWindow returns the half-open interval [midnight, midnight+24h)
// containing now in the given location. A timestamp exactly at midnight
// counts toward the new day.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CanSend evaluates the send-permission rules in order; the first
// violated rule wins. Storage failures are the only error path, every
// policy outcome is a decision.
func (v *Validator) CanSend(ctx context.Context, senderID, recipientID primitive.ObjectID, now time.Time) (models.Validation, error) {
	sender, err := v.Users.FindOne(ctx, bson.M{"_id": senderID})
	if err != nil {
		return v.userLookupDecision(err)
	}
	recipient, err := v.Users.FindOne(ctx, bson.M{"_id": recipientID})
	if err != nil {
		return v.userLookupDecision(err)
	}

	// Rule 1: officials never see each other
	if sender.Role == models.RoleOfficial && recipient.Role == models.RoleOfficial {
		return models.Validation{
			Allowed: false,
			Reason:  "Officials cannot message each other",
			Code:    CodeOfficialsCantMessage,
		}, nil
	}

	// Rule 2: any athlete/official pair needs an ACCEPTED exchange,
	// regardless of who is sending
	if sender.Role != recipient.Role {
		athleteID, officialID := senderID, recipientID
		if sender.Role == models.RoleOfficial {
			athleteID, officialID = recipientID, senderID
		}

		_, err := v.Exchanges.FindOne(ctx, bson.M{
			"athleteId":  athleteID,
			"officialId": officialID,
			"status":     models.ExchangeAccepted,
		})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Validation{
				Allowed: false,
				Reason:  "Contact exchange required. Please send a request first.",
				Code:    CodeExchangeRequired,
			}, nil
		}
		if err != nil {
			return models.Validation{}, fmt.Errorf("failed to look up exchange: %w", err)
		}
	}

	// No caps on official senders
	if sender.Role == models.RoleOfficial {
		return models.Validation{Allowed: true}, nil
	}

	// Rule 3: athlete aggregate daily cap
	total, err := v.Messages.CountDocuments(ctx, v.sentTodayFilter(senderID, now))
	if err != nil {
		return models.Validation{}, fmt.Errorf("failed to count messages sent today: %w", err)
	}
	if total >= DailyLimit {
		return limitDecision(
			fmt.Sprintf("You have exceeded the daily limit of %d messages", DailyLimit),
			CodeDailyLimitExceeded, total, DailyLimit,
		), nil
	}

	// Rule 4: athlete per-official daily cap
	if recipient.Role == models.RoleOfficial {
		toOfficial, err := v.Messages.CountDocuments(ctx, v.sentTodayToFilter(senderID, recipientID, now))
		if err != nil {
			return models.Validation{}, fmt.Errorf("failed to count messages to official today: %w", err)
		}
		if toOfficial >= OfficialDailyLimit {
			return limitDecision(
				fmt.Sprintf("You have exceeded the daily limit of %d messages to %s", OfficialDailyLimit, recipient.Name),
				CodeOfficialLimitExceeded, toOfficial, OfficialDailyLimit,
			), nil
		}
	}

	return models.Validation{Allowed: true}, nil
}

// Limits reports a user's current quota consumption for display.
// Officials get informational counts only and are never exceeded.
func (v *Validator) Limits(ctx context.Context, userID primitive.ObjectID, now time.Time, officialID *primitive.ObjectID) (models.MessageLimits, error) {
	user, err := v.Users.FindOne(ctx, bson.M{"_id": userID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MessageLimits{}, ErrUserNotFound
	}
	if err != nil {
		return models.MessageLimits{}, fmt.Errorf("failed to look up user: %w", err)
	}

	total, err := v.Messages.CountDocuments(ctx, v.sentTodayFilter(userID, now))
	if err != nil {
		return models.MessageLimits{}, fmt.Errorf("failed to count messages sent today: %w", err)
	}

	limits := models.MessageLimits{TotalToday: total}
	if user.Role != models.RoleAthlete {
		return limits, nil
	}

	limits.DailyLimit = int64Ptr(DailyLimit)
	limits.IsExceeded = total >= DailyLimit

	if officialID != nil {
		toOfficial, err := v.Messages.CountDocuments(ctx, v.sentTodayToFilter(userID, *officialID, now))
		if err != nil {
			return models.MessageLimits{}, fmt.Errorf("failed to count messages to official today: %w", err)
		}
		limits.ToOfficial = &toOfficial
		limits.OfficialLimit = int64Ptr(OfficialDailyLimit)
		if toOfficial >= OfficialDailyLimit {
			limits.IsExceeded = true
		}
	}

	return limits, nil
}

func (v *Validator) sentTodayFilter(senderID primitive.ObjectID, now time.Time) bson.M {
	start, end := DayWindow(now, v.Location)
	return bson.M{
		"senderId": senderID,
		"createdAt": bson.M{
			"$gte": primitive.NewDateTimeFromTime(start),
			"$lt":  primitive.NewDateTimeFromTime(end),
		},
	}
}

func (v *Validator) sentTodayToFilter(senderID, recipientID primitive.ObjectID, now time.Time) bson.M {
	filter := v.sentTodayFilter(senderID, now)
	filter["recipientId"] = recipientID
	return filter
}

func (v *Validator) userLookupDecision(err error) (models.Validation, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Validation{
			Allowed: false,
			Reason:  "User not found",
			Code:    CodeUserNotFound,
		}, nil
	}
	return models.Validation{}, fmt.Errorf("failed to look up user: %w", err)
}

func limitDecision(reason, code string, current, limit int64) models.Validation {
	return models.Validation{
		Allowed: false,
		Reason:  reason,
		Code:    code,
		Current: &current,
		Limit:   &limit,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
