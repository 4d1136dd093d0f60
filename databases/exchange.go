package databases

// go generate: mockery --name ExchangeDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lukaszglowacz/sports-messenger/models"
)

const exchangeName = "exchanges"

// ExchangeDatabase contains the methods to use with the exchange database
type ExchangeDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ContactExchange, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ContactExchange, error)
	InsertOne(ctx context.Context, exchange models.ContactExchange) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type exchangeDatabase struct {
	db DatabaseHelper
}

// NewExchangeDatabase initializes a new instance of exchange database with the provided db connection
func NewExchangeDatabase(db DatabaseHelper) ExchangeDatabase {
	return &exchangeDatabase{
		db: db,
	}
}

func (e *exchangeDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ContactExchange, error) {
	exchange := &models.ContactExchange{}
	err := e.db.Collection(exchangeName).FindOne(ctx, filter).Decode(&exchange)
	if err != nil {
		return nil, err
	}
	return exchange, nil
}

func (e *exchangeDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ContactExchange, error) {
	var exchanges []models.ContactExchange
	curr, err := e.db.Collection(exchangeName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &exchanges)
	if err != nil {
		return nil, err
	}
	return exchanges, nil
}

func (e *exchangeDatabase) InsertOne(ctx context.Context, exchange models.ContactExchange) (InsertOneResultHelper, error) {
	return e.db.Collection(exchangeName).InsertOne(ctx, exchange)
}

func (e *exchangeDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return e.db.Collection(exchangeName).UpdateOne(ctx, filter, update, opts...)
}

func (e *exchangeDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return e.db.Collection(exchangeName).DeleteOne(ctx, filter, opts...)
}

func (e *exchangeDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return e.db.Collection(exchangeName).DeleteMany(ctx, filter, opts...)
}

// EnsureIndexes creates the unique compound index on (athleteId, officialId)
// so concurrent request creation cannot produce a duplicate pair.
func (e *exchangeDatabase) EnsureIndexes(ctx context.Context) error {
	unique := true
	_, err := e.db.Collection(exchangeName).CreateIndex(ctx,
		bson.D{{Key: "athleteId", Value: 1}, {Key: "officialId", Value: 1}},
		&options.IndexOptions{Unique: &unique},
	)
	return err
}
