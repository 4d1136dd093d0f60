package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lukaszglowacz/sports-messenger/api"
	"github.com/lukaszglowacz/sports-messenger/api/scheduler"
	"github.com/lukaszglowacz/sports-messenger/config"
	"github.com/lukaszglowacz/sports-messenger/contacts"
	"github.com/lukaszglowacz/sports-messenger/databases"
	"github.com/lukaszglowacz/sports-messenger/messaging"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	loc := a.Config.Location()
	udb := databases.NewUserDatabase(a.dbHelper)
	mdb := databases.NewMessageDatabase(a.dbHelper)
	edb := databases.NewExchangeDatabase(a.dbHelper)

	u := User{DB: udb}
	m := Message{DB: mdb, Validator: messaging.New(udb, mdb, edb, loc), Validate: validator.New()}
	c := Contact{Service: contacts.New(udb, mdb, edb), Validate: validator.New()}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/users", api.Middleware(http.HandlerFunc(u.UsersHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/contacts", api.Middleware(http.HandlerFunc(c.ContactsHandler))).Methods("GET")
	apiCreate.Handle("/contacts/exchange/request", api.Middleware(http.HandlerFunc(c.CreateExchangeRequestHandler))).Methods("POST")
	apiCreate.Handle("/contacts/exchange/{exchange_id}/accept", api.Middleware(http.HandlerFunc(c.AcceptExchangeHandler))).Methods("POST")
	apiCreate.Handle("/contacts/exchange/{exchange_id}/reject", api.Middleware(http.HandlerFunc(c.RejectExchangeHandler))).Methods("POST")
	apiCreate.Handle("/contacts/exchange/{exchange_id}", api.Middleware(http.HandlerFunc(c.DisconnectHandler))).Methods("DELETE")

	apiCreate.Handle("/messages", api.Middleware(http.HandlerFunc(m.SendMessageHandler))).Methods("POST")
	apiCreate.Handle("/messages", api.Middleware(http.HandlerFunc(m.ConversationHandler))).Methods("GET")
	apiCreate.Handle("/messages/limits", api.Middleware(http.HandlerFunc(m.LimitsHandler))).Methods("GET")
	apiCreate.Handle("/messages/validate", api.Middleware(http.HandlerFunc(m.ValidateHandler))).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("sports-messenger has connected to the database")

	edb := databases.NewExchangeDatabase(a.dbHelper)
	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()
	if err := edb.EnsureIndexes(ctx); err != nil {
		zap.S().With(err).Error("failed to ensure exchange indexes")
		return err
	}

	a.Scheduler = scheduler.NewScheduler(edb, databases.NewMessageDatabase(a.dbHelper), a.Config.Location())
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
