package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/mcp"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/rpggio/liveshop/internal/sqlite"
	"github.com/rpggio/liveshop/internal/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Tokens provisioned by New.
const (
	StaffToken    = "staff-token"
	CustomerToken = "customer-token"
	OtherToken    = "other-customer-token"

	StaffUserID = "staff-1"
	ClientID    = "client-1"
	OtherClient = "client-2"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Sessions *session.Service
	Activity *activity.Service
	APIKeys  *sqlite.APIKeyRepository
}

// New starts the REST API and the MCP endpoint over a private in-memory
// database seeded with a small catalog and three API keys.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	catalog := sqlite.NewCatalogRepository(db)
	require.NoError(t, catalog.Upsert(context.Background(), SeedCatalog()...))

	store := sqlite.NewStore(db)
	sessionSvc := session.NewService(store, catalog, nil, nil)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	apiKeys := sqlite.NewAPIKeyRepository(db)
	resolver := transport.NewAPIKeyResolver(apiKeys, nil)

	router := transport.NewServer(sessionSvc, activitySvc, transport.AuthMiddleware(resolver), nil)
	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Sessions: sessionSvc, Activity: activitySvc},
		Resolver:      resolver,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)
	router.Handle("/mcp", mcpHandler)

	server := httptest.NewServer(router)
	ts := &TestServer{
		Server:   server,
		DB:       db,
		Sessions: sessionSvc,
		Activity: activitySvc,
		APIKeys:  apiKeys,
	}

	require.NoError(t, ts.AddAPIKey(StaffToken, session.ActorStaff, StaffUserID))
	require.NoError(t, ts.AddAPIKey(CustomerToken, session.ActorCustomer, ClientID))
	require.NoError(t, ts.AddAPIKey(OtherToken, session.ActorCustomer, OtherClient))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey stores the hash of token for the given actor.
func (ts *TestServer) AddAPIKey(token string, actor session.Actor, subjectID string) error {
	return ts.APIKeys.Create(context.Background(), repository.APIKey{
		KeyHash:   transport.HashToken(token),
		Actor:     string(actor),
		SubjectID: subjectID,
		CreatedAt: time.Now(),
	})
}

// SeedCatalog is the catalog every test server starts with.
func SeedCatalog() []session.CatalogBatch {
	price := decimal.RequireFromString
	return []session.CatalogBatch{
		{BatchID: "batch-silk", ProductID: "prod-silk", ProductName: "Silk Scarf", BatchCode: "SS-24", UnitPrice: price("50"), OnHand: price("20")},
		{BatchID: "batch-wool", ProductID: "prod-wool", ProductName: "Wool Coat", BatchCode: "WC-11", UnitPrice: price("120"), OnHand: price("5")},
		{BatchID: "batch-belt", ProductID: "prod-belt", ProductName: "Leather Belt", BatchCode: "LB-02", UnitPrice: price("30"), OnHand: price("0")},
	}
}
