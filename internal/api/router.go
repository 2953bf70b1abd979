package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	requestsHandler := &RequestsHandler{DB: db}
	stockHandler := &StockHandler{DB: db}
	transactionsHandler := &TransactionsHandler{DB: db}
	reportsHandler := &ReportsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireClerk := RequireRole(model.RoleClerk)

	// Public: register and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: read (all roles), write (clerk+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("GET /api/items/available", authMW(http.HandlerFunc(itemsHandler.ListAvailable)))
	mux.Handle("POST /api/items", authMW(requireClerk(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("POST /api/items/import", authMW(requireClerk(http.HandlerFunc(itemsHandler.Import))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireClerk(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireClerk(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireClerk(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{id}/history", authMW(requireClerk(http.HandlerFunc(itemsHandler.GetHistory))))

	// Requests: submit/list/get/cancel (all roles), decisions (clerk+).
	mux.Handle("POST /api/requests", authMW(http.HandlerFunc(requestsHandler.Create)))
	mux.Handle("GET /api/requests", authMW(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("GET /api/requests/returnable", authMW(requireClerk(http.HandlerFunc(requestsHandler.ListReturnable))))
	mux.Handle("GET /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Get)))
	mux.Handle("POST /api/requests/{id}/approve", authMW(requireClerk(http.HandlerFunc(requestsHandler.Approve))))
	mux.Handle("POST /api/requests/{id}/reject", authMW(requireClerk(http.HandlerFunc(requestsHandler.Reject))))
	mux.Handle("POST /api/requests/{id}/cancel", authMW(http.HandlerFunc(requestsHandler.Cancel)))
	mux.Handle("POST /api/requests/{id}/issue", authMW(requireClerk(http.HandlerFunc(requestsHandler.Issue))))
	mux.Handle("POST /api/requests/{id}/return", authMW(requireClerk(http.HandlerFunc(requestsHandler.Return))))

	// Direct stock mutations (clerk+).
	mux.Handle("POST /api/stock/issue", authMW(requireClerk(http.HandlerFunc(stockHandler.Issue))))
	mux.Handle("POST /api/stock/adjust", authMW(requireClerk(http.HandlerFunc(stockHandler.Adjust))))

	// Stock journal (clerk+).
	mux.Handle("GET /api/transactions", authMW(requireClerk(http.HandlerFunc(transactionsHandler.List))))
	mux.Handle("GET /api/transactions/{id}", authMW(requireClerk(http.HandlerFunc(transactionsHandler.Get))))

	// Reports (clerk+).
	mux.Handle("GET /api/reports/summary", authMW(requireClerk(http.HandlerFunc(reportsHandler.Summary))))

	return mux
}
