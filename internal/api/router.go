package api

import (
	"net/http"

	"github.com/erazemk/depot/internal/assignment"
	"github.com/erazemk/depot/internal/blob"
	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/model"
)

// Options tunes the router.
type Options struct {
	// SignInLimiter throttles sign-in and sign-up per client; nil
	// disables throttling.
	SignInLimiter *RateLimiter
	// MaxUpload bounds image uploads in bytes.
	MaxUpload int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(idp *identity.Provider, svc *assignment.Service, opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Identity: idp, Assignments: svc}
	itemsHandler := &ItemsHandler{Assignments: svc, MaxUpload: opts.MaxUpload}
	usersHandler := &UsersHandler{Assignments: svc}

	authMW := AuthMiddleware(idp)
	requireAdmin := RequireRole(model.RoleAdmin)
	limit := opts.SignInLimiter.Middleware

	// Public.
	mux.Handle("POST /api/auth/signup", limit(http.HandlerFunc(authHandler.SignUp)))
	mux.Handle("POST /api/auth/signin", limit(http.HandlerFunc(authHandler.SignIn)))
	if svc.Blobs != nil {
		blobsHandler := &BlobsHandler{Blobs: svc.Blobs}
		mux.HandleFunc("GET "+blob.URLPrefix+"{path...}", blobsHandler.Get)
	}

	// Authenticated.
	mux.Handle("POST /api/auth/signout", authMW(http.HandlerFunc(authHandler.SignOut)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Items: visibility and transitions are checked by the service.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("POST /api/items/{id}/propose", authMW(http.HandlerFunc(itemsHandler.Propose)))
	mux.Handle("POST /api/items/{id}/accept", authMW(http.HandlerFunc(itemsHandler.Accept)))
	mux.Handle("POST /api/items/{id}/reject", authMW(http.HandlerFunc(itemsHandler.Reject)))
	mux.Handle("GET /api/assignments", authMW(http.HandlerFunc(itemsHandler.ListAssignments)))

	// Users.
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("GET /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Get)))
	mux.Handle("PUT /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Update)))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
