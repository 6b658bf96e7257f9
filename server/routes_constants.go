package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Service Routes
	RouteHealth = "/api/v1/health"

	// Auth Routes - QuickBooks OAuth2 flow
	RouteAuthLogin    = "/api/v1/auth/login"
	RouteAuthCallback = "/api/v1/auth/callback"
	RouteAuthStatus   = "/api/v1/auth/status"
	RouteAuthRefresh  = "/api/v1/auth/refresh"
	RouteAuthLogout   = "/api/v1/auth/logout"

	// Employee Routes (QuickBooks passthrough)
	RouteEmployees          = "/api/v1/employees"
	RouteEmployeeByID       = "/api/v1/employees/{id}"
	RouteEmployeeActivate   = "/api/v1/employees/{id}/activate"
	RouteEmployeeDeactivate = "/api/v1/employees/{id}/deactivate"
)

// SessionCookieName carries the signed session id in the browser.
const SessionCookieName = "qb_session"
