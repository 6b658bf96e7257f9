package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /", s.IndexHandler())
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// AUTH FLOW
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// EMPLOYEES (session-guarded QuickBooks passthrough)
	s.RegisterRouteHandler("GET "+RouteEmployees, ChainMiddleware(s.EmployeeListHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmployees, ChainMiddleware(s.EmployeeCreateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEmployeeByID, ChainMiddleware(s.EmployeeGetHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteEmployeeByID, ChainMiddleware(s.EmployeeUpdateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteEmployeeByID, ChainMiddleware(s.EmployeeSetActiveHandler(false), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmployeeActivate, ChainMiddleware(s.EmployeeSetActiveHandler(true), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmployeeDeactivate, ChainMiddleware(s.EmployeeSetActiveHandler(false), s.APIMiddleware()...))

	// Browsers preflight cross-origin API calls with OPTIONS, which the
	// method-qualified patterns above never match.
	s.RegisterRouteHandler("OPTIONS /api/v1/", ChainMiddleware(s.PreflightHandler(), s.CorsMiddleware))
}
