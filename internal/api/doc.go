// Package api provides the HTTP API for EduGate.
//
// Every route except /health runs behind the auth pipeline via the
// operation middleware, which evaluates CSRF, bearer token and role in that
// order and stores the verified claims in the request context.
//
// Routes (all under /api/v1):
//
//	GET   /health                      no auth
//	GET   /auth/csrf                   csrfToken        query
//	POST  /auth/login                  login            mutation, CSRF exempt
//	POST  /auth/logout                 logout           mutation
//	GET   /auth/me                     me               any role
//	GET   /accounts                    listAccounts     ADMIN
//	PATCH /accounts/{username}/active  setAccountActive ADMIN
//	GET   /audit                       auditLog         ADMIN, TEACHER
//	GET   /metrics                     systemMetrics    ADMIN
//
// Denials are written as {"message", "code", "details"?} with status 401 for
// UNAUTHENTICATED and 403 for everything else.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
