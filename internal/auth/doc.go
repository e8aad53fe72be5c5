// Package auth provides authentication and authorisation for EduGate.
//
// A request passes through three gates, in order, and the first failure wins:
//
//  1. CSRFGuard: double-submit check (cookie vs header) for mutations.
//     Queries pass; unknown and subscription operations are refused.
//  2. TokenCodec: HS256 bearer token verification. An invalid or missing
//     token leaves the caller anonymous.
//  3. RoleAuthorizer: the caller's role must be in the operation's required
//     set. An empty set admits anyone, including anonymous callers.
//
// Pipeline composes the three using a static PolicyTable keyed by operation
// id. Authenticator turns a username/password into a token via
// CredentialVerifier (Argon2id) and TokenCodec; every credential failure
// looks the same to the client.
//
// Roles are ADMIN, TEACHER, STUDENT and STAKEHOLDER. A principal with no
// role record is issued STUDENT.
package auth
