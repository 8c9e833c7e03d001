// Package auth implements the authentication and session-lifecycle core of a
// membership platform: credential verification, account lockout, access and
// refresh token issuance with rotation, an optional TOTP second factor, and
// role/permission resolution for protected routes.
//
// Login flow:
//   - Auther orchestrates login. It loads the principal through a UserStore,
//     evaluates the LockoutPolicy, verifies the password hash, walks the
//     account status machine, and either issues an access/refresh pair or a
//     short-lived two-factor challenge token when the principal requires a
//     second factor.
//   - Tokens are stateless JWTs tagged with a type discriminator. Access and
//     refresh tokens use distinct signing secrets so a leaked key for one
//     class cannot forge the other.
//   - Refresh rotates both tokens on every use and revokes the consumed
//     refresh token id through a RevocationSet.
//
// Authorization:
//   - Access tokens embed role names plus flattened resource:action
//     permission strings. Claims answer HasRole, HasPermission,
//     HasAnyPermission, HasAllPermissions, and IsOwnerOrAdmin. Denials emit
//     security activity events; clients only ever see a generic message.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the guard
//     helpers, and the state machine. Sinks run best-effort (errors are
//     logged) so you can forward to a database or queue without blocking
//     authentication.
package auth
