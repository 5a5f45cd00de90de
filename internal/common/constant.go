package common

// SessionCookieName is the cookie that carries the backend access token
// between the browser and the back-office server.
const SessionCookieName = "sb-access-token"

// AuthorizationHeaderName carries a bearer access token when no cookie is set.
const AuthorizationHeaderName = "Authorization"
