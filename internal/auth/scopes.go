package auth

// Scopes understood by the fitsync API.
const (
	ScopeReportsRead = "reports:read"
	ScopeSyncWrite   = "sync:write"
)
