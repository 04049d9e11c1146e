package auth

const (
	HeaderUserID   = "X-User-ID"
	HeaderClientID = "X-Client-ID"
)

// Policy describes how an endpoint treats the client part of the scope.
type Policy struct {
	// ClientRequired rejects requests without a client id when the resolver
	// enforces client scoping.
	ClientRequired bool
	// EmptyOnUnowned lets an unowned client through so a list endpoint can
	// answer with an empty collection instead of 404.
	EmptyOnUnowned bool
	// OwnerOnly ignores any client id and resolves the owner alone.
	OwnerOnly bool
}

var (
	// BrowsePolicy covers flow and template listings.
	BrowsePolicy = Policy{EmptyOnUnowned: true}
	// HistoryPolicy covers execution history listings.
	HistoryPolicy = Policy{ClientRequired: true, EmptyOnUnowned: true}
	// ResourcePolicy covers execution, detail and mutation endpoints.
	ResourcePolicy = Policy{ClientRequired: true}
	// OwnerPolicy covers endpoints that act on the owner only, such as
	// client registration.
	OwnerPolicy = Policy{OwnerOnly: true}
)
