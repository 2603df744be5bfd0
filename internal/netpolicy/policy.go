package netpolicy

import "strings"

// Mode decides how an operation may reach the remote store.
type Mode int

const (
	// LocalOnly never touches the remote store.
	LocalOnly Mode = iota
	// RemoteThenLocal tries the remote store unless the mixed-content guard
	// blocks it, then falls back to local data.
	RemoteThenLocal
	// RemoteAlways attempts the remote call even under mixed content.
	// Payments are too important to silently drop.
	RemoteAlways
)

type Operation string

const (
	OpListCards     Operation = "cards.list"
	OpGetCard       Operation = "cards.get"
	OpCreateUser    Operation = "users.create"
	OpAuthUser      Operation = "users.auth"
	OpCreatePayment Operation = "payments.create"
	OpListPayments  Operation = "payments.list"
)

// Policy is the secure-origin guard, evaluated once at startup: when the app
// origin is HTTPS and the backend is plain HTTP, browsers block the mixed
// content, so those calls are skipped instead of failing slowly.
type Policy struct {
	mixedContent bool
	modes        map[Operation]Mode
}

func New(appOrigin, remoteURL string) *Policy {
	return &Policy{
		mixedContent: isHTTPS(appOrigin) && !isHTTPS(remoteURL),
		modes: map[Operation]Mode{
			OpListCards:     RemoteThenLocal,
			OpGetCard:       RemoteThenLocal,
			OpCreateUser:    RemoteThenLocal,
			OpAuthUser:      RemoteThenLocal,
			OpCreatePayment: RemoteAlways,
			OpListPayments:  RemoteAlways,
		},
	}
}

// MixedContent reports whether the guard condition holds.
func (p *Policy) MixedContent() bool { return p.mixedContent }

// Mode returns the configured mode for op. Unknown operations are LocalOnly.
func (p *Policy) Mode(op Operation) Mode {
	m, ok := p.modes[op]
	if !ok {
		return LocalOnly
	}
	return m
}

// AllowRemote reports whether op may issue a remote call right now.
func (p *Policy) AllowRemote(op Operation) bool {
	switch p.Mode(op) {
	case RemoteAlways:
		return true
	case RemoteThenLocal:
		return !p.mixedContent
	default:
		return false
	}
}

func isHTTPS(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "https:")
}
