// Package gate decides whether a request may reach protected handlers.
//
// The checks form a strict chain evaluated on every request:
// Anonymous, TermsPending, TwoFactorPending, Allowed. Each check either
// passes to the next one or stops with a redirect.
package gate

import "github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"

type Stage int

const (
	Anonymous Stage = iota
	TermsPending
	TwoFactorPending
	Allowed
)

func (s Stage) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case TermsPending:
		return "terms_pending"
	case TwoFactorPending:
		return "two_factor_pending"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Redirect targets for each failing stage.
const (
	LoginPath     = "/login"
	TermsPath     = "/welcome"
	ChallengePath = "/verify"
)

type Decision struct {
	Stage    Stage
	Redirect string
}

func (d Decision) Allowed() bool { return d.Stage == Allowed }

// State is the per-request input to Evaluate. User is nil when the session is
// anonymous or the referenced account no longer exists.
type State struct {
	Session *entity.Session
	User    *entity.User
}

// Evaluate runs the chain. It has no side effects and must not be cached.
func Evaluate(st State) Decision {
	if !st.Session.Authenticated() || st.User == nil || st.User.ID != st.Session.UserID {
		return Decision{Stage: Anonymous, Redirect: LoginPath}
	}
	if !st.User.TermsAccepted {
		return Decision{Stage: TermsPending, Redirect: TermsPath}
	}
	if st.User.TOTPEnabled && !st.Session.TwoFactorVerified {
		return Decision{Stage: TwoFactorPending, Redirect: ChallengePath}
	}
	return Decision{Stage: Allowed}
}
