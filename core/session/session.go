// Package session decides, for a caller's authentication state and a
// requested path, whether the client should render the path, be redirected,
// or be signed out. Keeping the decision table server-side means every
// client navigates by the same rules.
package session

import "github.com/tabunganku/backend/core/profile"

// State of the caller's authentication, as the client reports it.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Identity is the caller as seen by the resolver. Role is only meaningful
// when State is StateAuthenticated; RoleErr marks a failed role lookup.
type Identity struct {
	State   State
	Role    string
	RoleErr bool
}

// Action kinds
const (
	ActionWait     = "wait"     // auth state still loading, hold rendering
	ActionRender   = "render"   // show the requested path
	ActionRedirect = "redirect" // navigate to Target instead
	ActionSignOut  = "sign_out" // drop credentials, then navigate to Target
)

// Action is the resolver's verdict for one navigation.
type Action struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
}

const (
	rootPath  = "/"
	loginPath = "/login"
)

// publicRoutes are reachable without credentials. An authenticated caller
// landing on one is sent to their role's home instead.
var publicRoutes = map[string]bool{
	loginPath:              true,
	"/admin/initial-setup": true,
	"/register":            true,
	"/parent-login":        true,
	"/teacher/register":    true,
	"/forgot-password":     true,
	"/change-password":     true,
}

var roleHome = map[string]string{
	profile.RoleAdmin:   "/admin/dashboard",
	profile.RoleTeacher: "/teacher/dashboard",
	profile.RoleParent:  "/parent/dashboard",
}

// IsPublic reports whether the path is reachable without credentials.
func IsPublic(path string) bool { return publicRoutes[path] }

// HomeFor returns the landing path of a role, and whether the role has one.
func HomeFor(role string) (string, bool) {
	home, ok := roleHome[role]
	return home, ok
}

// Resolve applies the navigation rules:
//
//   - while auth state is loading, nothing renders;
//   - without credentials, public paths render and anything else
//     bounces to the login page;
//   - with credentials, public paths and the root bounce to the role's
//     home and everything else renders;
//   - a failed role lookup or a role with no home invalidates the
//     session entirely, since role decides everything that follows.
func Resolve(id Identity, path string) Action {
	switch id.State {
	case StateLoading:
		return Action{Kind: ActionWait}

	case StateAuthenticated:
		if id.RoleErr {
			return Action{Kind: ActionSignOut, Target: loginPath}
		}
		home, ok := roleHome[id.Role]
		if !ok {
			return Action{Kind: ActionSignOut, Target: loginPath}
		}
		if publicRoutes[path] || path == rootPath {
			return Action{Kind: ActionRedirect, Target: home}
		}
		return Action{Kind: ActionRender}

	default: // unauthenticated
		if publicRoutes[path] {
			return Action{Kind: ActionRender}
		}
		return Action{Kind: ActionRedirect, Target: loginPath}
	}
}
