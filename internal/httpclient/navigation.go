package httpclient

// NavigationNotifier is the routing capability the client calls when a session
// cannot be recovered. Implementations send the user to the login surface.
type NavigationNotifier interface {
	// AtLogin reports whether the login surface is already showing.
	AtLogin() bool
	// RedirectToLogin moves the user to the login surface.
	RedirectToLogin()
}

type nopNavigator struct{}

func (nopNavigator) AtLogin() bool    { return true }
func (nopNavigator) RedirectToLogin() {}
