// -----------------------------------------------------------------------
// Target site locators - every selector the automation touches lives
// here, so site markup changes touch one place
// -----------------------------------------------------------------------

package target

// Login page elements
const (
	// LoginIdentityInput is the username/email field on the login page
	LoginIdentityInput = `#username`

	// LoginSecretInput is the password field on the login page
	LoginSecretInput = `#password`

	// LoginSubmitButton is the login form submit control
	LoginSubmitButton = `button[type="submit"]`
)

// Profile / messaging surface elements. Locators are scoped by accessible
// name or role attribute, not positional selectors, because the site's
// markup carries no stable class names.
const (
	// ComposeButton opens the message composer on a profile page
	ComposeButton = `button[aria-label="Message"]`

	// ComposeInput is the content-editable message input surface
	ComposeInput = `div[role="textbox"]`

	// ProfileNameHeading is the display-name heading on a profile page
	ProfileNameHeading = `main h1`
)

// URL path markers used for auth-state detection
const (
	// LoginPathMarker appears in the URL while unauthenticated; a
	// post-submit location still matching it means login failed, and a
	// navigation redirected to it means the session expired.
	LoginPathMarker = "/login"
)
