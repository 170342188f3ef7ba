package console

// AppViewItem references an application or profile module at a position.
// Orders start at 1 and are contiguous once normalized.
type AppViewItem struct {
	ID    string `json:"id" yaml:"id"`
	Order int    `json:"order" yaml:"order"`
}

// AppView is a named bundle of application and profile modules.
type AppView struct {
	UUID         string        `json:"uuid"`
	Name         string        `json:"name"`
	Applications []AppViewItem `json:"applications"`
	Profile      []AppViewItem `json:"profile"`
}

// UserPreferences holds per-user settings, including the assigned AppView.
type UserPreferences struct {
	DefaultLang string   `json:"defaultLang"`
	AppViewID   string   `json:"appViewId,omitempty"`
	AppView     *AppView `json:"appView,omitempty"`
}

// User is a platform account.
type User struct {
	UUID        string           `json:"uuid"`
	Username    string           `json:"username"`
	Role        string           `json:"role"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// Identity is the civil identity attached to a user.
type Identity struct {
	UUID          string `json:"uuid"`
	UserID        string `json:"userId"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	BirthDate     string `json:"birthDate,omitempty"`
	BirthCity     string `json:"birthCity,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	BiologicalSex string `json:"biologicalSex,omitempty"`
}

// CreateUserInput is the payload of createUser. Empty optional fields are
// left out of the request.
type CreateUserInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
	DefaultLang string `json:"defaultLang,omitempty"`
	AppViewID   string `json:"appViewId,omitempty"`
}

// UpdateUserInput is the payload of updateUser.
type UpdateUserInput struct {
	Username string `json:"username,omitempty"`
}

// CreateAppViewInput is the payload of createAppView.
type CreateAppViewInput struct {
	Name         string        `json:"name"`
	Applications []AppViewItem `json:"applications"`
	Profile      []AppViewItem `json:"profile"`
}

// UpdateAppViewInput is the payload of updateAppView. Only non-empty fields
// are changed.
type UpdateAppViewInput struct {
	Name         string        `json:"name,omitempty"`
	Applications []AppViewItem `json:"applications,omitempty"`
	Profile      []AppViewItem `json:"profile,omitempty"`
}

// Biological sex values accepted by the backend.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// CreateIdentityInput is the payload of createIdentity.
type CreateIdentityInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	BirthDate     string `json:"birthDate,omitempty"`
	BirthCity     string `json:"birthCity,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	BiologicalSex string `json:"biologicalSex,omitempty"`
}

// UpdateIdentityInput is the payload of updateIdentity.
type UpdateIdentityInput struct {
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	BirthDate     string `json:"birthDate,omitempty"`
	BirthCity     string `json:"birthCity,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	BiologicalSex string `json:"biologicalSex,omitempty"`
}
