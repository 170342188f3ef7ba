package auth

const legacyLoginMutation = `
mutation login($username: String!, $password: String!) {
  login(username: $username, password: $password) {
    userId
    jwt
    userPreferences {
      defaultLang
    }
    isNewAccount
  }
}`

const loginMutation = `
mutation Login($username: String!, $password: String!) {
  login(username: $username, password: $password) {
    userId
    accessToken
    refreshToken
    userPreferences {
      userId
      defaultLang
    }
    isNewAccount
  }
}`

const refreshTokenMutation = `
mutation RefreshToken($refreshToken: String!) {
  refreshToken(refreshToken: $refreshToken) {
    userId
    accessToken
    refreshToken
    userPreferences {
      userId
      defaultLang
    }
  }
}`

const logoutMutation = `
mutation Logout($refreshToken: String!) {
  logout(refreshToken: $refreshToken)
}`

const validateTokenMutation = `
mutation validateToken($token: String!) {
  validateToken(token: $token) {
    userId
  }
}`

const meQuery = `
query Me {
  me {
    uuid
    role
  }
}`

// Operation names as sent in operationName.
const (
	OpLegacyLogin   = "login"
	OpLogin         = "Login"
	OpRefreshToken  = "RefreshToken"
	OpLogout        = "Logout"
	OpValidateToken = "validateToken"
	OpMe            = "Me"
)

type userPreferences struct {
	UserID      string `json:"userId,omitempty"`
	DefaultLang string `json:"defaultLang"`
}

type legacyLoginResponse struct {
	Login *struct {
		UserID          string          `json:"userId"`
		JWT             string          `json:"jwt"`
		UserPreferences userPreferences `json:"userPreferences"`
		IsNewAccount    bool            `json:"isNewAccount"`
	} `json:"login"`
}

type loginResponse struct {
	Login *struct {
		UserID          string          `json:"userId"`
		AccessToken     string          `json:"accessToken"`
		RefreshToken    string          `json:"refreshToken"`
		UserPreferences userPreferences `json:"userPreferences"`
		IsNewAccount    bool            `json:"isNewAccount"`
	} `json:"login"`
}

type refreshTokenResponse struct {
	RefreshToken *struct {
		UserID       string `json:"userId"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"refreshToken"`
}

type validateTokenResponse struct {
	ValidateToken *struct {
		UserID string `json:"userId"`
	} `json:"validateToken"`
}

type meResponse struct {
	Me *struct {
		UUID string `json:"uuid"`
		Role string `json:"role"`
	} `json:"me"`
}
