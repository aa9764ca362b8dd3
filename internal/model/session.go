package model

// Session holds the credentials and profile returned by the auth service
// on login, register, and refresh. The access token is the short-lived
// bearer credential for API calls; the refresh token is used to mint a
// replacement when the access token expires.
type Session struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
}

// HasRole reports whether the session's profile carries the given role.
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the session may use the admin endpoints.
func (s Session) IsAdmin() bool {
	return s.HasRole("ADMIN") || s.HasRole("ROLE_ADMIN")
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
