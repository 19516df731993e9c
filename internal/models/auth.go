package models

// SignupRequest is the POST /signup body.
type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Sex      string  `json:"sex"`      // "male" or "female"
	Birthday string  `json:"birthday"` // YYYY-MM-DD
	Weight   float64 `json:"weight"`
}

// LoginRequest is the POST /login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse covers the token field variants different backend versions
// have used. Whichever is present first (in the order below) wins.
type AuthResponse struct {
	IDToken      string `json:"idToken"`
	Token        string `json:"token"`
	IDTokenSnake string `json:"id_token"`
	AccessToken  string `json:"access_token"`
}

// BearerToken returns the session token from whichever field carries it,
// or "" if the response contained none.
func (a AuthResponse) BearerToken() string {
	for _, t := range []string{a.IDToken, a.Token, a.IDTokenSnake, a.AccessToken} {
		if t != "" {
			return t
		}
	}
	return ""
}
