package jwt

import "github.com/golang-jwt/jwt"

// Claims defines the JSON Web Token claims issued by the login endpoint.
// The token is the sole credential for both the HTTP API and the event channel:
// possession of a valid token is what makes a connection authenticated.
type Claims struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Username is the display name the token was issued for. Connections and
	// sessions carry it as the user-visible identity.
	Username string `json:"username"`
}
