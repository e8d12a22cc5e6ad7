package models

// User is the authenticated principal, mapped from the hosted auth provider's token claims.
type User struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UserFromClaims builds a User from verified token claims. Returns nil when sub is missing.
func UserFromClaims(claims map[string]interface{}) *User {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	u := &User{Sub: sub}
	u.Email, _ = claims["email"].(string)
	u.Role, _ = claims["role"].(string)
	u.Name, _ = claims["name"].(string)
	if u.Name == "" {
		if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
			u.Name, _ = meta["full_name"].(string)
		}
	}
	return u
}
