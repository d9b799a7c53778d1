package board

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// SessionAuth carries the credentials the live transport presents on
// connect.
type SessionAuth struct {
	ByJwt      string
	AppVersion string
}

// SessionToken is the client-relevant subset of the session JWT claims. The
// token is parsed unverified: the server is the verifier, the client only
// needs the identity fields for display and request attribution.
type SessionToken struct {
	UserId      string
	BoardId     string
	DisplayName string
}

func (self *SessionAuth) SessionToken() (*SessionToken, error) {
	return ParseSessionTokenUnverified(self.ByJwt)
}

func ParseSessionTokenUnverified(jwt string) (*SessionToken, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(jwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	sessionToken := &SessionToken{}
	if userId, ok := claims["user_id"].(string); ok {
		sessionToken.UserId = userId
	}
	if boardId, ok := claims["board_id"].(string); ok {
		sessionToken.BoardId = boardId
	}
	if displayName, ok := claims["display_name"].(string); ok {
		sessionToken.DisplayName = displayName
	}
	return sessionToken, nil
}
