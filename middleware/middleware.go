package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bakehouse/globals"
	"bakehouse/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims issued by the external auth provider.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	ShopID string `json:"shopId,omitempty"` // set for the shop role
	jwt.RegisteredClaims
}

func parseBearer(header string) (*Claims, error) {
	if len(header) < 8 || !strings.HasPrefix(header, "Bearer ") {
		return nil, fmt.Errorf("invalid token format")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(header[7:], claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return globals.JwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no userId")
	}
	return claims, nil
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	role := c.Role
	if role == "" {
		role = globals.RoleCustomer
	}
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, role)
	if c.ShopID != "" {
		ctx = context.WithValue(ctx, globals.ShopIDKey, c.ShopID)
	}
	return r.WithContext(ctx)
}

// Authenticate rejects requests without a valid bearer token. Browsers
// cannot set headers on a WebSocket upgrade, so the token may also come in
// the "token" query parameter there.
func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if t := r.URL.Query().Get("token"); t != "" && isUpgrade(r) {
				header = "Bearer " + t
			}
		}
		if header == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		claims, err := parseBearer(header)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent.
func OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if claims, err := parseBearer(r.Header.Get("Authorization")); err == nil {
			r = withClaims(r, claims)
		}
		// Proceed regardless of token state
		next(w, r, ps)
	}
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			role := utils.GetRoleFromRequest(r)
			for _, want := range roles {
				if role == want {
					next(w, r, ps)
					return
				}
			}
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		}
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// Chain applies mws so that the first one listed runs first.
func Chain(mws ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
