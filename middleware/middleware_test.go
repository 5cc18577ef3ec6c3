package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bakehouse/globals"
	"bakehouse/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, userID, role string) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	require.NoError(t, err)
	return s
}

func echo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Write([]byte(utils.GetUserIDFromRequest(r) + "/" + utils.GetRoleFromRequest(r)))
}

func TestAuthenticateSetsIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "u1", ""))
	rec := httptest.NewRecorder()

	Authenticate(echo)(rec, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1/customer", rec.Body.String())
}

func TestAuthenticateRejects(t *testing.T) {
	cases := map[string]string{
		"missing":    "",
		"not bearer": "Token abc",
		"garbage":    "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			Authenticate(echo)(rec, req, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := Authenticate(RequireRole(globals.RoleAdmin)(echo))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "u1", globals.RoleCustomer))
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("Authorization", "Bearer "+sign(t, "a1", globals.RoleAdmin))
	rec = httptest.NewRecorder()
	h(rec, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1/admin", rec.Body.String())
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	OptionalAuth(echo)(rec, req, nil)
	assert.Equal(t, "/", rec.Body.String())
}

func TestChainRunsInOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(httprouter.Handle) httprouter.Handle {
		return func(next httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
				order = append(order, name)
				next(w, r, ps)
			}
		}
	}
	h := Chain(mark("a"), mark("b"), mark("c"))(func(http.ResponseWriter, *http.Request, httprouter.Params) {
		order = append(order, "handler")
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestAuthenticateCarriesShopClaim(t *testing.T) {
	claims := Claims{
		UserID:           "staff",
		Role:             globals.RoleShop,
		ShopID:           "s1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	rec := httptest.NewRecorder()
	Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		assert.True(t, utils.CanActForShop(r, "s1"))
		assert.False(t, utils.CanActForShop(r, "s2"))
		w.Write([]byte(utils.GetShopIDFromRequest(r)))
	})(rec, req, nil)
	assert.Equal(t, "s1", rec.Body.String())
}

func TestOptionalAuthAttachesValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "u1", ""))
	rec := httptest.NewRecorder()
	OptionalAuth(echo)(rec, req, nil)
	assert.Equal(t, "u1/customer", rec.Body.String())
}
