package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/database/dbtest"
	"github.com/George-Dev-Web/cakes2/middleware"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/services/cart"
)

type fakeVerifier struct {
	claims map[string]any
	err    error
}

func (f fakeVerifier) VerifyIDTokenAndCheckRevoked(_ context.Context, idToken string) (*fbauth.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fbauth.Token{UID: "uid-" + idToken, Claims: f.claims}, nil
}

func newRouter(t *testing.T, verifier auth.TokenVerifier) (*gin.Engine, *auth.Deps) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	log := zap.NewNop()
	d := &auth.Deps{
		DB:     db,
		Tokens: auth.NewTokenIssuer("test-secret", time.Hour),
		Carts:  cart.NewEngine(db, log),
		Log:    log,
	}
	if verifier != nil {
		d.Google = verifier
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler(log, true), middleware.Authenticate(d.Tokens))
	r.POST("/register", auth.Register(d))
	r.POST("/login", auth.Login(d))
	r.POST("/google", auth.Google(d))
	r.POST("/guest", auth.CreateGuestSession(d))
	r.GET("/me", middleware.RequireAuth(), auth.Me(d))
	r.PUT("/profile", middleware.RequireAuth(), auth.UpdateProfile(d))
	return r, d
}

func send(r http.Handler, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

type signInBody struct {
	User        models.User `json:"user"`
	Token       string      `json:"token"`
	MergedItems int         `json:"merged_items"`
}

func TestRegisterAndLogin(t *testing.T) {
	r, d := newRouter(t, nil)

	w := send(r, http.MethodPost, "/register", gin.H{
		"name": "Amina", "email": " Amina@Example.com ", "password": "hunter22", "phone": "0712345678",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg signInBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, "amina@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token)
	assert.NotContains(t, w.Body.String(), "password_hash")

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.AccessCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var carts int64
	d.DB.Model(&models.Cart{}).Where("user_id = ?", reg.User.ID).Count(&carts)
	assert.Equal(t, int64(1), carts)

	w = send(r, http.MethodPost, "/login", gin.H{"email": "amina@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodPost, "/login", gin.H{"email": "amina@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = send(r, http.MethodPost, "/login", gin.H{"email": "nobody@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	r, _ := newRouter(t, nil)

	cases := map[string]gin.H{
		"short name":     {"name": "A", "email": "a@example.com", "password": "hunter22"},
		"bad email":      {"name": "Amina", "email": "not-an-email", "password": "hunter22"},
		"short password": {"name": "Amina", "email": "a@example.com", "password": "123"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := send(r, http.MethodPost, "/register", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin_GoogleOnlyAccountHasNoPassword(t *testing.T) {
	r, d := newRouter(t, nil)
	require.NoError(t, d.DB.Create(&models.User{Name: "G", Email: "g@example.com", Provider: models.ProviderGoogle}).Error)

	w := send(r, http.MethodPost, "/login", gin.H{"email": "g@example.com", "password": "anything"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RequiresToken(t *testing.T) {
	r, d := newRouter(t, nil)

	w := send(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/me", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")

	user := models.User{Name: "Amina", Email: "amina@example.com"}
	require.NoError(t, d.DB.Create(&user).Error)
	token, _, err := d.Tokens.Issue(&user)
	require.NoError(t, err)

	w = send(r, http.MethodGet, "/me", nil, bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	r, d := newRouter(t, nil)
	user := models.User{Name: "Amina", Email: "amina@example.com"}
	require.NoError(t, d.DB.Create(&user).Error)
	token, _, err := d.Tokens.Issue(&user)
	require.NoError(t, err)

	w := send(r, http.MethodPut, "/profile", gin.H{"is_admin": true}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPut, "/profile", gin.H{
		"name":        "Amina W.",
		"address":     "Westlands",
		"preferences": gin.H{"newsletter": true},
	}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, d.DB.First(&reloaded, user.ID).Error)
	assert.Equal(t, "Amina W.", reloaded.Name)
	assert.Equal(t, "Westlands", reloaded.Address)
	assert.Equal(t, true, reloaded.Preferences["newsletter"])
	assert.False(t, reloaded.IsAdmin)
}

func TestLogin_MergesGuestCart(t *testing.T) {
	r, d := newRouter(t, nil)
	ctx := context.Background()

	w := send(r, http.MethodPost, "/register", gin.H{"name": "Amina", "email": "amina@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code)

	sid, err := auth.NewSessionID()
	require.NoError(t, err)
	_, err = d.Carts.AddItem(ctx, cart.GuestOwner(sid), cart.ItemSpec{CakeSize: "Small", Quantity: 1})
	require.NoError(t, err)
	_, err = d.Carts.AddItem(ctx, cart.GuestOwner(sid), cart.ItemSpec{CakeSize: "Large", Quantity: 2})
	require.NoError(t, err)

	w = send(r, http.MethodPost, "/login", gin.H{"email": "amina@example.com", "password": "hunter22"},
		func(req *http.Request) { req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid}) })
	require.Equal(t, http.StatusOK, w.Code)
	var body signInBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.MergedItems)

	userCart, err := d.Carts.GetOrCreateCart(ctx, cart.UserOwner(body.User.ID))
	require.NoError(t, err)
	assert.Len(t, userCart.Items, 2)
}

func TestGoogle(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		r, _ := newRouter(t, nil)
		w := send(r, http.MethodPost, "/google", gin.H{"id_token": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		r, _ := newRouter(t, fakeVerifier{err: errors.New("revoked")})
		w := send(r, http.MethodPost, "/google", gin.H{"id_token": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		r, _ := newRouter(t, fakeVerifier{})
		w := send(r, http.MethodPost, "/google", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("creates then reuses user", func(t *testing.T) {
		r, d := newRouter(t, fakeVerifier{claims: map[string]any{"email": "Chef@Gmail.com", "name": "Chef"}})

		w := send(r, http.MethodPost, "/google", gin.H{"id_token": "abc"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = send(r, http.MethodPost, "/google", gin.H{"id_token": "abc"})
		require.Equal(t, http.StatusOK, w.Code)

		var users []models.User
		require.NoError(t, d.DB.Where("email = ?", "chef@gmail.com").Find(&users).Error)
		require.Len(t, users, 1)
		assert.Equal(t, models.ProviderGoogle, users[0].Provider)
		assert.Equal(t, "Chef", users[0].Name)
	})
}

func TestCreateGuestSession(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := send(r, http.MethodPost, "/guest", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	sid := cookies[0].Value
	assert.True(t, auth.ValidSessionID(sid))

	w = send(r, http.MethodPost, "/guest", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sid)
}
