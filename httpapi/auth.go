package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/session"
)

const sessionCookieName = "sid"

var (
	InvalidTokenError = errors.New("Invalid access token")
)

type contextKey string

const sessionContextKey contextKey = "session"

var (
	getUserByEmail = models.GetUserByEmail
	upsertUser     = models.UpsertUser
)

// providerClaims are the claims of an access token issued by the auth provider
type providerClaims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		AvatarUrl string `json:"avatar_url"`
	} `json:"user_metadata"`
	jwt.StandardClaims
}

// verifyProviderToken checks the signature and expiry of an access token of
// the auth provider and returns its claims
func verifyProviderToken(tokenString string) (*providerClaims, error) {
	claims := &providerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		if len(config.AuthJwtSecret) == 0 {
			return nil, errors.New("no token secret configured")
		}
		return []byte(config.AuthJwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", InvalidTokenError, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Email) == "" {
		return nil, InvalidTokenError
	}
	return claims, nil
}

// resolveSession returns the session of the user making the request: the
// stored session named by the sid cookie, or an ephemeral one for a bearer
// token of the auth provider
func resolveSession(r *http.Request) (session.Session, error) {
	var l = logger.WithFields(logrus.Fields{
		"method": "resolveSession",
	})

	if c, err := r.Cookie(sessionCookieName); err == nil {
		sess, err := session.Load(c.Value)
		if err == nil {
			if _, ok := session.GetUserId(sess); ok {
				return sess, nil
			}
		}
		l.Debugf("sid cookie doesn't name a signed in session")
	}

	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return nil, models.UnauthenticatedError
	}

	claims, err := verifyProviderToken(strings.TrimPrefix(authz, "Bearer "))
	if err != nil {
		l.Debugf("Rejected bearer token: '%+v'", err)
		return nil, models.UnauthenticatedError
	}

	u, err := getUserByEmail(claims.Email)
	if err != nil {
		l.Debugf("No user for %s: '%+v'", claims.Email, err)
		return nil, models.UnauthenticatedError
	}
	return session.NewEphemeral(u.Id)
}

// requireUser rejects requests without a signed in user with 401
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := resolveSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, models.UnauthenticatedError.Error())
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIdFrom returns the user of the session requireUser stored in ctx
func userIdFrom(ctx context.Context) uint32 {
	sess, _ := ctx.Value(sessionContextKey).(session.Session)
	userId, _ := session.GetUserId(sess)
	return userId
}

// handleAuthCallback signs the user in with the access token the auth
// provider redirected with
func handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	var l = logger.WithFields(logrus.Fields{
		"method": "handleAuthCallback",
	})

	fail := func(reason string, err error) {
		l.Warnf("%s: '%+v'", reason, err)
		http.Redirect(w, r, "/sign-in?error=oauth_callback_error", http.StatusFound)
	}

	claims, err := verifyProviderToken(r.URL.Query().Get("access_token"))
	if err != nil {
		fail("Invalid access token", err)
		return
	}

	u, err := upsertUser(claims.Email, claims.UserMetadata.FullName, claims.UserMetadata.AvatarUrl)
	if err != nil {
		fail("Couldn't upsert user", err)
		return
	}

	sess, err := session.New()
	if err != nil {
		fail("Couldn't create session", err)
		return
	}
	if err := session.SetUserId(sess, u.Id); err != nil {
		fail("Couldn't store session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.GetID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   config.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	l.Infof("Signed in user %d", u.Id)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// handleSignOut destroys the session of the sid cookie
func handleSignOut(w http.ResponseWriter, r *http.Request) {
	var l = logger.WithFields(logrus.Fields{
		"method": "handleSignOut",
	})

	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, err := session.Load(c.Value); err == nil {
			if err := sess.Destroy(); err != nil {
				l.Errorf("Couldn't destroy session: '%+v'", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, &successResponse{Success: true})
}
