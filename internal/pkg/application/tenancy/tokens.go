package tenancy

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

var (
	//ErrInvalidToken is returned for tokens that are malformed, expired, badly signed or of the wrong type
	ErrInvalidToken = errors.New("token is invalid or expired")
	//ErrInvalidCredentials is returned when a username and password do not match
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
)

//TokenPair is what a successful login returns
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

//Claims are the claims carried by access and refresh tokens
type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

//TokenIssuer signs and verifies HS256 tokens
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

//NewTokenIssuer creates an issuer for the given signing secret and token lifetimes
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

//Issue returns a fresh access and refresh token for user
func (ti *TokenIssuer) Issue(user *models.User) (*TokenPair, error) {
	access, err := ti.sign(user.ID, accessTokenType, ti.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ti.sign(user.ID, refreshTokenType, ti.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

//Refresh exchanges a valid refresh token for a new access token
func (ti *TokenIssuer) Refresh(refreshToken string) (string, error) {
	claims, err := ti.parse(refreshToken, refreshTokenType)
	if err != nil {
		return "", err
	}

	return ti.sign(claims.UserID, accessTokenType, ti.accessTTL)
}

//ValidateAccess returns the id of the user an access token was issued to
func (ti *TokenIssuer) ValidateAccess(accessToken string) (uint, error) {
	claims, err := ti.parse(accessToken, accessTokenType)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (ti *TokenIssuer) sign(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti *TokenIssuer) parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

//HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

//CheckPassword returns ErrInvalidCredentials unless password matches the user's hash
func CheckPassword(user *models.User, password string) error {
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
