// Package auth はユーザー認証とJWTトークン管理を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind はトークンの用途種別。
type TokenKind string

const (
	// TokenKindAccess はAPIアクセス用の短命トークン。
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh はアクセストークン再発行用の長命トークン。
	TokenKindRefresh TokenKind = "refresh"
)

// TokenService はHS256署名のJWTを発行・検証する。
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService はTokenServiceの新しいインスタンスを生成する。
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// tokenClaims はアプリ固有のクレームを含むJWTクレーム。
type tokenClaims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Sign は指定ユーザー向けのトークンを発行する。
func (s *TokenService) Sign(userID string, kind TokenKind) (string, error) {
	ttl := s.accessTTL
	if kind == TokenKindRefresh {
		ttl = s.refreshTTL
	}

	now := time.Now()
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken はアクセストークンを検証し、ユーザーIDを返す。
// 認証ミドルウェアのTokenVerifierインターフェースを満たす。
func (s *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	return s.Verify(tokenString, TokenKindAccess)
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 署名不正、期限切れ、用途種別の不一致はすべてエラーとなる。
func (s *TokenService) Verify(tokenString string, kind TokenKind) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("予期しない署名アルゴリズムです: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("トークンの検証に失敗しました: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("トークンが無効です")
	}
	if claims.Kind != kind {
		return "", fmt.Errorf("トークンの用途種別が一致しません: %s", claims.Kind)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("トークンにユーザーIDが含まれていません")
	}
	return claims.Subject, nil
}
