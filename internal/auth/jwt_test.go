package auth_test

import (
	"testing"
	"time"

	"pulseflow/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key"

func TestGenerateAndParseToken(t *testing.T) {
	// Генерируем токен
	tokens := auth.NewTokenManager(testSecret, 24*time.Hour)
	userID := uuid.New()
	token, err := tokens.GenerateToken(userID, "me@pulseflow.com")

	// Проверяем, что токен создан без ошибок
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Парсим токен
	claims, err := tokens.ParseToken(token)

	// Проверяем, что из токена извлечены правильные ID и email пользователя
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "me@pulseflow.com", claims.Email)
}

func TestParseToken_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)

	// Пытаемся парсить неверный токен
	_, err := tokens.ParseToken("invalid-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.NewTokenManager("other-secret", time.Hour).GenerateToken(uuid.New(), "")
	assert.NoError(t, err)

	_, err = auth.NewTokenManager(testSecret, time.Hour).ParseToken(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	// Создаем токен с истекшим сроком действия
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(-1 * time.Hour).Unix(), // Токен истек 1 час назад
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString([]byte(testSecret))

	// Пытаемся парсить истекший токен
	_, err := auth.NewTokenManager(testSecret, time.Hour).ParseToken(expiredToken)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_MissingClaims(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	for name, claims := range map[string]jwt.MapClaims{
		"no user_id":   {"exp": time.Now().Add(24 * time.Hour).Unix()},
		"not a uuid":   {"user_id": "not-a-valid-uuid", "exp": time.Now().Add(24 * time.Hour).Unix()},
		"not a string": {"user_id": 42, "exp": time.Now().Add(24 * time.Hour).Unix()},
	} {
		t.Run(name, func(t *testing.T) {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, _ := token.SignedString([]byte(testSecret))

			_, err := tokens.ParseToken(signed)

			assert.ErrorIs(t, err, auth.ErrInvalidClaims)
		})
	}
}
