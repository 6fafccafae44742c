package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlannerKeyHash hashes a planner API key for storage and comparison
func PlannerKeyHash(key string) [32]byte {
	return sha256.Sum256([]byte(key))
}

// PlannerAuth guards mutating routes with a shared planner key sent as
// "Authorization: Bearer <key>". Only the key hash is held in memory.
// A zero hash (no key configured) rejects every request.
func PlannerAuth(keyHash [32]byte) fiber.Handler {
	configured := keyHash != [32]byte{}

	return func(c *fiber.Ctx) error {
		if !configured {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "planner_key_not_configured",
				"message": "Write access is disabled until PLANNER_API_KEY is set",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "missing_api_key",
				"message": "API key is required. Use Authorization: Bearer YOUR_API_KEY",
			})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "invalid_auth_format",
				"message": "Authorization header must be in format: Bearer YOUR_API_KEY",
			})
		}

		presented := PlannerKeyHash(strings.TrimSpace(parts[1]))
		if subtle.ConstantTimeCompare(presented[:], keyHash[:]) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "invalid_api_key",
				"message": "The provided API key is invalid",
			})
		}

		c.Locals("planner", true)
		return c.Next()
	}
}

// GeneratePlannerKey returns a new planner key of the form
// pk_<env>_<64 hex>_<4 hex checksum> and a short prefix for display.
func GeneratePlannerKey(env string) (key, prefix string, err error) {
	if env != "test" && env != "live" {
		return "", "", fmt.Errorf("env must be test or live, got %q", env)
	}

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}
	randomStr := hex.EncodeToString(random)

	checksum := sha256.Sum256([]byte(randomStr))
	key = fmt.Sprintf("pk_%s_%s_%s", env, randomStr, hex.EncodeToString(checksum[:2]))
	prefix = fmt.Sprintf("pk_%s_%s...", env, randomStr[:8])
	return key, prefix, nil
}
