package response

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		signedIn bool
		want     int
	}{
		{name: "auth anonymous", err: &services.Error{Kind: services.KindAuth}, want: fiber.StatusUnauthorized},
		{name: "auth signed in", err: &services.Error{Kind: services.KindAuth}, signedIn: true, want: fiber.StatusForbidden},
		{name: "validation", err: &services.Error{Kind: services.KindValidation}, want: fiber.StatusUnprocessableEntity},
		{name: "incomplete", err: &services.Error{Kind: services.KindIncomplete}, want: fiber.StatusUnprocessableEntity},
		{name: "invalid option", err: &services.Error{Kind: services.KindInvalidOption}, want: fiber.StatusUnprocessableEntity},
		{name: "not found", err: &services.Error{Kind: services.KindNotFound}, want: fiber.StatusNotFound},
		{name: "window closed", err: &services.Error{Kind: services.KindWindowClosed}, want: fiber.StatusConflict},
		{name: "capacity", err: &services.Error{Kind: services.KindCapacity}, want: fiber.StatusConflict},
		{name: "persistence", err: &services.Error{Kind: services.KindPersistence, Err: errors.New("db down")}, want: fiber.StatusInternalServerError},
		{name: "untagged", err: errors.New("boom"), want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				if tt.signedIn {
					c.Locals("caller", &services.Caller{ProfileID: 1})
				}
				return ServiceError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCalculatePagination(t *testing.T) {
	meta := CalculatePagination(2, 20, 45)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 20, meta.PerPage)
	assert.Equal(t, 3, meta.TotalPages)

	clamped := CalculatePagination(0, 500, 0)
	assert.Equal(t, 1, clamped.CurrentPage)
	assert.Equal(t, 100, clamped.PerPage)
	assert.Zero(t, clamped.TotalPages)
}
