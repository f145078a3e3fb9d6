package query

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Page is a parsed page/limit pair
type Page struct {
	Page  int
	Limit int
}

// ParamID parses a positive numeric route parameter
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// OptionalUint parses a numeric query parameter; an absent parameter is 0
func OptionalUint(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}

// Pagination reads page and limit, clamping limit to max
func Pagination(c *fiber.Ctx, defaultLimit, max int) Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > max {
		limit = max
	}
	return Page{Page: page, Limit: limit}
}
