package handlers

import (
	"net/http"
	"strconv"

	"stockbill/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func tenantFromRequest(c echo.Context) (uuid.UUID, error) {
	tenantID, ok := common.GetTenantIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}
	return tenantID, nil
}

// pathID parses a UUID path parameter, answering 400 itself when it is malformed.
func pathID(c echo.Context, name string) (uuid.UUID, bool, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, false, common.SendError(c, name, err)
	}
	return id, true, nil
}

// pagination reads limit/offset query params; garbage falls back to the service defaults.
func pagination(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.NewValidationError(name, "must be a number")
	}
	return n, nil
}
