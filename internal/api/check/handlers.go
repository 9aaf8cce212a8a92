package check

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/controlx2/version-api/internal/api/common"
	"github.com/controlx2/version-api/pkg/logging"
	"github.com/controlx2/version-api/pkg/release"
	"github.com/controlx2/version-api/pkg/response"
	"github.com/controlx2/version-api/pkg/version"
)

// ReleaseProvider supplies the release clients are compared against
type ReleaseProvider interface {
	Get(ctx context.Context) (*release.Release, error)
	Invalidate()
}

// Recorder receives check observations
type Recorder interface {
	RecordCheck(version, timezone, countryCode, deviceUUID string)
	RecordCompare(upToDate bool)
	SetLatestVersion(version string)
}

// Handler handles version check HTTP requests
type Handler struct {
	releases ReleaseProvider
	metrics  Recorder
}

// NewHandler creates a new check handler
func NewHandler(releases ReleaseProvider, metrics Recorder) *Handler {
	return &Handler{
		releases: releases,
		metrics:  metrics,
	}
}

// Latest handles GET /. No client version is compared, so upToDate is
// always false.
func (h *Handler) Latest(c echo.Context) error {
	r, err := h.latest(c)
	if err != nil {
		return h.fail(c, "", err)
	}

	payload, err := response.Build(false, r)
	if err != nil {
		return h.fail(c, "", err)
	}
	return response.OK(c, payload)
}

// Refresh handles GET /refresh: drops the cached release, then answers
// like Latest
func (h *Handler) Refresh(c echo.Context) error {
	h.releases.Invalidate()
	return h.Latest(c)
}

// Check handles GET|POST /check/{version}
func (h *Handler) Check(c echo.Context) error {
	current := versionParam(c)
	if current == "" {
		return echo.ErrNotFound
	}

	var req common.CheckRequest
	if isJSON(c) {
		if err := bindJSON(c, &req); err != nil {
			return response.BadRequest(c, "Invalid JSON body")
		}
		if err := c.Validate(&req); err != nil {
			logging.Logger.Warn("Dropping invalid user info from check",
				zap.String("version", current),
				zap.Error(err))
			req.User = common.UserInfo{}
		}
	}

	user := req.User
	h.metrics.RecordCheck(current, user.Timezone, user.CountryCode, user.DeviceUUID)
	logging.LogCheck(current, user.Timezone, user.CountryCode, user.DeviceUUID)

	r, err := h.latest(c)
	if err != nil {
		return h.fail(c, current, err)
	}
	h.metrics.SetLatestVersion(r.Name)

	upToDate, err := version.Compare(current, r)
	if err != nil {
		return h.fail(c, current, err)
	}
	h.metrics.RecordCompare(upToDate)

	payload, err := response.Build(upToDate, r)
	if err != nil {
		return h.fail(c, current, err)
	}
	return response.OK(c, payload)
}

func (h *Handler) latest(c echo.Context) (*release.Release, error) {
	r, err := h.releases.Get(c.Request().Context())
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, release.ErrNoRelease
	}
	return r, nil
}

// fail logs err and maps it to a server error response
func (h *Handler) fail(c echo.Context, current string, err error) error {
	switch {
	case errors.Is(err, release.ErrUpstream):
		logging.LogCheckFailed("upstream", current, c.Path(), err)
		return response.BadGateway(c, err.Error())
	case errors.Is(err, release.ErrNoRelease):
		logging.LogCheckFailed("no_release", current, c.Path(), err)
	case errors.Is(err, version.ErrMalformedVersion):
		logging.LogCheckFailed("malformed_version", current, c.Path(), err)
	case errors.Is(err, response.ErrEmptyReleaseBody):
		logging.LogCheckFailed("empty_release_body", current, c.Path(), err)
	default:
		logging.LogCheckFailed("internal", current, c.Path(), err)
	}
	return response.InternalServerError(c, err.Error())
}

// versionParam returns the client version from the wildcard path segment,
// URL-decoded. It may contain slashes.
func versionParam(c echo.Context) string {
	raw := c.Param("*")
	if c.Request().URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// bindJSON decodes a JSON body of any accepted JSON media type. An empty body
// leaves dest untouched.
func bindJSON(c echo.Context, dest interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return c.Echo().JSONSerializer.Deserialize(c, dest)
}

// isJSON accepts application/json and structured application/*+json types
func isJSON(c echo.Context) bool {
	ctype, _, _ := strings.Cut(c.Request().Header.Get(echo.HeaderContentType), ";")
	ctype = strings.ToLower(strings.TrimSpace(ctype))
	if ctype == echo.MIMEApplicationJSON {
		return true
	}
	return strings.HasPrefix(ctype, "application/") && strings.HasSuffix(ctype, "+json")
}
