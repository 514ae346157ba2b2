package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/dayboard/pkg/errors"
)

const dateLayout = "2006-01-02"

type dateSource interface {
	ReferenceDate() time.Time
	Location() *time.Location
}

// parseDate reads a YYYY-MM-DD value as midnight in the session timezone.
func parseDate(raw, field string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", field))
	}
	return parsed, nil
}

// dateQuery reads the optional ?date= parameter, defaulting to the shell's reference date.
func dateQuery(c *gin.Context, src dateSource) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return src.ReferenceDate(), nil
	}
	return parseDate(raw, "date", src.Location())
}
