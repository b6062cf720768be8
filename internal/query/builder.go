// Package query turns raw control values into validated query descriptors
package query

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"nasa-explorer/internal/domain"

	"github.com/go-playground/validator/v10"
)

// MaxNeoSpan is the widest start-to-end range the NEO feed accepts
const MaxNeoSpan = 7 * 24 * time.Hour

// Controls holds raw user-supplied filter values. Field shape is checked with
// struct tags; cross-field rules are applied per resource by Build.
type Controls struct {
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Rover     string `form:"rover" validate:"omitempty,oneof=curiosity opportunity spirit"`
	Camera    string `form:"camera" validate:"omitempty,alphanum"`
	EarthDate string `form:"earth_date" validate:"omitempty,datetime=2006-01-02"`
	Query     string `form:"q" validate:"max=200"`
	Page      int    `form:"page"`
	YearStart string `form:"year_start" validate:"omitempty,numeric,len=4"`
	YearEnd   string `form:"year_end" validate:"omitempty,numeric,len=4"`
}

// Builder builds query descriptors. It is safe for concurrent use.
type Builder struct {
	validate *validator.Validate
}

// NewBuilder creates a builder
func NewBuilder() *Builder {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Builder{validate: v}
}

// Build validates controls for a resource and returns the descriptor.
// Errors are always *domain.Failure of kind ValidationError.
func (b *Builder) Build(resource domain.Resource, c Controls) (domain.QueryDescriptor, error) {
	c = c.normalized()
	if err := b.validate.Struct(c); err != nil {
		return domain.QueryDescriptor{}, translate(err)
	}

	switch resource {
	case domain.ResourceApod:
		return buildApod(c), nil
	case domain.ResourceMarsPhotos:
		return buildMars(c)
	case domain.ResourceNeoFeed:
		return buildNeo(c)
	case domain.ResourceImageSearch:
		return buildSearch(c)
	}
	return domain.QueryDescriptor{}, domain.Validation("resource", fmt.Sprintf("Unknown resource %q.", resource))
}

func (c Controls) normalized() Controls {
	c.Date = strings.TrimSpace(c.Date)
	c.StartDate = strings.TrimSpace(c.StartDate)
	c.EndDate = strings.TrimSpace(c.EndDate)
	c.Rover = strings.ToLower(strings.TrimSpace(c.Rover))
	c.Camera = strings.ToUpper(strings.TrimSpace(c.Camera))
	c.EarthDate = strings.TrimSpace(c.EarthDate)
	c.Query = strings.TrimSpace(c.Query)
	c.YearStart = strings.TrimSpace(c.YearStart)
	c.YearEnd = strings.TrimSpace(c.YearEnd)
	return c
}

func buildApod(c Controls) domain.QueryDescriptor {
	params := url.Values{}
	params.Set("thumbs", "true")
	if c.Date != "" {
		params.Set("date", c.Date)
	}
	return domain.NewQueryDescriptor(domain.ResourceApod, params)
}

func buildMars(c Controls) (domain.QueryDescriptor, error) {
	rover := c.Rover
	if rover == "" {
		rover = DefaultRover
	}
	if c.Camera != "" && !ValidCamera(rover, c.Camera) {
		return domain.QueryDescriptor{}, domain.Validation("camera",
			fmt.Sprintf("Camera %s is not available on %s.", c.Camera, rover))
	}

	earthDate := c.EarthDate
	if earthDate == "" {
		earthDate = DefaultEarthDate
	}
	day, _ := time.Parse(domain.DateLayout, earthDate)

	params := url.Values{}
	params.Set("earth_date", earthDate)
	if c.Camera != "" {
		params.Set("camera", c.Camera)
	}
	return domain.NewQueryDescriptor(domain.ResourceMarsPhotos, params,
		domain.WithRover(rover), domain.WithRange(day, day)), nil
}

func buildNeo(c Controls) (domain.QueryDescriptor, error) {
	if c.StartDate == "" || c.EndDate == "" {
		return domain.QueryDescriptor{}, domain.Validation("start_date", "Please select a start and end date.")
	}
	start, _ := time.Parse(domain.DateLayout, c.StartDate)
	end, _ := time.Parse(domain.DateLayout, c.EndDate)
	if err := CheckNeoRange(start, end); err != nil {
		return domain.QueryDescriptor{}, err
	}

	params := url.Values{}
	params.Set("start_date", c.StartDate)
	params.Set("end_date", c.EndDate)
	return domain.NewQueryDescriptor(domain.ResourceNeoFeed, params, domain.WithRange(start, end)), nil
}

// CheckNeoRange enforces the upstream feed limit before any request is issued
func CheckNeoRange(start, end time.Time) error {
	if end.Before(start) {
		return domain.Validation("end_date", "End date must be after start date.")
	}
	if end.Sub(start) > MaxNeoSpan {
		return domain.Validation("end_date", "The range cannot exceed 7 days.")
	}
	return nil
}

func buildSearch(c Controls) (domain.QueryDescriptor, error) {
	if c.YearStart != "" && c.YearEnd != "" {
		ys, _ := strconv.Atoi(c.YearStart)
		ye, _ := strconv.Atoi(c.YearEnd)
		if ye < ys {
			return domain.QueryDescriptor{}, domain.Validation("year_end", "End year must not precede start year.")
		}
	}

	page := c.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("media_type", "image")
	params.Set("page", strconv.Itoa(page))
	if c.Query != "" {
		params.Set("q", c.Query)
	}
	if c.YearStart != "" {
		params.Set("year_start", c.YearStart)
	}
	if c.YearEnd != "" {
		params.Set("year_end", c.YearEnd)
	}
	return domain.NewQueryDescriptor(domain.ResourceImageSearch, params, domain.WithPage(page)), nil
}

// DefaultNeoRange returns the last three days up to now
func DefaultNeoRange(now time.Time) (start, end string) {
	return now.AddDate(0, 0, -3).Format(domain.DateLayout), now.Format(domain.DateLayout)
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Validation("", err.Error())
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "datetime":
		return domain.Validation(field, fmt.Sprintf("%s must be a date in YYYY-MM-DD format.", field))
	case "oneof":
		return domain.Validation(field, fmt.Sprintf("%s must be one of: %s.", field, fe.Param()))
	case "numeric", "len":
		return domain.Validation(field, fmt.Sprintf("%s must be a four-digit year.", field))
	case "max":
		return domain.Validation(field, fmt.Sprintf("%s is too long.", field))
	case "alphanum":
		return domain.Validation(field, fmt.Sprintf("%s must be a camera code.", field))
	}
	return domain.Validation(field, fmt.Sprintf("%s is invalid.", field))
}
