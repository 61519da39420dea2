package server

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/vodcompose/internal/job"
)

var (
	clipTimePattern  = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)
	argbColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	integerPattern   = regexp.MustCompile(`^[-+]?\d+$`)
)

// newValidator returns a validator that knows the request-specific tags and
// reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "cliptime", clipTimePattern)
	mustRegister(v, "argbcolor", argbColorPattern)
	mustRegister(v, "integer", integerPattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validationMessage turns validator errors into one readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "number":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	case "integer", "numeric":
		return fmt.Sprintf("%s must be a number", fe.Field())
	case "boolean":
		return fmt.Sprintf("%s must be true or false", fe.Field())
	case "cliptime":
		return "beginning/ending must look like HH:MM:SS (example 02:00:00)"
	case "argbcolor":
		return "background_color must be like #RRGGBB or #AARRGGBB"
	case "max":
		return fmt.Sprintf("%s is too long", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// toParams converts a validated request into job parameters, filling in
// defaults and clamping numbers into range.
func (r CreateJobRequest) toParams() (job.Params, error) {
	p := job.DefaultParams(string(r.VodID))
	var err error

	if r.Quality != "" {
		p.Quality = string(r.Quality)
	}
	if p.Threads, err = intOr(r.Threads, "threads", p.Threads); err != nil {
		return job.Params{}, err
	}
	if r.Bandwidth != "" {
		bw, err := intOr(r.Bandwidth, "bandwidth", 0)
		if err != nil {
			return job.Params{}, err
		}
		p.Bandwidth = &bw
	}
	p.Beginning = string(r.Beginning)
	p.Ending = string(r.Ending)
	p.IncludeChat = boolOr(r.IncludeChat, p.IncludeChat)
	if p.ChatWidth, err = intOr(r.ChatWidth, "chat_width", p.ChatWidth); err != nil {
		return job.Params{}, err
	}
	if p.FontSize, err = intOr(r.FontSize, "font_size", p.FontSize); err != nil {
		return job.Params{}, err
	}
	if p.Framerate, err = intOr(r.Framerate, "framerate", p.Framerate); err != nil {
		return job.Params{}, err
	}
	if r.UpdateRate != "" {
		if p.UpdateRate, err = strconv.ParseFloat(string(r.UpdateRate), 64); err != nil {
			return job.Params{}, fmt.Errorf("update_rate must be a number")
		}
	}
	if r.BackgroundColor != "" {
		p.BackgroundColor = string(r.BackgroundColor)
	}
	p.Outline = boolOr(r.Outline, p.Outline)
	if p.QualityFactor, err = intOr(r.QualityFactor, "quality_factor", p.QualityFactor); err != nil {
		return job.Params{}, err
	}
	p.PushToS3 = boolOr(r.PushToS3, p.PushToS3)

	return p.Clamped(), nil
}

func intOr(v FlexString, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(v), "+"))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

func boolOr(v FlexString, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(string(v))
	if err != nil {
		return def
	}
	return b
}
