package web

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

// errInvalidOption maps to VAL007.
var errInvalidOption = errors.New("invalid option")

// optionsRequest is the raw form or query input for one file.
type optionsRequest struct {
	Clean   bool     `json:"clean"`
	Dedupe  bool     `json:"dedupe"`
	Fill    bool     `json:"fill"`
	Chart   bool     `json:"chart"`
	Columns []string `json:"columns" validate:"max=1000,dive,required,max=256"`
	Format  string   `json:"format" validate:"omitempty,outputformat"`

	// columnsSet distinguishes "nothing selected" from "not submitted".
	columnsSet bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("outputformat", func(fl validator.FieldLevel) bool {
		_, err := core.ParseFormat(fl.Field().String())
		return err == nil
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseOptions reads pipeline options from already parsed form values.
//
// Booleans accept strconv.ParseBool values and "on". Each repeated columns
// value is one header name taken verbatim, since names may contain commas or
// surrounding spaces. column_list is a comma separated, trimmed shorthand for
// API clients and is appended after the repeated values. A columns_set
// marker with no columns selects none; without any of them every column is
// kept.
func parseOptions(form url.Values) (optionsRequest, error) {
	var req optionsRequest
	var errs []string

	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"clean", &req.Clean},
		{"dedupe", &req.Dedupe},
		{"fill", &req.Fill},
		{"chart", &req.Chart},
	} {
		v, err := parseBool(form.Get(b.key))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a boolean", b.key))
			continue
		}
		*b.dst = v
	}

	raw, listed := form["columns"]
	list, shorthand := form["column_list"]
	if listed || shorthand || form.Get("columns_set") != "" {
		req.columnsSet = true
		req.Columns = append([]string{}, raw...)
		for _, v := range list {
			for _, c := range strings.Split(v, ",") {
				if c = strings.TrimSpace(c); c != "" {
					req.Columns = append(req.Columns, c)
				}
			}
		}
	}

	req.Format = strings.ToLower(strings.TrimSpace(form.Get("format")))

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, formatValidationError(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return optionsRequest{}, fmt.Errorf("%w: %s", errInvalidOption, strings.Join(errs, "; "))
	}
	return req, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	return strconv.ParseBool(s)
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not be blank", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "outputformat":
		return fmt.Sprintf("%s %q is not a supported output format", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// coreOptions converts the request into pipeline options.
func (req optionsRequest) coreOptions() core.Options {
	format, _ := core.ParseFormat(req.Format)

	opts := core.Options{
		Clean: core.CleanOptions{
			Enabled:          req.Clean,
			RemoveDuplicates: req.Dedupe,
			FillMissing:      req.Fill,
		},
		ShowChart: req.Chart,
		Format:    format,
	}
	if req.columnsSet {
		opts.Columns = req.Columns
	}
	return opts
}

// view returns the form state for rendering.
func (req optionsRequest) view() templates.OptionsView {
	format, _ := core.ParseFormat(req.Format)
	v := templates.OptionsView{
		Clean:  req.Clean,
		Dedupe: req.Dedupe,
		Fill:   req.Fill,
		Chart:  req.Chart,
		Format: string(format),
	}
	if req.columnsSet {
		v.Columns = req.Columns
	}
	return v
}

// encode returns the options as a query string for chart and download
// links, so those requests rebuild the same result.
func (req optionsRequest) encode() string {
	q := url.Values{}
	for _, b := range []struct {
		key string
		v   bool
	}{
		{"clean", req.Clean},
		{"dedupe", req.Dedupe},
		{"fill", req.Fill},
		{"chart", req.Chart},
	} {
		if b.v {
			q.Set(b.key, "true")
		}
	}
	if req.columnsSet {
		q.Set("columns_set", "1")
		for _, c := range req.Columns {
			q.Add("columns", c)
		}
	}
	if req.Format != "" {
		q.Set("format", req.Format)
	}
	return q.Encode()
}
