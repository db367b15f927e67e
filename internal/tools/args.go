package tools

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSearchLimit = 10
	defaultListLimit   = 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type searchArgs struct {
	Query string `json:"query" validate:"required"`
	Type  string `json:"type" validate:"omitempty,oneof=track album artist playlist"`
	Limit *int   `json:"limit" validate:"omitempty,gte=1,lte=50"`
}

type limitArgs struct {
	Limit *int `json:"limit" validate:"omitempty,gte=1,lte=50"`
}

type playlistTracksArgs struct {
	PlaylistID string `json:"playlist_id" validate:"required"`
	Limit      *int   `json:"limit" validate:"omitempty,gte=1,lte=50"`
}

type deviceArgs struct {
	DeviceID string `json:"device_id"`
}

// itemArgs identifies an item either by full URI or by type and id.
type itemArgs struct {
	URI      string `json:"uri"`
	Type     string `json:"type" validate:"omitempty,oneof=track album artist playlist episode show"`
	ID       string `json:"id" validate:"omitempty,alphanum"`
	DeviceID string `json:"device_id"`
}

type volumeArgs struct {
	VolumePercent *int   `json:"volume_percent" validate:"required,gte=0,lte=100"`
	DeviceID      string `json:"device_id"`
}

// bind decodes the request arguments into dst and validates them.
func bind(req mcp.CallToolRequest, dst any) error {
	if err := req.BindArguments(dst); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if err := validate.Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%w: %s", shared.ErrMissingArgument, fe.Field())
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidArgument, strings.Join(msgs, "; "))
}

func limitOr(limit *int, def int) int {
	if limit == nil {
		return def
	}
	return *limit
}

// resolveURI returns the Spotify URI named by a, or "" when a names nothing. allowed restricts
// the item types that may be referenced.
func (a itemArgs) resolveURI(allowed ...string) (string, error) {
	uri := strings.TrimSpace(a.URI)
	kind := a.Type

	switch {
	case uri != "":
		parts := strings.Split(uri, ":")
		if len(parts) != 3 || parts[0] != "spotify" || parts[1] == "" || parts[2] == "" {
			return "", fmt.Errorf("%w: uri must look like spotify:<type>:<id>, got %q", shared.ErrInvalidArgument, a.URI)
		}
		kind = parts[1]
	case a.ID != "":
		if kind == "" {
			kind = "track"
		}
		uri = fmt.Sprintf("spotify:%s:%s", kind, a.ID)
	case a.Type != "":
		return "", fmt.Errorf("%w: id is required when type is given", shared.ErrMissingArgument)
	default:
		return "", nil
	}

	for _, k := range allowed {
		if k == kind {
			return uri, nil
		}
	}
	return "", fmt.Errorf("%w: %s items are not supported here, use one of: %s", shared.ErrInvalidArgument, kind, strings.Join(allowed, ", "))
}
