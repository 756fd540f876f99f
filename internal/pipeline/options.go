package pipeline

import (
	"fmt"
	"strings"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/imageio"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Format selects how the segmented image is written.
type Format string

const (
	FormatTransparentPNG Format = "transparent-png"
	FormatPNGWhite       Format = "png-white"
	FormatPNGBlack       Format = "png-black"
	FormatJPEG           Format = "jpeg"
)

var Formats = []Format{FormatTransparentPNG, FormatPNGWhite, FormatPNGBlack, FormatJPEG}

func (f Format) Container() imageio.Container {
	if f == FormatJPEG {
		return imageio.JPEG
	}
	return imageio.PNG
}

// Extension is the file extension conventionally used for the format.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// Options is passed by value into a job and never changes while it runs.
type Options struct {
	Format  Format `default:"transparent-png" validate:"required,oneof=transparent-png png-white png-black jpeg"`
	Quality int    `default:"95" validate:"gte=1,lte=100"`
	Backup  bool   `default:"true"`
}

var validate = validator.New()

func DefaultOptions() Options {
	var opts Options
	if err := defaults.Set(&opts); err != nil {
		panic(fmt.Sprintf("pipeline: invalid option defaults: %v", err))
	}
	return opts
}

func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s=%v", strings.ToLower(fe.Field()), fe.Value()))
			}
		}
		if len(fields) == 0 {
			return apperrors.Wrap(apperrors.InvalidOptions, err, "invalid options")
		}
		return apperrors.Wrapf(apperrors.InvalidOptions, err, "invalid options: %s", strings.Join(fields, ", "))
	}
	return nil
}

// ParseFormat accepts a format name and a few aliases used on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "transparent-png", "png", "transparent":
		return FormatTransparentPNG, nil
	case "png-white", "white":
		return FormatPNGWhite, nil
	case "png-black", "black":
		return FormatPNGBlack, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", apperrors.New(apperrors.InvalidOptions, fmt.Sprintf("unknown output format %q", name))
	}
}
