// Package runname expands run-name templates such as "Cloud-1-<%H:%M:%S>".
package runname

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// Default is used when no run name is configured
const Default = "Cloud-1"

// InvalidTemplateError reports a bracketed date directive that cannot be formatted
type InvalidTemplateError struct {
	Template  string
	Directive string
	Err       error
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("invalid run name template %q: directive %q: %v", e.Template, e.Directive, e.Err)
}

func (e *InvalidTemplateError) Unwrap() error {
	return e.Err
}

// Resolve replaces the single <strftime directive> in template with ref formatted by it.
// A template without both brackets is returned unchanged.
func Resolve(template string, ref time.Time) (string, error) {
	open := strings.IndexByte(template, '<')
	closing := strings.IndexByte(template, '>')
	if open < 0 || closing < 0 {
		return template, nil
	}
	if closing < open {
		return "", &InvalidTemplateError{Template: template, Err: fmt.Errorf("'>' before '<'")}
	}

	directive := template[open+1 : closing]
	if err := validate(directive); err != nil {
		return "", &InvalidTemplateError{Template: template, Directive: directive, Err: err}
	}

	return template[:open] + strftime.Format(directive, ref) + template[closing+1:], nil
}

// specifiers go-strftime knows how to format
const specifiers = "AaBbhmdeIlHkMSLfNyYCUWVgGsQwujpPZz+cvFDxrTXR%tn"

// validate rejects unknown conversions, which strftime.Format would echo back verbatim
func validate(directive string) error {
	for i := 0; i < len(directive); i++ {
		if directive[i] != '%' {
			continue
		}
		i++
		if i < len(directive) && (directive[i] == '-' || directive[i] == ':') {
			i++
		}
		if i < len(directive) && (directive[i] == 'E' || directive[i] == 'O') {
			i++
		}
		if i >= len(directive) {
			return fmt.Errorf("dangling %%")
		}
		if !strings.ContainsRune(specifiers, rune(directive[i])) {
			return fmt.Errorf("unknown conversion %%%c", directive[i])
		}
	}
	return nil
}
