// Package component defines the flat client payload of a component and its
// split into stored columns and opaque style.
package component

import (
	"errors"
	"fmt"

	"pagebuilder/api/internal/layout"
)

// Client-facing keys with a fixed meaning. Everything else is style.
const (
	KeyID     = "id"
	KeyParent = "parent"
	KeyLeft   = "left"
	KeyTop    = "top"
	KeyWidth  = "width"
	KeyHeight = "height"
	// KeyPage tags a payload with its page title in bulk updates.
	KeyPage = "page"
)

const maxCompIDLength = 250

// ErrInvalid is wrapped by every payload validation failure.
var ErrInvalid = errors.New("invalid component payload")

// Payload is the flat shape the editor sends and receives.
type Payload map[string]any

// Fields are the modelled columns of a component.
type Fields struct {
	CompID string
	Parent *string
	Box    layout.Box
}

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks the payload against the component schema.
func Validate(p Payload) error {
	if p == nil {
		return &ValidationError{Reason: "payload is empty"}
	}
	instance, err := jsonInstance(p)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if err := payloadSchema.Validate(instance); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// Split validates the payload and separates modelled fields from style.
// Every key other than the six fixed ones is kept as style, page included.
func Split(p Payload) (Fields, layout.Style, error) {
	if err := Validate(p); err != nil {
		return Fields{}, nil, err
	}

	fields := Fields{CompID: p[KeyID].(string)}
	if parent, ok := p[KeyParent].(string); ok {
		fields.Parent = &parent
	}

	var err error
	if fields.Box.Left, err = intField(p, KeyLeft); err != nil {
		return Fields{}, nil, err
	}
	if fields.Box.Top, err = intField(p, KeyTop); err != nil {
		return Fields{}, nil, err
	}
	if fields.Box.Width, err = intField(p, KeyWidth); err != nil {
		return Fields{}, nil, err
	}
	if fields.Box.Height, err = intField(p, KeyHeight); err != nil {
		return Fields{}, nil, err
	}

	style := make(layout.Style, len(p))
	for key, value := range p {
		switch key {
		case KeyID, KeyParent, KeyLeft, KeyTop, KeyWidth, KeyHeight:
			continue
		}
		style[key] = value
	}
	return fields, style, nil
}

// Compose rebuilds the client payload from stored fields and style.
func Compose(fields Fields, style layout.Style) Payload {
	out := make(Payload, len(style)+6)
	for key, value := range style {
		out[key] = value
	}
	out[KeyLeft] = fields.Box.Left
	out[KeyTop] = fields.Box.Top
	out[KeyWidth] = fields.Box.Width
	out[KeyHeight] = fields.Box.Height
	out[KeyID] = fields.CompID
	if fields.Parent != nil {
		out[KeyParent] = *fields.Parent
	} else {
		out[KeyParent] = nil
	}
	return out
}

// StripPage returns a copy of a bulk payload without its page tag.
func StripPage(p Payload) Payload {
	out := make(Payload, len(p))
	for key, value := range p {
		if key != KeyPage {
			out[key] = value
		}
	}
	return out
}

// PageTitle returns the bulk page tag of a payload.
func PageTitle(p Payload) (string, error) {
	title, ok := p[KeyPage].(string)
	if !ok {
		return "", &ValidationError{Reason: "page must be a string"}
	}
	return title, nil
}

func intField(p Payload, key string) (int, error) {
	switch v := p[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, &ValidationError{Reason: fmt.Sprintf("%s must be an integer", key)}
	}
}
