package export

import (
	"context"
	"fmt"
)

// Capturer turns an HTML document into a binary format.
type Capturer interface {
	Capture(ctx context.Context, html []byte, format Format) ([]byte, error)
}

// Service provides page export functionality
type Service struct {
	capturer Capturer
}

// NewService creates a new export service. A nil capturer limits exports to HTML.
func NewService(capturer Capturer) *Service {
	return &Service{capturer: capturer}
}

// Export renders the page in the requested format.
func (s *Service) Export(ctx context.Context, page Page, format Format) (*Result, error) {
	html, err := RenderHTML(page)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:     html,
		Filename: sanitizeFilename(page.Title) + "." + string(format),
		MimeType: format.MimeType(),
	}
	if format == FormatHTML {
		return result, nil
	}

	if s.capturer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", ErrRendererUnavailable)
	}
	data, err := s.capturer.Capture(ctx, html, format)
	if err != nil {
		return nil, err
	}
	result.Data = data
	return result, nil
}
