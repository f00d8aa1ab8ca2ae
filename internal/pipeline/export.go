package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mzhuang1/chanyeops-sub000/internal/render"
)

// Format is a downloadable document format.
type Format string

const (
	FormatWord Format = "word"
	FormatPDF  Format = "pdf"
)

// ErrUnknownFormat is returned for formats other than word and pdf.
var ErrUnknownFormat = errors.New("unknown export format")

// Document is a rendered plan ready to stream.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	contentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	contentTypePDF  = "application/pdf"
)

// Export renders a completed run. Runs that are not completed return
// ErrNotCompleted.
func (o *Orchestrator) Export(ctx context.Context, id, userID string, format Format) (Document, error) {
	if format != FormatWord && format != FormatPDF {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	snap, err := o.GetRun(ctx, id, userID)
	if err != nil {
		return Document{}, err
	}
	plan, err := snap.Plan()
	if err != nil {
		return Document{}, err
	}

	log := o.log.With("run_id", id, "format", format)
	switch format {
	case FormatWord:
		data, err := render.DOCX(plan)
		if err != nil {
			return Document{}, fmt.Errorf("render docx: %w", err)
		}
		log.Info("plan exported", "bytes", len(data))
		return Document{Filename: plan.Title + ".docx", ContentType: contentTypeDOCX, Data: data}, nil
	default:
		if o.printer == nil {
			return Document{}, errors.New("pdf export is not configured")
		}
		data, err := render.PDF(ctx, plan, o.printer)
		if err != nil {
			return Document{}, err
		}
		log.Info("plan exported", "bytes", len(data))
		return Document{Filename: plan.Title + ".pdf", ContentType: contentTypePDF, Data: data}, nil
	}
}
