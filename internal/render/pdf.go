package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// Printer turns an HTML page into PDF bytes.
type Printer interface {
	Print(ctx context.Context, html []byte) ([]byte, error)
}

// PDF renders the plan to HTML and prints it.
func PDF(ctx context.Context, doc *planning.GeneratedPlanning, p Printer) ([]byte, error) {
	html, err := HTML(doc)
	if err != nil {
		return nil, err
	}
	out, err := p.Print(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return out, nil
}

// A4 in inches; margins are 2cm.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
	marginIn   = 2 / 2.54
)

// ChromePrinter prints with a headless Chrome started for each call. The
// browser is torn down when Print returns.
type ChromePrinter struct {
	// ExecPath overrides the browser binary; empty uses the PATH lookup.
	ExecPath string
	Timeout  time.Duration
}

func (c *ChromePrinter) Print(ctx context.Context, html []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthIn).
				WithPaperHeight(a4HeightIn).
				WithMarginTop(marginIn).
				WithMarginBottom(marginIn).
				WithMarginLeft(marginIn).
				WithMarginRight(marginIn).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome: %w", err)
	}
	return pdf, nil
}
