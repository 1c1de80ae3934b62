package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultChromeTimeout = 30 * time.Second

// A4 sheet and the margin every document uses, in millimetres
const (
	sheetWidthMM  = 210.0
	sheetHeightMM = 297.0
	marginMM      = 12.0
)

// ChromedpConfig selects the browser. With RemoteURL set the renderer attaches
// to that DevTools endpoint; otherwise it launches ExecPath (or whatever
// chromedp finds on PATH) headless.
type ChromedpConfig struct {
	ExecPath       string
	RemoteURL      string
	DefaultTimeout time.Duration
	// NoSandbox is needed when Chrome runs as root inside a container
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpRenderer prints HTML through headless Chrome. Every Render opens its
// own tab on a shared browser allocator.
type ChromedpRenderer struct {
	cfg     ChromedpConfig
	log     *zap.Logger
	alloc   context.Context
	release context.CancelFunc
}

// NewChromedpRenderer prepares the allocator; the browser process itself is
// only started by the first Render.
func NewChromedpRenderer(cfg ChromedpConfig) *ChromedpRenderer {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultChromeTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &ChromedpRenderer{cfg: cfg, log: log.Named("chromedp")}
	r.alloc, r.release = allocator(cfg)
	return r
}

func allocator(cfg ChromedpConfig) (context.Context, context.CancelFunc) {
	if cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	}
	flags := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	}
	if cfg.NoSandbox {
		flags = append(flags, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(cfg.ExecPath))
	}
	return chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:], flags...)...)
}

func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if req == nil || strings.TrimSpace(req.HTML) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "nothing to render", nil)
	}

	timeout := r.cfg.DefaultTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	pdf, err := r.print(ctx, wrapDocument(req), printParams(req))
	if err != nil {
		return nil, r.classify(ctx, err, timeout)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "browser returned an empty PDF", nil)
	}

	result := &RenderResult{PDFData: pdf, PageCount: countPages(pdf), RenderDuration: time.Since(started)}
	r.log.Debug("Document printed",
		zap.String("title", req.Title),
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result, nil
}

// print loads document into a blank tab and prints it. The tab is closed when
// ctx ends so a stuck page cannot outlive the request.
func (r *ChromedpRenderer) print(ctx context.Context, document string, params *page.PrintToPDFParams) ([]byte, error) {
	tab, closeTab := chromedp.NewContext(r.alloc, chromedp.WithLogf(r.log.Sugar().Debugf))
	defer closeTab()
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, document).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)
	return pdf, err
}

func (r *ChromedpRenderer) classify(ctx context.Context, err error, timeout time.Duration) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewRenderError(ErrCodeRenderTimeout, fmt.Sprintf("print did not finish within %v", timeout), err)
	case errors.Is(ctx.Err(), context.Canceled):
		return NewRenderError(ErrCodeRenderTimeout, "print cancelled", err)
	}
	r.log.Error("Chrome print failed", zap.Error(err))
	return NewRenderError(ErrCodeRenderFailed, "chrome print failed", err)
}

// Close shuts the browser down
func (r *ChromedpRenderer) Close() error {
	if r.release != nil {
		r.release()
	}
	return nil
}

func printParams(req *RenderRequest) *page.PrintToPDFParams {
	margin := inches(marginMM)
	return page.PrintToPDF().
		WithPaperWidth(inches(sheetWidthMM)).
		WithPaperHeight(inches(sheetHeightMM)).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin).
		WithLandscape(req.Landscape).
		WithPrintBackground(true)
}

// wrapDocument turns a fragment into a UTF-8 page; complete documents pass through
func wrapDocument(req *RenderRequest) string {
	head := strings.ToLower(req.HTML[:min(len(req.HTML), 512)])
	if strings.Contains(head, "<!doctype") || strings.Contains(head, "<html") {
		return req.HTML
	}
	title := ""
	if req.Title != "" {
		title = "<title>" + html.EscapeString(req.Title) + "</title>"
	}
	return `<!DOCTYPE html><html><head><meta charset="UTF-8">` + title + "</head><body>" + req.HTML + "</body></html>"
}

func inches(mm float64) float64 { return mm / 25.4 }

// countPages counts /Type /Page objects, excluding the /Pages tree nodes
func countPages(pdf []byte) int {
	n := bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
	return max(n, 1)
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
