package tab

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/js"
	"github.com/AlfredBerg/job-scout/internal/page"
)

const closeTimeout = 5 * time.Second

type RodOptions struct {
	Headless bool
	Devtools bool
	Bin      string
}

// RodBrowser is a Browser backed by a locally launched chromium.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	log      *zap.Logger
}

func LaunchRod(opts RodOptions, log *zap.Logger) (*RodBrowser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Devtools(opts.Devtools)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if err := browser.IgnoreCertErrors(true); err != nil {
		log.Warn("could not ignore certificate errors", zap.Error(err))
	}

	//Don't download files in the browser, e.g. pdf files
	err = proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorDeny,
		BrowserContextID: browser.BrowserContextID,
	}.Call(browser)
	if err != nil {
		log.Warn("could not deny downloads", zap.Error(err))
	}

	b := &RodBrowser{browser: browser, launcher: l, log: log}

	//Close windows opened by the sites themselves
	go browser.EachEvent(func(e *proto.PageWindowOpen) {
		log.Debug("new window opened, trying to close it", zap.String("url", e.URL))
		time.Sleep(time.Millisecond * 500)
		pages, err := browser.Pages()
		if err != nil {
			log.Debug("failed getting pages in tab closer", zap.Error(err))
			return
		}
		for _, p := range pages {
			info, err := p.Info()
			if err != nil {
				continue
			}
			if info.URL == e.URL {
				if err := p.Close(); err != nil {
					log.Debug("failed closing popup", zap.Error(err))
				}
			}
		}
	})()

	return b, nil
}

func (b *RodBrowser) NewTab(ctx context.Context) (Tab, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{Background: true})
	if err != nil {
		return nil, err
	}
	tctx, cancel := context.WithCancel(context.Background())
	p = p.Context(tctx)

	//Avoid alerts blocking the load event
	go p.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: false, PromptText: ""}.Call(p)
	})()

	return &rodTab{page: p, cancel: cancel}, nil
}

func (b *RodBrowser) Close() error {
	defer b.launcher.Cleanup()
	return b.browser.Close()
}

type rodTab struct {
	page   *rod.Page
	cancel context.CancelFunc
}

func (t *rodTab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (t *rodTab) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	p := t.page.Context(ctx)

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("get html: %w", err)
	}
	text, err := p.Eval(js.VISIBLE_TEXT)
	if err != nil {
		return nil, fmt.Errorf("get text: %w", err)
	}
	loc, err := p.Eval(js.DOCUMENT_URL)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return page.Parse(html, loc.Value.Str(), text.Value.Str())
}

// Close works even after the job context was cancelled.
func (t *rodTab) Close() error {
	defer t.cancel()
	return t.page.Context(context.Background()).Timeout(closeTimeout).Close()
}
