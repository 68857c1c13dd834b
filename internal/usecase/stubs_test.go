package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

const testBaseURL = "https://pitchfork.example"

func detailURL(slug string) string {
	return testBaseURL + "/reviews/albums/" + slug + "/"
}

// stubFetcher serves canned bodies per URL. The last body of a sequence repeats.
type stubFetcher struct {
	mu        sync.Mutex
	bodies    map[string][]string
	errs      map[string]error
	gates     map[string]chan struct{}
	after     map[string]func()
	completed []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: map[string][]string{},
		errs:   map[string]error{},
		gates:  map[string]chan struct{}{},
		after:  map[string]func(){},
	}
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if gate := f.gates[url]; gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	if err := f.errs[url]; err != nil {
		f.mu.Unlock()
		return "", err
	}
	seq := f.bodies[url]
	if len(seq) == 0 {
		f.mu.Unlock()
		return "", fmt.Errorf("unexpected url %s", url)
	}
	body := seq[0]
	if len(seq) > 1 {
		f.bodies[url] = seq[1:]
	}
	f.completed = append(f.completed, url)
	f.mu.Unlock()

	if hook := f.after[url]; hook != nil {
		hook()
	}
	return body, nil
}

func (f *stubFetcher) completedOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.completed...)
}

// stubParser maps detail bodies to reviews. "" is a throttled page and
// "broken" a layout mismatch.
type stubParser struct {
	summaries []domain.RawReviewSummary
	details   map[string]domain.ParsedReview
}

func (p *stubParser) ParseListingPage(content string, page int) ([]domain.RawReviewSummary, error) {
	if content != "listing" {
		return nil, &domain.ParseError{Layout: "stub", Reason: "not a listing"}
	}
	return append([]domain.RawReviewSummary(nil), p.summaries...), nil
}

func (p *stubParser) ParseDetailPage(content string) (domain.ParsedReview, error) {
	if content == "" {
		return domain.ParsedReview{}, domain.ErrThrottled
	}
	review, ok := p.details[content]
	if !ok {
		return domain.ParsedReview{}, &domain.ParseError{Layout: "stub", Reason: "unknown body " + content}
	}
	return review, nil
}

// stubCatalog answers by album title from a mutable table.
type stubCatalog struct {
	mu       sync.Mutex
	uris     map[string]string
	err      error
	connects int
}

func (c *stubCatalog) Connect(context.Context) (ports.CatalogMatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	return c, nil
}

func (c *stubCatalog) Match(_ context.Context, _ string, albumTitle string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return c.uris[albumTitle], nil
}

func (c *stubCatalog) set(album, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uris[album] = uri
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

var errStub = errors.New("stub failure")
