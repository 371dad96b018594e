package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ppiankov/menusweep/internal/cache"
	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/store"
	"github.com/ppiankov/menusweep/internal/sweep"
	"github.com/ppiankov/menusweep/internal/sweep/sweeptest"
	"github.com/ppiankov/menusweep/internal/util"
	"github.com/ppiankov/menusweep/internal/validate"
)

const storePage = `<html><body>
<h1 data-testid="store-name">Burger Barn</h1>
<h2 role="heading">Burgers</h2>
<div role="button" aria-label="Big Mac $5.49"><img src="%MEDIA%"></div>
<div role="button" aria-label="Quarter Pounder $6.29"></div>
<h2 role="heading">Sides</h2>
<div role="button" aria-label="Fries $2.19"></div>
<span>4.6</span>
</body></html>`

type fakeSession struct {
	vp     *sweeptest.Viewport
	closed *int
}

func (s *fakeSession) Viewport() sweep.Viewport { return s.vp }

func (s *fakeSession) Close() error {
	*s.closed++
	return nil
}

type fakeOpener struct {
	page   string
	fail   error
	opens  int
	closed int
}

func (o *fakeOpener) Open(ctx context.Context, pageURL string) (Session, error) {
	o.opens++
	if o.fail != nil {
		return nil, o.fail
	}
	vp := sweeptest.New(800, 800)
	vp.Snapshots = []*dom.Snapshot{sweeptest.MustSnapshot(o.page)}
	return &fakeSession{vp: vp, closed: &o.closed}, nil
}

func (o *fakeOpener) Close() error { return nil }

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Sweep.SettleInterval = time.Millisecond
	cfg.Sweep.PanelSettle = time.Millisecond
	cfg.Sweep.ConfirmInterval = time.Millisecond
	cfg.Sweep.ReturnSettle = time.Millisecond
	cfg.Browser.RespectRobots = false
	cfg.Cache.Enabled = false
	return cfg
}

func newTestPipeline(t *testing.T, opener Opener) *Pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	p := NewPipeline(testConfig(), logger).WithOpener(opener)
	p.renderer.out = &strings.Builder{}
	return p
}

func page(media string) string {
	return strings.Replace(storePage, "%MEDIA%", media, 1)
}

func TestScanURL_FullReport(t *testing.T) {
	opener := &fakeOpener{page: page("https://cdn.test/bigmac.png")}
	p := newTestPipeline(t, opener)

	report, err := p.ScanURL(context.Background(), " https://www.ubereats.com/store/burger-barn/abc ")
	if err != nil {
		t.Fatalf("ScanURL failed: %v", err)
	}

	if report.Subject != "Burger Barn" {
		t.Errorf("Expected subject Burger Barn, got %q", report.Subject)
	}
	if report.SourceURL != "https://www.ubereats.com/store/burger-barn/abc" {
		t.Errorf("Expected trimmed source URL, got %q", report.SourceURL)
	}
	if report.ScanID == "" {
		t.Error("Expected a scan ID")
	}
	if got := report.Result.Categories.Categories(); strings.Join(got, ",") != "Burgers,Sides" {
		t.Errorf("Unexpected categories %v", got)
	}
	if report.Result.ItemCount() != 3 {
		t.Errorf("Expected 3 items, got %d", report.Result.ItemCount())
	}
	if report.Diagnostics.Confidence == "" {
		t.Error("Expected diagnostics to be computed")
	}
	if report.MediaChecks != nil {
		t.Error("Expected no media checks when disabled")
	}
	if opener.closed != 1 {
		t.Errorf("Expected page to be closed once, got %d", opener.closed)
	}
}

func TestScanURL_SubjectFallsBackToURL(t *testing.T) {
	opener := &fakeOpener{page: `<html><body><div role="button" aria-label="Fries $2.19"></div></body></html>`}
	p := newTestPipeline(t, opener)

	report, err := p.ScanURL(context.Background(), "https://www.ubereats.com/store/burger-barn/abc")
	if err != nil {
		t.Fatal(err)
	}
	if report.Subject != "burger-barn" {
		t.Errorf("Expected URL slug subject, got %q", report.Subject)
	}
}

func TestScanURL_CacheHit(t *testing.T) {
	opener := &fakeOpener{page: page("")}
	p := newTestPipeline(t, opener).WithCache(cache.NewReportCache(cache.NewLayeredCache(time.Minute, "", time.Minute), time.Minute))

	first, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if err != nil {
		t.Fatal(err)
	}

	if opener.opens != 1 {
		t.Errorf("Expected one browser visit, got %d", opener.opens)
	}
	if !second.Cached || first.Cached {
		t.Errorf("Expected only the second report to be cached: %v %v", first.Cached, second.Cached)
	}
	if second.ScanID != first.ScanID || second.Result.ItemCount() != first.Result.ItemCount() {
		t.Error("Expected cached report to match the original")
	}
}

func TestScanURL_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /store\n"))
	}))
	defer server.Close()

	opener := &fakeOpener{page: page("")}
	p := newTestPipeline(t, opener).WithRobots(util.NewRobotsChecker("menusweep", time.Second, nil))

	_, err := p.ScanURL(context.Background(), server.URL+"/store/a")
	if !errors.Is(err, util.ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if opener.opens != 0 {
		t.Error("Expected no navigation to a disallowed page")
	}
}

func TestScanURL_RecordsHistory(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	p := newTestPipeline(t, &fakeOpener{page: page("")}).WithStore(s)
	report, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if err != nil {
		t.Fatal(err)
	}

	recent, err := s.Recent(context.Background(), "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != report.ScanID {
		t.Fatalf("Expected scan %s in history, got %+v", report.ScanID, recent)
	}
	if recent[0].ItemCount != 3 {
		t.Errorf("Expected 3 items recorded, got %d", recent[0].ItemCount)
	}
}

func TestScanURL_MediaChecks(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	defer media.Close()

	p := newTestPipeline(t, &fakeOpener{page: page(media.URL + "/bigmac.png")}).
		WithMediaChecker(validate.NewMediaChecker(time.Second, 2, "", "", "", ""))

	report, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.MediaChecks) != 1 {
		t.Fatalf("Expected 1 media check, got %d", len(report.MediaChecks))
	}
	if !report.MediaChecks[0].IsAccessible || report.MediaChecks[0].ContentType != "image/png" {
		t.Errorf("Unexpected media check %+v", report.MediaChecks[0])
	}
}

func TestScanURL_OpenFailure(t *testing.T) {
	boom := errors.New("chrome not found")
	p := newTestPipeline(t, &fakeOpener{fail: boom})

	_, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "open page") {
		t.Errorf("Expected wrapped open error, got %v", err)
	}
}

func TestScanURL_DiscoveryFailure(t *testing.T) {
	opener := &failingOpener{err: sweeptest.ErrSessionLost}
	p := newTestPipeline(t, opener)

	_, err := p.ScanURL(context.Background(), "https://x.test/store/a")
	if !errors.Is(err, sweeptest.ErrSessionLost) || !strings.Contains(err.Error(), "discover") {
		t.Errorf("Expected wrapped discovery error, got %v", err)
	}
	if !opener.closed {
		t.Error("Expected page to be closed after a failed discovery")
	}
}

type failingOpener struct {
	err    error
	closed bool
}

func (o *failingOpener) Open(ctx context.Context, pageURL string) (Session, error) {
	vp := sweeptest.New(800, 800)
	vp.Fail = o.err
	n := 0
	return &closeHook{fakeSession: fakeSession{vp: vp, closed: &n}, onClose: func() { o.closed = true }}, nil
}

func (o *failingOpener) Close() error { return nil }

type closeHook struct {
	fakeSession
	onClose func()
}

func (c *closeHook) Close() error {
	c.onClose()
	return nil
}
