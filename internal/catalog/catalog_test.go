package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lpp-backend/internal/cache"
	"lpp-backend/internal/codec"
	"lpp-backend/internal/config"
	"lpp-backend/internal/domain"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/ledger/memledger"
	"lpp-backend/internal/observability"
	appErrors "lpp-backend/pkg/errors"
)

const (
	gateway  = "https://gateway.pinata.cloud/ipfs/"
	audioCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

var programID = ledger.MustPublicKey(config.DefaultProgramID)

func programLogs(t *testing.T, m domain.Metadata) []string {
	t.Helper()
	payload, err := codec.New(gateway).Encode(m)
	require.NoError(t, err)
	return []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program 11111111111111111111111111111111 success",
		fmt.Sprintf("Program %s invoke [1]", programID),
		codec.LogPrefix + " " + string(payload),
		fmt.Sprintf("Program %s consumed 2711 of 200000 compute units", programID),
		fmt.Sprintf("Program %s success", programID),
	}
}

func seed(t *testing.T, l *memledger.Ledger, names ...string) []ledger.Signature {
	t.Helper()
	var sigs []ledger.Signature
	for _, name := range names {
		sigs = append(sigs, l.AppendTransaction(programLogs(t, domain.Metadata{
			IsInitialized: true,
			Name:          name,
			Title:         name + " title",
			Description:   name + " description",
			Category:      domain.CategorySafe,
		})))
	}
	return sigs
}

func newBuilder(l ledger.Reader, pageLimit int, metrics *observability.Collector) *Builder {
	return NewBuilder(l, codec.New(gateway), programID, pageLimit, zap.NewNop(), metrics)
}

func names(records []domain.ArtifactRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestBuildTwoRecordScenario(t *testing.T) {
	l := memledger.New(programID)
	first := l.AppendTransaction(programLogs(t, domain.Metadata{
		IsInitialized: true,
		Name:          "Asha",
		Title:         "Ainu",
		Description:   "Folk song",
		AudioFile:     domain.StringPtr(audioCID),
		PublishDate:   "01/02/2024",
		Category:      domain.CategoryEndangered,
	}))
	second := l.AppendTransaction(programLogs(t, domain.Metadata{
		IsInitialized: true,
		Name:          "Bora",
		Title:         "Cornish",
		Description:   "Primer",
		Category:      "Unknown",
	}))

	cat := newBuilder(l, 1000, nil).Build(context.Background())

	require.Len(t, cat.Records, 2)
	// Newest first.
	assert.Equal(t, "Bora", cat.Records[0].Name)
	assert.Equal(t, second.String(), cat.Records[0].Signature)
	assert.Equal(t, domain.Uncategorized, cat.Records[0].DisplayCategory())
	assert.False(t, cat.Records[0].HasContent())

	asha := cat.Records[1]
	assert.Equal(t, first.String(), asha.Signature)
	assert.Equal(t, "Ainu", asha.Title)
	assert.Equal(t, domain.CategoryEndangered, asha.Category)
	assert.Equal(t, "01/02/2024", asha.PublishDate)
	assert.Equal(t, gateway+audioCID, asha.AudioURL)
	assert.Empty(t, asha.VideoURL)

	assert.Equal(t, 2, cat.Report.ListCalls)
	assert.Equal(t, 2, cat.Report.Decoded)
	assert.False(t, cat.Report.Truncated)
	assert.False(t, cat.BuiltAt.IsZero())
}

func TestBuildPagination(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c", "d", "e", "f")

	metrics := observability.NewCollector("test")
	cat := newBuilder(l, 2, metrics).Build(context.Background())

	// Three full pages and the empty page that ends the walk.
	assert.Equal(t, 4, l.Calls().List)
	assert.Equal(t, 4, cat.Report.ListCalls)
	assert.Equal(t, 6, l.Calls().Get)
	assert.Equal(t, []string{"f", "e", "d", "c", "b", "a"}, names(cat.Records))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogBuilds.WithLabelValues("complete")))
	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.CatalogRecords))
}

func TestBuildPartialPage(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c")

	cat := newBuilder(l, 2, nil).Build(context.Background())
	assert.Equal(t, 3, l.Calls().List)
	assert.Len(t, cat.Records, 3)
}

func TestBuildIsolatesFailures(t *testing.T) {
	l := memledger.New(programID)
	sigs := seed(t, l, "a", "b", "c", "d", "e")

	t.Run("transport failure on one transaction", func(t *testing.T) {
		l.FailTransaction(sigs[2], appErrors.NewTransport("timeout", nil))
		defer l.FailTransaction(sigs[2], nil)

		metrics := observability.NewCollector("test")
		cat := newBuilder(l, 1000, metrics).Build(context.Background())
		assert.Equal(t, []string{"e", "d", "b", "a"}, names(cat.Records))
		assert.Equal(t, 1, cat.Report.Skipped[ReasonTransport])
		assert.Equal(t, 5, cat.Report.Signatures)
		assert.False(t, cat.Report.Truncated)

		skipped := cat.Report.SkippedItems()
		require.Len(t, skipped, 1)
		assert.Equal(t, sigs[2], skipped[0].Signature)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogSkipped.WithLabelValues("transport")))
	})
}

func TestBuildSkipsMalformedAndMissing(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a")
	short := l.AppendTransaction([]string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program 11111111111111111111111111111111 success",
		fmt.Sprintf("Program %s invoke [1]", programID),
	})
	garbage := l.AppendTransaction([]string{"x", "y", "z", codec.LogPrefix + " {not json"})
	pruned := seed(t, l, "b")[0]
	l.Forget(pruned)
	seed(t, l, "c")

	cat := newBuilder(l, 1000, nil).Build(context.Background())

	assert.Equal(t, []string{"c", "a"}, names(cat.Records))
	assert.Equal(t, 2, cat.Report.Skipped[ReasonMalformed])
	assert.Equal(t, 1, cat.Report.Skipped[ReasonNotFound])

	reasons := map[ledger.Signature]Reason{}
	for _, item := range cat.Report.Items {
		reasons[item.Signature] = item.Reason
	}
	assert.Equal(t, ReasonMalformed, reasons[short])
	assert.Equal(t, ReasonMalformed, reasons[garbage])
	assert.Equal(t, ReasonNotFound, reasons[pruned])
}

func TestBuildEmptyHistory(t *testing.T) {
	l := memledger.New(programID)
	cat := newBuilder(l, 1000, nil).Build(context.Background())

	assert.NotNil(t, cat.Records)
	assert.Empty(t, cat.Records)
	assert.Equal(t, 1, cat.Report.ListCalls)
	assert.Equal(t, 0, l.Calls().Get)
	assert.False(t, cat.Report.Truncated)
}

func TestBuildGatewayDown(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b")
	l.FailListing(0, appErrors.NewTransport("connection refused", nil))

	cat := newBuilder(l, 1000, nil).Build(context.Background())
	assert.Empty(t, cat.Records)
	assert.True(t, cat.Report.Truncated)
	assert.Contains(t, cat.Report.EnumerationError, "connection refused")
}

func TestBuildKeepsPagesBeforeListingFailure(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c", "d")
	l.FailListing(1, appErrors.NewTransport("rate limited", nil))

	cat := newBuilder(l, 2, nil).Build(context.Background())
	assert.Equal(t, []string{"d", "c"}, names(cat.Records))
	assert.True(t, cat.Report.Truncated)
	assert.Equal(t, 2, cat.Report.ListCalls)
}

func TestBuildIgnoresCancellation(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := newBuilder(l, 1000, nil).Build(ctx)

	assert.Equal(t, []string{"b", "a"}, names(cat.Records))
	assert.False(t, cat.Report.Truncated)
	assert.Empty(t, cat.Report.EnumerationError)
}

func TestBuildIdempotent(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c")
	b := newBuilder(l, 2, nil)

	first := b.Build(context.Background())
	second := b.Build(context.Background())
	assert.Equal(t, first.Records, second.Records)
}

func newService(l ledger.Reader) *Service {
	c := cache.NewSession[*Catalog]("catalog", zap.NewNop(), nil)
	return NewService(newBuilder(l, 1000, nil), c, zap.NewNop())
}

// gatedReader holds every GetTransaction until release is closed. entered is
// closed when the first one arrives.
type gatedReader struct {
	ledger.Reader
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedReader(r ledger.Reader) *gatedReader {
	return &gatedReader{Reader: r, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedReader) GetTransaction(ctx context.Context, sig ledger.Signature) (*ledger.TransactionDetail, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Reader.GetTransaction(ctx, sig)
}

// waitingContext closes waiting the first time a caller selects on Done,
// which the service does only after joining the in-flight build.
type waitingContext struct {
	context.Context
	waiting chan struct{}
	once    sync.Once
}

func newWaitingContext() *waitingContext {
	return &waitingContext{Context: context.Background(), waiting: make(chan struct{})}
}

func (c *waitingContext) Done() <-chan struct{} {
	c.once.Do(func() { close(c.waiting) })
	return c.Context.Done()
}

type loadResult struct {
	cat *Catalog
	err error
}

func loadAsync(ctx context.Context, svc *Service) <-chan loadResult {
	out := make(chan loadResult, 1)
	go func() {
		cat, err := svc.Load(ctx)
		out <- loadResult{cat: cat, err: err}
	}()
	return out
}

func TestServicePrefetch(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b")
	svc := newService(l)

	first, err := svc.Prefetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	calls := l.Calls()

	second, err := svc.Prefetch(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, l.Calls(), "cached prefetch makes no gateway calls")
}

func TestServiceLoadRebuilds(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a")
	svc := newService(l)

	first, err := svc.Load(context.Background())
	require.NoError(t, err)
	seed(t, l, "b")
	l.ResetCalls()

	second, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"b", "a"}, names(second.Records))
	assert.Equal(t, 2, l.Calls().List)

	cached, ok := svc.Cached()
	require.True(t, ok)
	assert.Same(t, second, cached)

	// Writes never invalidate: prefetch keeps serving the last build.
	seed(t, l, "c")
	third, err := svc.Prefetch(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, third)
}

func TestServiceConcurrentLoadsShareOneWalk(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c")
	gate := newGatedReader(l)
	svc := newService(gate)

	first := loadAsync(context.Background(), svc)
	<-gate.entered

	joined := newWaitingContext()
	second := loadAsync(joined, svc)
	<-joined.waiting
	close(gate.release)

	a, b := <-first, <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Same(t, a.cat, b.cat)
	assert.Equal(t, []string{"c", "b", "a"}, names(a.cat.Records))

	// One page and the empty page that ends the walk.
	assert.Equal(t, 2, l.Calls().List)
	assert.Equal(t, 3, l.Calls().Get)
}

func TestServiceJoinedCallerOutlivesCancelledLeader(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b", "c")
	gate := newGatedReader(l)
	svc := newService(gate)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := loadAsync(leaderCtx, svc)
	<-gate.entered

	joined := newWaitingContext()
	follower := loadAsync(joined, svc)
	<-joined.waiting

	cancel()
	gave := <-leader
	assert.ErrorIs(t, gave.err, context.Canceled)
	assert.Nil(t, gave.cat)

	close(gate.release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, []string{"c", "b", "a"}, names(got.cat.Records))
	assert.False(t, got.cat.Report.Truncated)
	assert.Equal(t, 3, got.cat.Report.Decoded)

	cached, ok := svc.Cached()
	require.True(t, ok)
	assert.Same(t, got.cat, cached)
	assert.Equal(t, 2, l.Calls().List)
}

func TestServiceFinishesAbandonedBuild(t *testing.T) {
	l := memledger.New(programID)
	seed(t, l, "a", "b")
	gate := newGatedReader(l)
	svc := newService(gate)

	ctx, cancel := context.WithCancel(context.Background())
	abandoned := loadAsync(ctx, svc)
	<-gate.entered
	cancel()
	assert.ErrorIs(t, (<-abandoned).err, context.Canceled)

	close(gate.release)
	require.Eventually(t, func() bool {
		_, ok := svc.Cached()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	calls := l.Calls()
	cat, err := svc.Prefetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names(cat.Records))
	assert.Equal(t, calls, l.Calls(), "prefetch serves the finished build")
}

func TestServiceCachesPartialBuild(t *testing.T) {
	l := memledger.New(programID)
	l.FailListing(0, appErrors.NewTransport("down", nil))
	svc := newService(l)

	cat, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cat.Records)
	assert.True(t, cat.Report.Truncated)

	cached, ok := svc.Cached()
	require.True(t, ok)
	assert.Same(t, cat, cached)
}

func TestServiceQuery(t *testing.T) {
	l := memledger.New(programID)
	for _, m := range []domain.Metadata{
		{Name: "Asha", Title: "Ainu", Description: "Folk song", Category: domain.CategoryEndangered},
		{Name: "Bora", Title: "Cornish", Description: "Primer", Category: domain.CategoryVulnerable},
		{Name: "Chen", Title: "Manchu", Description: "Ainu loanwords", Category: domain.CategoryEndangered},
	} {
		l.AppendTransaction(programLogs(t, m))
	}
	svc := newService(l)

	records, cat, err := svc.Query(context.Background(), QueryOptions{
		Query:    domain.Query{Category: "Endangered", Search: "ainu"},
		Prefetch: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chen", "Asha"}, names(records))
	assert.Len(t, cat.Records, 3)

	l.ResetCalls()
	records, _, err = svc.Query(context.Background(), QueryOptions{Query: domain.Query{Category: domain.AllCategories}, Prefetch: true})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, memledger.Calls{}, l.Calls())
}
