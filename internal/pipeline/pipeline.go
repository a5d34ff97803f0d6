// Package pipeline wires the request rewriter, upstream client, response
// rewriter, streaming coordinator, and cache into the single per-request
// flow described in spec.md §4.H: build RequestContext → request-rewrite →
// upstream fetch → parse-remote-response → rewrite → emit.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zmirror/zmirror/internal/cache"
	"github.com/zmirror/zmirror/internal/config"
	mirrorerrors "github.com/zmirror/zmirror/internal/errors"
	"github.com/zmirror/zmirror/internal/hooks"
	"github.com/zmirror/zmirror/internal/logging"
	"github.com/zmirror/zmirror/internal/metrics"
	"github.com/zmirror/zmirror/internal/regexlib"
	"github.com/zmirror/zmirror/internal/reqrewrite"
	"github.com/zmirror/zmirror/internal/respwrite"
	"github.com/zmirror/zmirror/internal/stream"
	"github.com/zmirror/zmirror/internal/upstream"
)

// sizer is implemented by cache backends that can report their current
// entry count; the built-in MemoryBackend does, a custom Backend need not.
type sizer interface {
	Len() int
}

// Pipeline is the process-wide, request-agnostic collaborator set; every
// HandleMirrored call owns its own *reqrewrite.Context exclusively
// (spec.md §5).
type Pipeline struct {
	CurrentConfig func() *config.Config
	Client        *upstream.Client
	Cache         cache.Backend
	Hooks         *hooks.Registry
	Metrics       *metrics.Collector
	Logger        *logging.Logger
	Recent        *reqrewrite.RecentDomains
	Detector      respwrite.CharsetDetector

	active int64

	tablesMu sync.RWMutex
	tables   *tables
}

type tables struct {
	forConfig *config.Config
	basic     *regexlib.Basic
}

// New builds a Pipeline. cfgFunc is typically (*config.ConfigWatcher).Current.
func New(cfgFunc func() *config.Config, client *upstream.Client, cacheBackend cache.Backend, registry *hooks.Registry, collector *metrics.Collector, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		CurrentConfig: cfgFunc,
		Client:        client,
		Cache:         cacheBackend,
		Hooks:         registry,
		Metrics:       collector,
		Logger:        logger,
		Recent:        reqrewrite.NewRecentDomains(),
		Detector:      respwrite.DefaultCharsetDetector,
	}
}

// basicTable returns the Basic URL regex built from cfg's allowed_domains,
// rebuilding it only when cfg itself has changed since the last call
// (spec.md §9: the regex table is rebuilt on config reload, never mutated).
func (p *Pipeline) basicTable(cfg *config.Config) *regexlib.Basic {
	p.tablesMu.RLock()
	if p.tables != nil && p.tables.forConfig == cfg {
		b := p.tables.basic
		p.tablesMu.RUnlock()
		return b
	}
	p.tablesMu.RUnlock()

	b := regexlib.BuildBasic(cfg.AllowedDomains())

	p.tablesMu.Lock()
	p.tables = &tables{forConfig: cfg, basic: b}
	p.tablesMu.Unlock()
	return b
}

// HandleMirrored is the ANY /<path…> mirrored-request handler of spec.md §6.
func (p *Pipeline) HandleMirrored(w http.ResponseWriter, r *http.Request) {
	cfg := p.CurrentConfig()
	start := time.Now()

	n := atomic.AddInt64(&p.active, 1)
	p.setActiveGauge(n)
	defer func() {
		p.setActiveGauge(atomic.AddInt64(&p.active, -1))
	}()

	reqCtx := reqrewrite.AssembleParse(cfg, r, p.Recent)
	p.Logger.RequestStart(r.Method, reqCtx.RemoteURL)

	if cfg.LocalCacheEnable && r.Method == http.MethodGet && p.Cache != nil {
		if entry, ok := p.Cache.GetObj(reqCtx.RemoteURL); ok {
			p.Logger.CacheHit(reqCtx.RemoteURL)
			p.recordCache(true)
			p.writeCached(w, entry)
			p.recordRequest(start, http.StatusOK)
			return
		}
		if info, ok := p.Cache.GetInfo(reqCtx.RemoteURL); ok && info.WithoutContent {
			p.Logger.CachePending(reqCtx.RemoteURL)
		} else {
			p.Logger.CacheMiss(reqCtx.RemoteURL)
		}
		p.recordCache(false)
	}

	reqCtx.Time.ReqStart = time.Now()
	resp, err := p.Client.Send(r.Context(), cfg, r.Method, reqCtx.RemoteURL, reqCtx.ClientHeader, r.Body)
	if err != nil {
		p.handleError(w, cfg, reqCtx, err)
		return
	}
	defer resp.Body.Close()

	reqCtx.Time.ReqTimeHeader = resp.HeaderTime
	if p.Metrics != nil {
		p.Metrics.RecordUpstreamFetch(resp.HeaderTime)
	}

	parsed := respwrite.ParseRemoteResponse(
		resp.Header.Get("Content-Type"),
		cfg.StreamTransferEnable,
		resp.Header.Get("Cache-Control"),
		r.Method,
		resp.StatusCode,
	)

	if parsed.StreamOurResponse {
		p.streamResponse(r.Context(), w, cfg, reqCtx, resp, parsed)
	} else {
		p.bufferedResponse(w, cfg, reqCtx, resp, parsed)
	}

	p.recordRequest(start, resp.StatusCode)
}

func (p *Pipeline) writeCached(w http.ResponseWriter, entry cache.Entry) {
	for name, values := range entry.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Body)
}

func (p *Pipeline) bufferedResponse(w http.ResponseWriter, cfg *config.Config, reqCtx *reqrewrite.Context, resp *upstream.Response, parsed respwrite.Parsed) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.handleError(w, cfg, reqCtx, mirrorerrors.NewUpstreamFailure(reqCtx.RemoteURL, err))
		return
	}

	opts := respwrite.RewriteOptions{
		Advanced:     regexlib.Advanced,
		Basic:        p.basicTable(cfg),
		Registry:     p.Hooks,
		Detector:     p.Detector,
		RemoteDomain: reqCtx.RemoteDomain,
		RemotePath:   reqCtx.RemotePath,
		URLNoScheme:  reqCtx.URLNoScheme,
	}
	rewritten := respwrite.ResponseContentRewrite(cfg, parsed.MIME, body, opts)

	reqCtx.Time.ReqTimeBody = time.Since(reqCtx.Time.ReqStart) - reqCtx.Time.ReqTimeHeader

	headers := respwrite.RewriteRespHeaders(cfg, resp.Header, respwrite.HeaderRewriteOptions{
		Registry:      p.Hooks,
		OriginDomain:  reqCtx.RemoteDomain,
		HeaderReqTime: formatDuration(reqCtx.Time.ReqTimeHeader),
		BodyReqTime:   formatDuration(reqCtx.Time.ReqTimeBody),
		ComputeTime:   formatDuration(time.Since(reqCtx.Time.Start)),
	})
	copyHeader(w.Header(), headers)
	w.Header().Set("Content-Length", strconv.Itoa(len(rewritten)))
	w.WriteHeader(resp.StatusCode)
	w.Write(rewritten)

	if cfg.LocalCacheEnable && parsed.Cacheable && p.Cache != nil {
		p.Cache.PutObj(reqCtx.RemoteURL, cache.Entry{
			Headers:      headers,
			Body:         rewritten,
			LastModified: time.Now(),
			Expires:      time.Now().Add(cache.TTLForMIME(parsed.MIME)),
		})
		p.setCacheSizeGauge()
	}
}

// streamResponse handles the producer/consumer path for binary/media
// content: headers are emitted before any body chunk. When cacheable, a
// headers-only WithoutContent entry is written before streaming starts, and
// the full-body cache write happens only after the last chunk reaches the
// client (spec.md §5 ordering).
func (p *Pipeline) streamResponse(ctx context.Context, w http.ResponseWriter, cfg *config.Config, reqCtx *reqrewrite.Context, resp *upstream.Response, parsed respwrite.Parsed) {
	headers := respwrite.RewriteRespHeaders(cfg, resp.Header, respwrite.HeaderRewriteOptions{
		Registry:      p.Hooks,
		OriginDomain:  reqCtx.RemoteDomain,
		HeaderReqTime: formatDuration(reqCtx.Time.ReqTimeHeader),
		ComputeTime:   formatDuration(time.Since(reqCtx.Time.Start)),
	})
	copyHeader(w.Header(), headers)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)

	shouldCache := cfg.LocalCacheEnable && parsed.Cacheable && p.Cache != nil
	var cacheWriter *stream.CacheWriter
	expires := time.Now().Add(cache.TTLForMIME(parsed.MIME))
	if shouldCache {
		cacheWriter = stream.NewCacheWriter()
		p.Cache.PutObj(reqCtx.RemoteURL, cache.Entry{
			Headers:        headers,
			LastModified:   time.Now(),
			Expires:        expires,
			WithoutContent: true,
		})
	}

	coord := stream.NewCoordinator(cfg.StreamAsyncPreloadMax)
	var produceErr error
	go func() {
		produceErr = coord.Produce(ctx, resp.Body, cfg.StreamBufferSize)
	}()

	consumeErr := coord.Consume(ctx, func(chunk []byte) error {
		if cacheWriter != nil {
			cacheWriter.Append(chunk)
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	if consumeErr != nil {
		if me, ok := consumeErr.(*mirrorerrors.MirrorError); ok && me.Kind == mirrorerrors.StreamTimeout {
			p.Logger.StreamTimeout("consumer", reqCtx.RemoteURL)
			if p.Metrics != nil {
				p.Metrics.RecordStreamConsumerTimeout()
			}
		}
		return
	}
	if me, ok := produceErr.(*mirrorerrors.MirrorError); ok && me.Kind == mirrorerrors.StreamTimeout {
		p.Logger.StreamTimeout("producer", reqCtx.RemoteURL)
		if p.Metrics != nil {
			p.Metrics.RecordStreamProducerTimeout()
		}
	}

	if shouldCache {
		if cacheWriter.Abandoned() {
			p.Logger.StreamAbandoned(reqCtx.RemoteURL, stream.CacheAbandonThreshold)
			if p.Metrics != nil {
				p.Metrics.RecordStreamCacheAbandoned()
			}
		} else {
			p.Cache.PutObj(reqCtx.RemoteURL, cache.Entry{
				Headers:      headers,
				Body:         cacheWriter.Body(),
				LastModified: time.Now(),
				Expires:      expires,
			})
			p.setCacheSizeGauge()
		}
	}
}

func (p *Pipeline) handleError(w http.ResponseWriter, cfg *config.Config, reqCtx *reqrewrite.Context, err error) {
	if p.Logger != nil {
		p.Logger.RewriteFailed(reqCtx.RemoteURL, err)
	}
	if p.Metrics != nil {
		p.Metrics.RecordUpstreamError(reqCtx.RemoteDomain)
	}
	status := http.StatusBadGateway
	if me, ok := err.(*mirrorerrors.MirrorError); ok && me.Kind == mirrorerrors.SSRFBlocked {
		status = http.StatusForbidden
		if p.Metrics != nil {
			p.Metrics.RecordSSRFBlocked()
		}
	}
	writeErrorPage(w, cfg, status, err)
}

func (p *Pipeline) recordRequest(start time.Time, status int) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.RecordRequest(statusClass(status), time.Since(start))
}

func (p *Pipeline) recordCache(hit bool) {
	if p.Metrics == nil {
		return
	}
	if hit {
		p.Metrics.RecordCacheHit()
	} else {
		p.Metrics.RecordCacheMiss()
	}
}

func (p *Pipeline) setActiveGauge(n int64) {
	if p.Metrics != nil {
		p.Metrics.SetActiveRequests(int(n))
	}
}

func (p *Pipeline) setCacheSizeGauge() {
	if p.Metrics == nil {
		return
	}
	if s, ok := p.Cache.(sizer); ok {
		p.Metrics.SetCacheSize(s.Len())
	}
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func formatDuration(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
