// Package pipeline resolves an incoming email into a reply by trying progressively
// more expensive stages: reply cache, quick patterns, the external generator and
// finally a templated fallback. A reply is always produced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"email-responder/internal/aigateway"
	"email-responder/internal/cache"
	"email-responder/internal/classify"
	"email-responder/internal/fallback"
	"email-responder/internal/metrics"
	"email-responder/internal/pattern"
	"email-responder/internal/store"
	"email-responder/pkg/logging/logging"
)

const defaultPersistTimeout = 2 * time.Second

var errEmptyGeneration = errors.New("pipeline: generator returned an empty reply")

// Options wires the orchestrator's collaborators. Only Cache is required.
type Options struct {
	Cache      cache.Store
	Patterns   *pattern.Matcher
	Classifier *classify.Classifier
	Fallback   *fallback.Generator
	// Generator may be nil, which disables the AI stage.
	Generator aigateway.Generator
	// History may be nil, which disables persistence.
	History HistorySink

	DefaultType    classify.ResponseType
	PersistTimeout time.Duration
	Logger         *zap.Logger
}

// Orchestrator runs the resolution chain. It is safe for concurrent use.
type Orchestrator struct {
	cache          cache.Store
	patterns       *pattern.Matcher
	classifier     *classify.Classifier
	fallback       *fallback.Generator
	generator      aigateway.Generator
	history        HistorySink
	defaultType    classify.ResponseType
	persistTimeout time.Duration
	logger         *zap.Logger

	inflight singleflight.Group
}

// New builds an Orchestrator, filling unset collaborators with their defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Cache == nil {
		return nil, errors.New("pipeline: cache store is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.New(nil)
	}
	if opts.Fallback == nil {
		opts.Fallback = fallback.New(opts.Classifier)
	}
	if opts.DefaultType == "" {
		opts.DefaultType = classify.TypeGeneral
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Orchestrator{
		cache:          opts.Cache,
		patterns:       opts.Patterns,
		classifier:     opts.Classifier,
		fallback:       opts.Fallback,
		generator:      opts.Generator,
		history:        opts.History,
		defaultType:    opts.DefaultType,
		persistTimeout: opts.PersistTimeout,
		logger:         opts.Logger.Named("pipeline"),
	}, nil
}

// AIEnabled reports whether the generator stage will be attempted.
func (o *Orchestrator) AIEnabled() bool {
	if o.generator == nil {
		return false
	}
	if e, ok := o.generator.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

// Resolve never fails: any panic inside the chain is turned into a degraded fallback result.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	logger := logging.FromContextOr(ctx, o.logger)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("reply resolution panicked",
				zap.Any("error", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			res = o.recovered(req)
		}
		if strings.TrimSpace(res.Reply) == "" {
			res.Reply = fallback.GenericReply
		}
		res.Duration = time.Since(start)

		metrics.RepliesTotal.WithLabelValues(string(res.Type), string(res.Source)).Inc()
		metrics.ResolveSeconds.WithLabelValues(string(res.Source)).Observe(res.Duration.Seconds())

		logger.Info("reply_resolved",
			zap.String("source", string(res.Source)),
			zap.String("response_type", string(res.Type)),
			zap.Float64("confidence", res.Confidence),
			zap.Bool("cached", res.Cached),
			zap.Duration("duration", res.Duration),
		)
	}()

	return o.resolve(ctx, logger, req)
}

func (o *Orchestrator) resolve(ctx context.Context, logger *zap.Logger, req Request) Result {
	typeHint := strings.TrimSpace(req.TypeHint)
	hintType := classify.ParseType(typeHint, o.defaultType)
	key := cache.Fingerprint(req.Message, string(hintType))

	if reply, ok := o.cacheGet(ctx, logger, key); ok {
		return Result{
			Reply:       reply,
			Confidence:  ConfidenceCached,
			Type:        hintType,
			Suggestions: []string{suggestionCached},
			Cached:      true,
			Source:      SourceCache,
		}
	}

	if reply, ok := o.patterns.Match(req.Message); ok {
		o.cachePut(ctx, logger, key, reply)
		return Result{
			Reply:       reply,
			Confidence:  ConfidencePattern,
			Type:        classify.TypeInstant,
			Suggestions: []string{suggestionPattern},
			Source:      SourcePattern,
		}
	}

	respType := o.classifier.Classify(req.Message, hintType)

	res := Result{
		Type:        respType,
		Suggestions: []string{suggestionTone, suggestionTimeline},
	}

	if o.AIEnabled() {
		tone := typeHint
		if tone == "" {
			tone = string(respType)
		}
		reply, err := o.generate(ctx, key, aigateway.Request{
			Message:  req.Message,
			TypeHint: tone,
			Sender:   req.Sender,
			Context:  req.Context,
		})
		if err == nil {
			res.Reply = reply
			res.Confidence = ConfidenceAI
			res.Source = SourceAI
			o.cachePut(ctx, logger, key, reply)
		} else {
			logger.Warn("ai generation failed, using fallback", zap.Error(err))
			res.Reply = o.fallback.Generate(req.Message)
			res.Confidence = ConfidenceDegraded
			res.Source = SourceFallback
			res.Suggestions = []string{suggestionAIDown, suggestionTone, suggestionTimeline}
		}
	} else {
		res.Reply = o.fallback.Generate(req.Message)
		res.Confidence = ConfidenceFallback
		res.Source = SourceFallback
	}

	o.persist(ctx, logger, req, res)
	return res
}

// generate collapses concurrent calls for the same fingerprint into one upstream request.
// The shared call is detached from the first caller's cancellation; the gateway timeout bounds it.
func (o *Orchestrator) generate(ctx context.Context, key string, req aigateway.Request) (string, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := o.inflight.Do(key, func() (interface{}, error) {
		return o.generator.Generate(shared, req)
	})
	if err != nil {
		return "", err
	}
	reply, _ := v.(string)
	if strings.TrimSpace(reply) == "" {
		return "", errEmptyGeneration
	}
	return reply, nil
}

func (o *Orchestrator) cacheGet(ctx context.Context, logger *zap.Logger, key string) (string, bool) {
	reply, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("reply cache lookup failed, treating as miss", zap.Error(err))
		return "", false
	}
	return reply, ok && reply != ""
}

// cache writes are best effort
func (o *Orchestrator) cachePut(ctx context.Context, logger *zap.Logger, key, reply string) {
	if err := o.cache.Put(ctx, key, reply); err != nil {
		logger.Warn("reply cache write failed", zap.Error(err))
	}
}

// persist emits the history record. Failures are logged and swallowed.
func (o *Orchestrator) persist(ctx context.Context, logger *zap.Logger, req Request, res Result) {
	if o.history == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.persistTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("history sink panicked: %v", rec)
			}
		}()
		return o.history.Append(pctx, store.HistoryRecord{
			OriginalEmail:     req.Message,
			GeneratedResponse: res.Reply,
			ResponseType:      string(res.Type),
			Source:            string(res.Source),
			Confidence:        res.Confidence,
			CreatedAt:         time.Now(),
		})
	}()
	if err != nil {
		logger.Warn("history write failed (non-critical)", zap.Error(err))
	}
}

func (o *Orchestrator) recovered(req Request) (res Result) {
	res = Result{
		Reply:       fallback.GenericReply,
		Confidence:  ConfidenceDegraded,
		Type:        classify.TypeGeneral,
		Suggestions: []string{suggestionAIDown},
		Source:      SourceRecovered,
	}
	defer func() { _ = recover() }()
	res.Reply = o.fallback.Generate(req.Message)
	return res
}
