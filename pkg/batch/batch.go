// Package batch fans prompts out to a model with bounded concurrency.
// Every prompt is attempted exactly once and its outcome is isolated
// from the siblings.
package batch

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "batch")

// DefaultConcurrency is the number of calls in flight by default.
const DefaultConcurrency = 5

// Task runs a single prompt.
type Task func(ctx context.Context, prompt string) (llms.Outcome, error)

// Result is index aligned with the input prompts.
type Result []llms.Outcome

// Texts returns the text of each outcome, empty for failures.
func (r Result) Texts() []string {
	texts := make([]string, len(r))
	for i, o := range r {
		texts[i], _ = o.Text()
	}
	return texts
}

// Failed returns the number of failed outcomes.
func (r Result) Failed() int {
	n := 0
	for _, o := range r {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Option configures the batch run.
type Option func(*options)

type options struct {
	concurrency int
	timeout     time.Duration
	name        string
	callOptions []llms.CallOption
}

// WithConcurrency sets the number of calls in flight,
// 1 or less runs the prompts sequentially.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithTimeout sets the timeout of each prompt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithName sets the batch name reported in metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithCallOptions sets the model call options for Complete and Chat.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(o *options) {
		o.callOptions = append(o.callOptions, opts...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		concurrency: DefaultConcurrency,
		name:        "default",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run runs the task for each prompt, and returns once every prompt was attempted.
func Run(ctx context.Context, prompts []string, task Task, opts ...Option) Result {
	if len(prompts) == 0 {
		return Result{}
	}

	o := newOptions(opts)
	id := uuid.NewString()
	started := time.Now()
	total := len(prompts)
	results := make(Result, total)

	logger.ContextKV(ctx, xlog.DEBUG,
		"batch", id,
		"name", o.name,
		"prompts", total,
		"concurrency", o.concurrency)

	if o.concurrency <= 1 || total == 1 {
		for i, p := range prompts {
			results[i] = o.run(ctx, task, p)
			logger.ContextKV(ctx, xlog.DEBUG, "batch", id, "status", fmt.Sprintf("Completed query %d/%d", i+1, total))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i, p := range prompts {
			g.Go(func() error {
				results[i] = o.run(ctx, task, p)
				logger.ContextKV(ctx, xlog.DEBUG, "batch", id, "status", fmt.Sprintf("Completed query %d/%d", i+1, total))
				// siblings are never cancelled
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := results.Failed()
	metricskey.PerfBatchRun.MeasureSince(started, o.name)
	metricskey.StatsBatchItemsSucceeded.IncrCounter(float64(total-failed), o.name)
	metricskey.StatsBatchItemsFailed.IncrCounter(float64(failed), o.name)

	if failed > 0 {
		logger.ContextKV(ctx, xlog.WARNING,
			"batch", id,
			"failed", failed,
			"total", total)
	}
	return results
}

func (o *options) run(ctx context.Context, task Task, prompt string) (out llms.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v", r)
			out = llms.Failure(llms.NewProcessingError(msg, errors.Newf("panic: %s", msg)))
		}
	}()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, err := task(ctx, prompt)
	if err != nil {
		return llms.Failure(llms.Describe(err, "", ""))
	}
	return res
}

// Complete runs model completion for each prompt.
func Complete(ctx context.Context, model llms.Model, prompts []string, opts ...Option) Result {
	o := newOptions(opts)
	callOpts := slices.Concat(o.callOptions, []llms.CallOption{llms.WithReturnError(true)})
	return Run(ctx, prompts, func(ctx context.Context, prompt string) (llms.Outcome, error) {
		return model.Complete(ctx, prompt, callOpts...)
	}, opts...)
}

// Chat runs model chat for each prompt, as a single user message.
func Chat(ctx context.Context, model llms.Model, prompts []string, opts ...Option) Result {
	o := newOptions(opts)
	callOpts := slices.Concat(o.callOptions, []llms.CallOption{llms.WithReturnError(true)})
	return Run(ctx, prompts, func(ctx context.Context, prompt string) (llms.Outcome, error) {
		return model.Chat(ctx, []llms.Message{llms.UserMessage(prompt)}, callOpts...)
	}, opts...)
}
