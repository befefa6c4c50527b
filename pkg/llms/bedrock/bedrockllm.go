package bedrock

import (
	"context"
	"iter"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/bedrock/internal/bedrockclient"
	"github.com/effective-security/llmfacade/pkg/llms/internal/callstats"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "bedrock")

// LLM is a Bedrock LLM implementation over the Converse API.
type LLM struct {
	modelID string
	client  *bedrockclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	rt, endpoint, err := newRuntime(o)
	if err != nil {
		return nil, err
	}
	return newLLM(rt, endpoint, o.modelID), nil
}

func newLLM(rt bedrockclient.Runtime, endpoint, modelID string) *LLM {
	return &LLM{
		client:  bedrockclient.NewClient(rt, endpoint),
		modelID: values.StringsCoalesce(modelID, DefaultModel),
	}
}

func newRuntime(o *options) (bedrockclient.Runtime, string, error) {
	if o.client != nil {
		region := o.client.Options().Region
		endpoint := values.StringsCoalesce(aws.ToString(o.client.Options().BaseEndpoint), bedrockclient.DefaultEndpoint(region))
		return bedrockclient.NewRuntime(o.client), endpoint, nil
	}

	if o.region == "" {
		return nil, "", llms.ConfigError("bedrock: region is required")
	}
	if o.accessKey == "" || o.secretKey == "" {
		return nil, "", llms.ConfigError("bedrock: access key and secret key are required")
	}

	client := bedrockruntime.New(bedrockruntime.Options{
		Region: o.region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, o.sessionToken),
		),
		Retryer: aws.NopRetryer{},
	}, func(bo *bedrockruntime.Options) {
		if o.endpoint != "" {
			bo.BaseEndpoint = aws.String(o.endpoint)
		}
		if o.httpClient != nil {
			bo.HTTPClient = o.httpClient
		}
	})

	endpoint := values.StringsCoalesce(o.endpoint, bedrockclient.DefaultEndpoint(o.region))
	return bedrockclient.NewRuntime(client), endpoint, nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// Complete implements the Model interface,
// the prompt is sent as a single user message.
func (l *LLM) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(l.modelID, options...)
	return l.chat(ctx, callstats.OpComplete, []llms.Message{llms.UserMessage(prompt)}, opts)
}

// Chat implements the Model interface.
func (l *LLM) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(l.modelID, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeRawBytes)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return l.chat(ctx, callstats.OpChat, msgs, opts)
}

// Vision implements the Model interface, images are sent as raw bytes.
func (l *LLM) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(l.modelID, options...)
	msgs, err := llmutils.VisionMessages(prompt, slices.Concat(imagePaths, opts.ImagePaths), llmutils.ShapeRawBytes)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return l.chat(ctx, callstats.OpChat, msgs, opts)
}

func (l *LLM) chat(ctx context.Context, op string, msgs []llms.Message, opts *llms.CallOptions) (llms.Outcome, error) {
	if err := llms.ValidateMessages(msgs); err != nil {
		return llms.Outcome{}, err
	}

	in, err := bedrockclient.BuildInput(opts.Model, msgs, opts)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}

	ctx, cancel := opts.WithTimeout(ctx)
	defer cancel()

	stats := callstats.Start(llms.ProviderBedrock, opts.Model, op, msgs)
	text, err := l.client.Converse(ctx, in)
	stats.Done(text, err)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"model", opts.Model,
			"operation", op,
			"err", err.Error())
	}
	return llms.Resolve(text, err, opts.ReturnError)
}

// ChatStream implements the Model interface.
func (l *LLM) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	opts := llms.NewCallOptions(l.modelID, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeRawBytes)
	if err == nil {
		err = llms.ValidateMessages(msgs)
	}
	if err != nil {
		return llms.ErrorStream(err)
	}

	in, err := bedrockclient.BuildInput(opts.Model, msgs, opts)
	if err != nil {
		return llms.ErrorStream(err)
	}

	return llms.SingleUse(func(yield func(string, error) bool) {
		ctx, cancel := opts.WithTimeout(ctx)
		defer cancel()

		stats := callstats.Start(llms.ProviderBedrock, opts.Model, callstats.OpChatStream, msgs)
		var failed error
		for chunk, err := range l.client.ConverseStream(ctx, in) {
			if err != nil {
				failed = err
				logger.ContextKV(ctx, xlog.ERROR,
					"model", opts.Model,
					"operation", callstats.OpChatStream,
					"err", err.Error())
				yield("", err)
				break
			}
			stats.Chunk(chunk)
			if !yield(chunk, nil) {
				break
			}
		}
		stats.Done("", failed)
	})
}
