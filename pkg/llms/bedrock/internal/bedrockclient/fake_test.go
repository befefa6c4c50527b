package bedrockclient

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeReader struct {
	events chan types.ConverseStreamOutput
	err    error
	closed atomic.Bool
}

func newFakeReader(err error, events ...types.ConverseStreamOutput) *fakeReader {
	ch := make(chan types.ConverseStreamOutput, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &fakeReader{events: ch, err: err}
}

func (r *fakeReader) Events() <-chan types.ConverseStreamOutput { return r.events }
func (r *fakeReader) Close() error                              { r.closed.Store(true); return nil }
func (r *fakeReader) Err() error                                { return r.err }

type fakeRuntime struct {
	out     *bedrockruntime.ConverseOutput
	reader  *fakeReader
	err     error
	lastIn  *bedrockruntime.ConverseInput
	streams atomic.Int32
}

func (f *fakeRuntime) Converse(_ context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeRuntime) ConverseStream(_ context.Context, _ *bedrockruntime.ConverseStreamInput) (EventReader, error) {
	f.streams.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.reader, nil
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
			},
		},
	}
}

func delta(text string) types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberContentBlockDelta{
		Value: types.ContentBlockDeltaEvent{
			Delta: &types.ContentBlockDeltaMemberText{Value: text},
		},
	}
}
