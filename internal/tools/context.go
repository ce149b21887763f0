package tools

import "context"

// CallInfo identifies a dispatch within an orchestration run. It only
// enriches spans and audit records.
type CallInfo struct {
	CallID  string
	Session int64
	Round   int
}

type callInfoKey struct{}

// WithCallInfo attaches call metadata to ctx for the next Dispatch.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

func callInfoFromContext(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	return info
}
