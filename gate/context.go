package gate

import "context"

type ctxKeyConfirmation struct{}

// WithConfirmation attaches a prior human decision to ctx. The refund tool
// reads it on the resume path so the replayed tool call can finalize.
func WithConfirmation(ctx context.Context, c Confirmation) context.Context {
	return context.WithValue(ctx, ctxKeyConfirmation{}, c)
}

func ConfirmationFromContext(ctx context.Context) (Confirmation, bool) {
	if ctx == nil {
		return Confirmation{}, false
	}
	v := ctx.Value(ctxKeyConfirmation{})
	c, ok := v.(Confirmation)
	return c, ok
}
