package pagegate

import "context"

// ToolFunc is the browser operation that Wrap guards.
type ToolFunc func(ctx context.Context, action Action) (any, error)

// Wrap returns a ToolFunc that mediates the action before calling fn.
// Unless the decision is SUCCESS, fn is not called and a *BlockedError is
// returned; PENDING errors carry the handle to resolve.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	var wcfg wrapConfig
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, action Action) (any, error) {
		result, err := c.Evaluate(ctx, action)
		if err != nil {
			return nil, err
		}

		if result.Status == Pending && wcfg.waitForApproval {
			result, err = c.await(ctx, result.Handle)
			if err != nil {
				return nil, err
			}
		}

		if !result.Allowed() {
			return nil, blocked(action, result)
		}
		return fn(ctx, action)
	}
}
