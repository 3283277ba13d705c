// Package call is the action surface of an active call. Every mutating
// action is validated against the self member's capabilities before any
// request is built, then executed with retry.
package call

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/1ureka/sigcore/internal/capability"
	"github.com/1ureka/sigcore/internal/protocol"
	"github.com/1ureka/sigcore/internal/retry"
	"github.com/1ureka/sigcore/internal/router"
)

// ErrNoCall is returned when an action runs before any call has joined.
var ErrNoCall = errors.New("no active call")

// Executor sends one request and returns its parsed result.
type Executor interface {
	Execute(ctx context.Context, req *protocol.Request) (map[string]any, error)
}

// Anchor resolves the self member and action targets. *router.Router
// implements it.
type Anchor interface {
	capability.Caller
	Self() (*router.MemberRecord, router.Segment, bool)
	Member(id string) (*router.MemberRecord, bool)
}

// RetryConfig parameterizes the increasing backoff applied to every action.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	Variation    time.Duration
	MaxDelay     time.Duration
}

func (rc RetryConfig) delay() (retry.DelayFunc, error) {
	return retry.IncreasingDelay(retry.DelayConfig{
		InitialDelay: rc.InitialDelay,
		Variation:    rc.Variation,
		Limit:        rc.MaxDelay,
	})
}

// Call issues actions for the session anchored at a router.
type Call struct {
	exec   Executor
	anchor Anchor
	retry  RetryConfig
}

// New returns a Call. It fails when rc cannot build a delay generator.
func New(exec Executor, anchor Anchor, rc RetryConfig) (*Call, error) {
	if _, err := rc.delay(); err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	return &Call{exec: exec, anchor: anchor, retry: rc}, nil
}

// request describes how one action becomes an RPC.
type request struct {
	action capability.Action
	method string
	// target adds params.target built from Params.MemberID.
	target bool
	// extra returns method-specific params.
	extra func(p capability.Params) map[string]any
}

func (c *Call) run(ctx context.Context, r request, p capability.Params) (map[string]any, error) {
	guarded := capability.Guard(r.action, c.anchor, func(ctx context.Context, p capability.Params) (map[string]any, error) {
		params, err := c.params(r, p)
		if err != nil {
			return nil, err
		}
		return c.execute(ctx, r.method, params)
	})
	return guarded(ctx, p)
}

// params builds {self, target?, ...extra}.
func (c *Call) params(r request, p capability.Params) (map[string]any, error) {
	self, seg, ok := c.anchor.Self()
	if !ok {
		return nil, fmt.Errorf("%s: %w", r.method, ErrNoCall)
	}
	selfRef := map[string]any{
		"member_id": self.ID(),
		"call_id":   seg.CallID,
		"node_id":   seg.NodeID,
	}

	out := map[string]any{"self": selfRef}
	if r.target {
		out["target"] = c.targetRef(p.MemberID, selfRef)
	}
	if r.extra != nil {
		maps.Copy(out, r.extra(p))
	}
	return out, nil
}

// targetRef resolves a member id through the registry. Unknown members are
// addressed through the self member's call.
func (c *Call) targetRef(memberID string, selfRef map[string]any) map[string]any {
	if memberID == "" || memberID == selfRef["member_id"] {
		return maps.Clone(selfRef)
	}
	ref := map[string]any{
		"member_id": memberID,
		"call_id":   selfRef["call_id"],
		"node_id":   selfRef["node_id"],
	}
	if rec, ok := c.anchor.Member(memberID); ok {
		view := rec.View()
		if view.CallID != "" {
			ref["call_id"] = view.CallID
		}
		if view.NodeID != "" {
			ref["node_id"] = view.NodeID
		}
	}
	return ref
}

func (c *Call) execute(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	delay, err := c.retry.delay()
	if err != nil {
		return nil, err
	}
	policy := retry.Policy[map[string]any]{
		MaxRetries: c.retry.MaxRetries,
		Delay:      delay,
		Terminal:   func(err error) bool { return !Transient(err) },
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (map[string]any, error) {
		return c.exec.Execute(ctx, protocol.BuildRequest(method, params, ""))
	})
}

// Transient reports whether err is a server-side failure worth retrying:
// a JSON-RPC internal/server error or a 5xx application code.
func Transient(err error) bool {
	var pe *protocol.ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	switch {
	case pe.Code == "-32603", pe.Code == "-32000":
		return true
	case len(pe.Code) == 3 && strings.HasPrefix(pe.Code, "5"):
		return true
	}
	return false
}
