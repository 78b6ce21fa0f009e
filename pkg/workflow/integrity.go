package workflow

import (
	"context"
	"errors"
	"fmt"

	"digital.vasic.salamoonder/pkg/env"
	"digital.vasic.salamoonder/pkg/httpclient"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/task"
)

// IntegrityOptions parameterize GenerateIntegrity. Zero values
// select defaults.
type IntegrityOptions struct {
	// Target is the challenge to solve; TargetTwitch when empty.
	Target task.Target
	// CustomTarget is the script URL when Target is TargetCustom.
	CustomTarget string
	// OAuth is the account token sent as "OAuth <token>".
	OAuth string
	// ClientID defaults to the orchestrator client id.
	ClientID string
	// DeviceID is generated when empty.
	DeviceID string
	// Proxy routes the integrity call, as user:pass@host:port.
	Proxy string
	// MaxRetries is the poll budget, built with Retries. Nil means
	// the orchestrator default.
	MaxRetries *int
}

// IntegrityCredential is the result of an integrity workflow.
type IntegrityCredential struct {
	ClientID  string `json:"client_id"`
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id,omitempty"`
	UserAgent string `json:"user_agent"`
	Token     string `json:"token"`
	OAuth     string `json:"oauth,omitempty"`
	Proxy     string `json:"proxy,omitempty"`
}

type integrityResponse struct {
	Token string `json:"token"`
}

// integrityRun carries one GenerateIntegrity invocation through
// its states.
type integrityRun struct {
	o     *Orchestrator
	state State
	cause error

	target     string
	oauth      string
	proxy      string
	maxRetries int

	clientID  string
	deviceID  string
	sessionID string
	requestID string

	solution task.KasadaSolution
	token    string
}

// GenerateIntegrity solves the integrity challenge, then presents
// the solution to the integrity endpoint and returns the resulting
// credential. The first failure is returned unchanged. A malformed
// proxy fails before any network call.
func (o *Orchestrator) GenerateIntegrity(ctx context.Context, opts IntegrityOptions) (*IntegrityCredential, error) {
	return o.observe(ctx, "integrity", func(ctx context.Context) (*IntegrityCredential, error) {
		if err := validateOptionalProxy(opts.Proxy); err != nil {
			return nil, err
		}
		if opts.Target == "" {
			opts.Target = task.TargetTwitch
		}
		target, err := task.ResolveTarget(opts.Target, opts.CustomTarget)
		if err != nil {
			return nil, err
		}
		o.protect(opts.OAuth)
		r := o.newIntegrityRun(opts, target)
		o.logger.Debug("integrity run started",
			logging.StringField("client_id", r.clientID),
			logging.StringField("device_id", r.deviceID),
			logging.StringField("proxy", env.RedactProxy(r.proxy)),
		)
		return r.run(ctx)
	})
}

func (o *Orchestrator) newIntegrityRun(opts IntegrityOptions, target string) *integrityRun {
	r := &integrityRun{
		o:          o,
		state:      StateAwaitingChallenge,
		target:     target,
		oauth:      opts.OAuth,
		proxy:      opts.Proxy,
		maxRetries: o.retries(opts.MaxRetries),
		clientID:   opts.ClientID,
		deviceID:   opts.DeviceID,
		sessionID:  o.random(SessionIDLength),
		requestID:  o.random(RequestIDLength),
	}
	if r.clientID == "" {
		r.clientID = o.clientID
	}
	if r.deviceID == "" {
		r.deviceID = o.random(DeviceIDLength)
	}
	return r
}

func (r *integrityRun) run(ctx context.Context) (*IntegrityCredential, error) {
	for !r.state.IsTerminal() {
		switch r.state {
		case StateAwaitingChallenge:
			r.awaitChallenge(ctx)
		case StateAwaitingIntegrity:
			r.awaitIntegrity(ctx)
		}
	}
	if r.state == StateFailed {
		return nil, r.cause
	}
	return &IntegrityCredential{
		ClientID:  r.clientID,
		DeviceID:  r.deviceID,
		SessionID: r.sessionID,
		UserAgent: r.solution.UserAgent,
		Token:     r.token,
		OAuth:     r.oauth,
	}, nil
}

func (r *integrityRun) moveTo(next State) {
	prev := r.state
	r.state = next
	r.o.logger.Debug("workflow transition",
		logging.StringField("from", string(prev)),
		logging.StringField("to", string(next)),
	)
	if r.o.onTransition != nil {
		r.o.onTransition(prev, next)
	}
}

func (r *integrityRun) fail(err error) {
	r.cause = err
	r.moveTo(StateFailed)
}

func (r *integrityRun) awaitChallenge(ctx context.Context) {
	sol, err := r.o.solver.GetSolution(ctx, task.Request{
		Kind:   task.KindKasadaCaptcha,
		Target: r.target,
	}, r.maxRetries)
	if err != nil {
		r.fail(err)
		return
	}
	ks, ok := sol.(task.KasadaSolution)
	if !ok {
		r.fail(task.KindMismatch(solutionKind(sol), task.KindKasadaCaptcha))
		return
	}
	if err := checkChallengeSolution(ks); err != nil {
		r.fail(err)
		return
	}
	r.solution = ks
	r.moveTo(StateAwaitingIntegrity)
}

// checkChallengeSolution requires the fields the integrity call
// forwards.
func checkChallengeSolution(s task.KasadaSolution) error {
	var missing string
	switch {
	case s.UserAgent == "":
		missing = "user-agent"
	case s.CD == "":
		missing = "x-kpsdk-cd"
	case s.CT == "":
		missing = "x-kpsdk-ct"
	default:
		return nil
	}
	e := task.KindMismatch(string(task.KindKasadaCaptcha), task.KindKasadaCaptcha)
	e.Message = "solution has no " + missing
	return e
}

func (r *integrityRun) awaitIntegrity(ctx context.Context) {
	opts := []httpclient.RequestOption{httpclient.WithHeaders(r.headers())}
	if r.proxy != "" {
		opts = append(opts, httpclient.WithProxy(r.proxy))
	}

	resp, err := r.o.transport.PostJSON(ctx, r.o.integrityURL+"/integrity", nil, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			r.fail(task.Canceled(err))
			return
		}
		r.fail(task.TransportFailure("integrity", err))
		return
	}
	if !resp.OK() {
		r.fail(task.TransportFailure("integrity", fmt.Errorf("HTTP %d", resp.StatusCode)))
		return
	}
	var out integrityResponse
	if err := resp.DecodeJSON(&out); err != nil {
		r.fail(task.TransportFailure("integrity", err))
		return
	}
	if out.Token == "" {
		r.fail(task.TransportFailure("integrity", errors.New("response has no token")))
		return
	}
	r.token = out.Token
	r.moveTo(StateComplete)
}

// headers mimics the browser request the endpoint expects.
// Authorization is always present, empty without an OAuth token.
func (r *integrityRun) headers() map[string]string {
	auth := ""
	if r.oauth != "" {
		auth = "OAuth " + r.oauth
	}
	return map[string]string{
		"Accept":             "*/*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Authorization":      auth,
		"Cache-Control":      "no-cache",
		"Client-Id":          r.clientID,
		"Client-Request-Id":  r.requestID,
		"Client-Session-Id":  r.sessionID,
		"Origin":             "https://www.twitch.tv",
		"Pragma":             "no-cache",
		"Referer":            "https://www.twitch.tv/",
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-site",
		"Sec-GPC":            "1",
		"User-Agent":         r.solution.UserAgent,
		"X-Device-Id":        r.deviceID,
		"sec-ch-ua":          `"Not/A)Brand";v="99", "Brave";v="115", "Chromium";v="115"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"x-kpsdk-cd":         r.solution.CD,
		"x-kpsdk-ct":         r.solution.CT,
		"x-kpsdk-v":          "j-0.0.0",
	}
}
