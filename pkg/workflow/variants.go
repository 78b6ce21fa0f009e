package workflow

import (
	"context"

	"digital.vasic.salamoonder/pkg/env"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/task"
)

// VariantOptions parameterize the server-side integrity variants.
type VariantOptions struct {
	// AccessToken is the account OAuth token. Required by the
	// public and passport variants, ignored by the local one.
	AccessToken string
	// Proxy is forwarded to the service, as user:pass@host:port.
	Proxy string
	// ClientID defaults to the orchestrator client id.
	ClientID string
	// DeviceID is generated when empty.
	DeviceID string
	// MaxRetries is the poll budget, built with Retries. Nil means
	// the orchestrator default.
	MaxRetries *int
}

// LocalIntegrity has the service produce an integrity token
// without an account.
func (o *Orchestrator) LocalIntegrity(ctx context.Context, opts VariantOptions) (*IntegrityCredential, error) {
	opts.AccessToken = ""
	return o.variant(ctx, "local_integrity", task.KindTwitchLocalIntegrity, opts)
}

// PublicIntegrity has the service produce an integrity token bound
// to the account of opts.AccessToken.
func (o *Orchestrator) PublicIntegrity(ctx context.Context, opts VariantOptions) (*IntegrityCredential, error) {
	return o.variant(ctx, "public_integrity", task.KindTwitchPublicIntegrity, opts)
}

// PassportIntegrity has the service produce a passport integrity
// token for the account of opts.AccessToken.
func (o *Orchestrator) PassportIntegrity(ctx context.Context, opts VariantOptions) (*IntegrityCredential, error) {
	return o.variant(ctx, "passport_integrity", task.KindTwitchPassportIntegrity, opts)
}

// variant submits one integrity task and maps its solution onto a
// credential. The service performs the challenge itself.
func (o *Orchestrator) variant(
	ctx context.Context, name string, kind task.Kind, opts VariantOptions,
) (*IntegrityCredential, error) {
	return o.observe(ctx, name, func(ctx context.Context) (*IntegrityCredential, error) {
		if err := validateOptionalProxy(opts.Proxy); err != nil {
			return nil, err
		}
		clientID := opts.ClientID
		if clientID == "" {
			clientID = o.clientID
		}
		deviceID := opts.DeviceID
		if deviceID == "" {
			deviceID = o.random(DeviceIDLength)
		}
		o.protect(opts.AccessToken)
		o.logger.Debug("integrity task submitting",
			logging.KindField(string(kind)),
			logging.StringField("device_id", deviceID),
			logging.StringField("proxy", env.RedactProxy(opts.Proxy)),
		)

		sol, err := o.solver.GetSolution(ctx, task.Request{
			Kind:        kind,
			AccessToken: opts.AccessToken,
			Proxy:       opts.Proxy,
			ClientID:    clientID,
			DeviceID:    deviceID,
		}, o.retries(opts.MaxRetries))
		if err != nil {
			return nil, err
		}
		is, ok := sol.(task.IntegritySolution)
		if !ok || is.Kind() != kind {
			return nil, task.KindMismatch(solutionKind(sol), kind)
		}

		cred := &IntegrityCredential{
			ClientID:  clientID,
			DeviceID:  is.DeviceID,
			UserAgent: is.UserAgent,
			Token:     is.IntegrityToken,
			OAuth:     opts.AccessToken,
			Proxy:     is.Proxy,
		}
		if cred.DeviceID == "" {
			cred.DeviceID = deviceID
		}
		return cred, nil
	})
}
