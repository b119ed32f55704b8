package gateway

import (
	"context"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/identity"
	"github.com/brporter/lakegate/internal/metrics"
)

type instrumentedVerifier struct {
	next    auth.TokenVerifier
	metrics metrics.Metrics
}

// InstrumentVerifier counts verification outcomes by token class.
func InstrumentVerifier(next auth.TokenVerifier, m metrics.Metrics) auth.TokenVerifier {
	return &instrumentedVerifier{next: next, metrics: m}
}

func (v *instrumentedVerifier) Verify(ctx context.Context, cred identity.Credential) (*auth.Principal, error) {
	p, err := v.next.Verify(ctx, cred)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	v.metrics.IncVerification(cred.Class.String(), outcome)
	return p, err
}
