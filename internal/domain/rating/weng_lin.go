package rating

import (
	"context"
	"math"
)

// Weng-Lin Bradley-Terry team model (the published OpenSkill model,
// full-pairing variant). Closed form, no sampling.

// Default Weng-Lin parameters.
const (
	defaultMu      = 25.0
	defaultSigma   = defaultMu / 3.0
	defaultBeta    = defaultMu / 6.0
	defaultTau     = defaultMu / 300.0
	defaultKappa   = 0.0001
	ordinalZFactor = 3.0
)

// WengLin implements Func with the Bradley-Terry full-pairing update.
type WengLin struct {
	mu0   float64
	sigma float64
	beta  float64
	tau   float64
	kappa float64
}

// WengLinOption applies a configuration option to WengLin.
type WengLinOption func(*WengLin)

// WithInitial overrides the default starting mu and sigma.
func WithInitial(mu, sigma float64) WengLinOption {
	return func(w *WengLin) {
		if sigma > 0 {
			w.mu0 = mu
			w.sigma = sigma
		}
	}
}

// WithBeta overrides the performance variance parameter.
func WithBeta(beta float64) WengLinOption {
	return func(w *WengLin) {
		if beta > 0 {
			w.beta = beta
		}
	}
}

// WithTau overrides the per-match sigma inflation. Tau keeps sigma from
// collapsing to zero on long histories; it never grows sigma unboundedly
// because the update shrinks it again.
func WithTau(tau float64) WengLinOption {
	return func(w *WengLin) {
		if tau >= 0 {
			w.tau = tau
		}
	}
}

// NewWengLin constructs the default rating function.
func NewWengLin(opts ...WengLinOption) *WengLin {
	w := &WengLin{
		mu0:   defaultMu,
		sigma: defaultSigma,
		beta:  defaultBeta,
		tau:   defaultTau,
		kappa: defaultKappa,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name implements Func.
func (w *WengLin) Name() string { return "weng-lin" }

// Initial implements Func.
func (w *WengLin) Initial() Rating { return Rating{Mu: w.mu0, Sigma: w.sigma} }

// Ordinal implements Func: mu - 3*sigma. Deterministic in (mu, sigma) so
// it can always be recomputed for display.
func (w *WengLin) Ordinal(r Rating) float64 {
	return r.Mu - ordinalZFactor*r.Sigma
}

// teamAggregate sums member means and variances after tau inflation.
func (w *WengLin) teamAggregate(side []Rating) (mu, sigmaSq float64, inflated []Rating) {
	inflated = make([]Rating, len(side))
	for i, r := range side {
		s := math.Sqrt(r.Sigma*r.Sigma + w.tau*w.tau)
		inflated[i] = Rating{Mu: r.Mu, Sigma: s}
		mu += r.Mu
		sigmaSq += s * s
	}
	return mu, sigmaSq, inflated
}

// Rate implements Func.
func (w *WengLin) Rate(ctx context.Context, sideA, sideB []Rating, result Result) ([]Rating, []Rating, error) {
	if err := validateInput(w.Name(), sideA, sideB); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	muA, sigmaSqA, infA := w.teamAggregate(sideA)
	muB, sigmaSqB, infB := w.teamAggregate(sideB)

	// Pairwise score from each side's perspective.
	var scoreA float64
	switch result {
	case ResultWinA:
		scoreA = 1
	case ResultWinB:
		scoreA = 0
	case ResultDraw:
		scoreA = 0.5
	}

	omegaA, deltaA := w.pairTerms(muA, sigmaSqA, muB, sigmaSqB, scoreA)
	omegaB, deltaB := w.pairTerms(muB, sigmaSqB, muA, sigmaSqA, 1-scoreA)

	newA := w.applyTeam(infA, sigmaSqA, omegaA, deltaA)
	newB := w.applyTeam(infB, sigmaSqB, omegaB, deltaB)

	if err := checkFinite(w.Name(), newA); err != nil {
		return nil, nil, err
	}
	if err := checkFinite(w.Name(), newB); err != nil {
		return nil, nil, err
	}
	return newA, newB, nil
}

// pairTerms computes the omega and delta accumulators of team i against
// team q under the Bradley-Terry model.
func (w *WengLin) pairTerms(muI, sigmaSqI, muQ, sigmaSqQ, score float64) (omega, delta float64) {
	cIQ := math.Sqrt(sigmaSqI + sigmaSqQ + 2*w.beta*w.beta)
	pIQ := 1 / (1 + math.Exp((muQ-muI)/cIQ))
	sigToC := sigmaSqI / cIQ
	gamma := math.Sqrt(sigmaSqI) / cIQ

	omega = sigToC * (score - pIQ)
	delta = gamma * sigToC / cIQ * pIQ * (1 - pIQ)
	return omega, delta
}

// applyTeam distributes a team's omega/delta onto its members in
// proportion to each member's own variance. Member order is preserved,
// and no term depends on position, so permuting a side permutes the
// output identically.
func (w *WengLin) applyTeam(side []Rating, teamSigmaSq, omega, delta float64) []Rating {
	out := make([]Rating, len(side))
	for i, r := range side {
		frac := r.Sigma * r.Sigma / teamSigmaSq
		mu := r.Mu + frac*omega
		sigma := r.Sigma * math.Sqrt(math.Max(1-frac*delta, w.kappa))
		out[i] = Rating{Mu: mu, Sigma: sigma}
	}
	return out
}
