// Package attention implements the Attention service of spec.md §4.8: a
// per-context registry of Hebbian networks (no process-wide singleton, per
// the "Shared global state" redesign note in §9) exposing ping/stimulate/
// correlate/get_importance, plus the fixed-size worker-thread pool that
// serializes stimulate and correlate requests onto it.
package attention

import (
	"sync"

	"github.com/das-systems/das-core/hebbian"
)

// DefaultContext is the name used when a caller passes an empty context
// string, matching §4.8's "an empty context binds to a default 'global'
// context".
const DefaultContext = "global"

func normalizeContext(context string) string {
	if context == "" {
		return DefaultContext
	}
	return context
}

// Service owns one Hebbian network per context, created lazily on first
// use. It implements query.ImportanceSource (GetImportance) so a Service can
// rank a LinkTemplate's candidates directly.
type Service struct {
	mu          sync.Mutex
	networks    map[string]*hebbian.Network
	correlators map[string]*hebbian.Correlator
	spreaders   map[string]*hebbian.TokenSpreader
	cfg         hebbian.SpreaderConfig
}

// NewService returns an empty Service, spreading with cfg on every context's
// network.
func NewService(cfg hebbian.SpreaderConfig) *Service {
	return &Service{
		networks:    map[string]*hebbian.Network{},
		correlators: map[string]*hebbian.Correlator{},
		spreaders:   map[string]*hebbian.TokenSpreader{},
		cfg:         cfg,
	}
}

// Ping answers the liveness check of §4.8.
func (s *Service) Ping() error { return nil }

// networkFor returns (creating if necessary) the context's network,
// correlator and spreader, under s.mu.
func (s *Service) networkFor(context string) (*hebbian.Network, *hebbian.Correlator, *hebbian.TokenSpreader) {
	key := normalizeContext(context)
	s.mu.Lock()
	defer s.mu.Unlock()
	net, ok := s.networks[key]
	if !ok {
		net = hebbian.New()
		s.networks[key] = net
		s.correlators[key] = hebbian.NewCorrelator(net)
		s.spreaders[key] = hebbian.NewTokenSpreader(net, s.cfg)
	}
	return net, s.correlators[key], s.spreaders[key]
}

// Stimulate runs one spreading cycle on context's network (§4.7/§4.8).
func (s *Service) Stimulate(context string, counts map[string]float64) error {
	_, _, spreader := s.networkFor(context)
	return spreader.Stimulate(counts)
}

// Correlate feeds one correlation event to context's network (§4.6/§4.8).
func (s *Service) Correlate(context string, handles []string) error {
	_, correlator, _ := s.networkFor(context)
	return correlator.Correlate(handles)
}

// GetImportance returns handles' importance, in input order, for context;
// unknown handles map to 0 (§4.8).
func (s *Service) GetImportance(context string, handles []string) ([]float64, error) {
	net, _, _ := s.networkFor(context)
	return net.Importances(handles), nil
}
