package telescope

import (
	"fmt"

	"github.com/tamarlowe/respkit/internal/caldb"
	"github.com/tamarlowe/respkit/internal/element"
	"github.com/tamarlowe/respkit/internal/rmf"
	"github.com/tamarlowe/respkit/internal/units"
)

// CdTe detector strip pitches by region.
var regionPitchUM = map[int]int{0: 60, 1: 80, 2: 100}

// CdTeVariant selects one stored detector response of a CdTe telescope.
// Exactly one of Region or PitchUM must be set (PitchUM zero means unset,
// Region -1 means unset); region and pitch are aliases for the same choice.
type CdTeVariant struct {
	Region    int    // 0, 1 or 2; -1 when selecting by pitch
	PitchUM   int    // 60, 80 or 100 µm; 0 when selecting by region
	Side      string // "pt" or "merged"
	EventType string // "1hit", "2hit" or "all"
}

// DefaultCdTe is the merged-side, all-triggers response selected by region.
func DefaultCdTe(region int) CdTeVariant {
	return CdTeVariant{Region: region, PitchUM: 0, Side: "merged", EventType: "all"}
}

// family resolves the variant to its manifest key, rmf_<side>_<pitch>um_<event>.
func (v CdTeVariant) family() (string, error) {
	pitch := v.PitchUM
	switch {
	case v.Region >= 0 && pitch != 0:
		return "", fmt.Errorf("select a CdTe response by region or by pitch, not both")
	case v.Region >= 0:
		p, ok := regionPitchUM[v.Region]
		if !ok {
			return "", fmt.Errorf("unknown CdTe region %d", v.Region)
		}
		pitch = p
	case pitch != 0:
		if !validPitch(pitch) {
			return "", fmt.Errorf("unknown CdTe pitch %dum", pitch)
		}
	default:
		return "", fmt.Errorf("CdTe response needs a region or a pitch")
	}

	side := v.Side
	if side == "" {
		side = "merged"
	}
	if side != "pt" && side != "merged" {
		return "", fmt.Errorf("unknown CdTe side %q", v.Side)
	}
	event := v.EventType
	if event == "" {
		event = "all"
	}
	switch event {
	case "1hit", "2hit", "all":
	default:
		return "", fmt.Errorf("unknown CdTe event type %q", v.EventType)
	}
	return fmt.Sprintf("rmf_%s_%dum_%s", side, pitch, event), nil
}

func validPitch(p int) bool {
	for _, v := range regionPitchUM {
		if v == p {
			return true
		}
	}
	return false
}

// loadRMF reads and decodes the matrix file behind a manifest family key.
func (s *Set) loadRMF(tel, family string) (*element.Element2D, error) {
	path, err := s.man.Path(tel, family)
	if err != nil {
		return nil, err
	}
	sparse, err := caldb.LoadRMF(path)
	if err != nil {
		return nil, err
	}
	dense, err := rmf.Decode(sparse)
	if err != nil {
		return nil, err
	}
	edges, err := sparse.EnergyEdges(units.KeV)
	if err != nil {
		return nil, err
	}
	// Both axes share the photon edges for the detectors in scope.
	e, err := element.New2D(tel+"-detector-response", edges, edges, dense, path, "loadRMF")
	if err != nil {
		return nil, err
	}
	e.Telescope = tel
	return e, nil
}

// CdTeResponse decodes the detector response of a CdTe telescope variant.
func (s *Set) CdTeResponse(tel string, v CdTeVariant) (*element.Element2D, error) {
	family, err := v.family()
	if err != nil {
		return nil, err
	}
	return s.loadRMF(tel, family)
}

// CMOSResponse decodes the detector response of a CMOS telescope.
func (s *Set) CMOSResponse(tel string) (*element.Element2D, error) {
	return s.loadRMF(tel, "rmf")
}

// MixedCdTeResponse blends the 1-hit and 2-hit responses of one variant
// with the given weights, for hit-combination studies.
func (s *Set) MixedCdTeResponse(tel string, v CdTeVariant, w1hit, w2hit float64) (*element.Element2D, error) {
	v1, v2 := v, v
	v1.EventType = "1hit"
	v2.EventType = "2hit"
	e1, err := s.CdTeResponse(tel, v1)
	if err != nil {
		return nil, err
	}
	e2, err := s.CdTeResponse(tel, v2)
	if err != nil {
		return nil, err
	}
	return element.Mix([]float64{w1hit, w2hit}, []*element.Element2D{e1, e2})
}
