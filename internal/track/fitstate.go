package track

// FitState is the running state of a Kalman sweep. Measurements add in
// the information (weight) form; material transport applies in the
// parameter form. The state keeps both representations and converts
// lazily, so consecutive effects of the same kind pay no conversion.
type FitState struct {
	wdata  Weights
	pdata  Parameters
	hasW   bool
	hasP   bool
	broken bool
}

// NewFitState returns an empty information state.
func NewFitState() *FitState {
	return &FitState{wdata: NewWeights(), hasW: true}
}

// Broken reports whether a representation conversion has failed; a
// broken state absorbs further processing without effect and the driver
// abandons the iteration.
func (s *FitState) Broken() bool { return s.broken }

// Weights returns the information form, converting if necessary.
func (s *FitState) Weights() Weights {
	if !s.hasW {
		w, err := s.pdata.Weights()
		if err != nil {
			s.broken = true
			return NewWeights()
		}
		s.wdata = w
		s.hasW = true
	}
	return s.wdata
}

// Parameters returns the parameter form, converting if necessary. The
// conversion fails while the accumulated information is not yet
// invertible.
func (s *FitState) Parameters() (Parameters, error) {
	if !s.hasP {
		p, err := s.wdata.Parameters()
		if err != nil {
			s.broken = true
			return Parameters{}, err
		}
		s.pdata = p
		s.hasP = true
	}
	return s.pdata, nil
}

// AppendWeights adds a measurement's information contribution.
func (s *FitState) AppendWeights(w Weights) {
	if s.broken {
		return
	}
	wd := s.Weights()
	wd.AddWeights(w)
	s.wdata = wd
	s.hasW = true
	s.hasP = false
}

// AppendEffect applies a material transport in parameter space: the
// parameter shift is applied along the processing direction and the
// process noise always grows the covariance.
func (s *FitState) AppendEffect(effect Parameters, tdir TimeDir) {
	if s.broken {
		return
	}
	p, err := s.Parameters()
	if err != nil {
		return
	}
	if tdir == Forward {
		p.Vec = p.Vec.Add(effect.Vec)
	} else {
		p.Vec = p.Vec.Sub(effect.Vec)
	}
	p.Cov.AddSym(p.Cov, effect.Cov)
	s.pdata = p
	s.hasP = true
	s.hasW = false
}
