//go:build linux

package socketcan

// Apply pushes the configured options and filter table onto an open socket.
// Options are applied before the blocking mode so a channel never operates
// half-configured in its final state.
func (cfg ChannelConfig) Apply(s *Socket) error {
	if cfg.ReadTimeout.Duration > 0 {
		if err := s.SetReadTimeout(cfg.ReadTimeout.Duration); err != nil {
			return err
		}
	}
	if cfg.WriteTimeout.Duration > 0 {
		if err := s.SetWriteTimeout(cfg.WriteTimeout.Duration); err != nil {
			return err
		}
	}
	if cfg.Loopback != nil {
		if err := s.SetLoopback(*cfg.Loopback); err != nil {
			return err
		}
	}
	if cfg.RecvOwnMsgs {
		if err := s.SetRecvOwnMsgs(true); err != nil {
			return err
		}
	}
	if cfg.JoinFilters {
		if err := s.SetJoinFilters(true); err != nil {
			return err
		}
	}
	if cfg.ErrorMask != 0 {
		if err := s.SetErrorMask(cfg.ErrorMask); err != nil {
			return err
		}
	}
	if len(cfg.Filters) > 0 {
		filters := make([]Filter, 0, len(cfg.Filters))
		for _, fc := range cfg.Filters {
			filters = append(filters, fc.Filter())
		}
		if err := s.group.Set(filters); err != nil {
			return err
		}
	}
	if cfg.Nonblocking {
		return s.SetNonblocking(true)
	}
	return nil
}

// Open dials the configured interface and applies the option set, closing
// the socket again when configuration fails.
func (cfg ChannelConfig) Open() (*Socket, error) {
	s, err := Dial(cfg.Interface)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
