package profile

// RegisterProvider wires a single namespace to the ProfileProvider that
// serves it.
// Called once per discovered profile-mode plugin after registry load.
func (s *Store) RegisterProvider(namespace string, provider ProfileProvider) {
	if s.Providers == nil {
		s.Providers = map[string]ProfileProvider{}
	}
	s.Providers[namespace] = provider
}
