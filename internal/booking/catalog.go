package booking

// Service is a consultation type offered by the wizard.
type Service struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Duration    string `json:"duration" yaml:"duration"`
}

// Catalog is the ordered list of bookable services.
type Catalog struct {
	services []Service
	byKey    map[string]Service
}

// DefaultServices is the catalog used when none is configured.
func DefaultServices() []Service {
	return []Service{
		{Key: "leadership", Name: "Leadership Coaching", Description: "One-on-one coaching for new and seasoned leaders.", Duration: "60 min"},
		{Key: "executive", Name: "Executive Coaching", Description: "Strategic coaching for senior executives and founders.", Duration: "90 min"},
		{Key: "career", Name: "Career Transition", Description: "Plan and navigate your next career move.", Duration: "60 min"},
		{Key: "team", Name: "Team Development", Description: "Workshops that build trust and accountability in teams.", Duration: "120 min"},
		{Key: "strategy", Name: "Strategy Consulting", Description: "Organizational strategy and change management.", Duration: "90 min"},
		{Key: "discovery", Name: "Discovery Call", Description: "A free introductory conversation.", Duration: "30 min"},
	}
}

// NewCatalog builds a catalog. Entries without a key are skipped and later duplicates lose.
func NewCatalog(services []Service) *Catalog {
	if len(services) == 0 {
		services = DefaultServices()
	}
	c := &Catalog{byKey: make(map[string]Service, len(services))}
	for _, s := range services {
		if s.Key == "" {
			continue
		}
		if _, dup := c.byKey[s.Key]; dup {
			continue
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		c.byKey[s.Key] = s
		c.services = append(c.services, s)
	}
	return c
}

// Lookup returns the service for key.
func (c *Catalog) Lookup(key string) (Service, bool) {
	s, ok := c.byKey[key]
	return s, ok
}

// All returns a copy of the catalog in display order.
func (c *Catalog) All() []Service {
	return append([]Service(nil), c.services...)
}

// DisplayName returns the service name for key, or key itself when unknown.
func (c *Catalog) DisplayName(key string) string {
	if s, ok := c.byKey[key]; ok {
		return s.Name
	}
	return key
}
