package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Notifier   bool      `json:"notifier"`
	Triggers   int       `json:"triggers"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether every dependency required to serve traffic is up.
func (s Status) Healthy() bool {
	return s.PostgreSQL && s.Redis
}
