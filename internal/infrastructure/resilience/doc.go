/*
Package resilience provides a circuit breaker for calls to the browser host.

# Overview

The HTTP host bridge can disappear while the backend keeps receiving
intercepted requests. The breaker trips after a run of consecutive
failures so subsequent actions fail immediately and reconciliation
records them as unsuccessful.

# Usage

	breaker := resilience.New("host", resilience.Settings{
		Threshold: 3,
		Cooldown:  10 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state change",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	err := breaker.Execute(func() error {
		return client.Send(ctx, cmd)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[probes succeed]-> Closed
	                                                       |
	                                                  [failure]
	                                                       v
	                                                     Open
*/
package resilience
