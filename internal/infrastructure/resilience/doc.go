/*
Package resilience provides a circuit breaker for calls to a remote server.

A Breaker counts consecutive failures of the calls it guards. After
Threshold failures the circuit opens and calls fail with ErrCircuitOpen
without reaching the server. Once Cooldown has elapsed the circuit is
half-open: up to Probes calls go through, and either close the circuit again
or reopen it on the first failure.

	breaker := resilience.New(resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool { return err != nil && !isClientError(err) },
	})

	err := breaker.Do(func() error {
		return client.Upload(ctx, name, r)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[probes succeed]-> Closed
	                                  ^                     |
	                                  +-----[failure]-------+
*/
package resilience
