/*
Package tagsim provides a tagged-signal simulation kernel: independent
concurrent actors exchange time-stamped events over domain-tagged channels to
model mixtures of continuous-time, discrete-time and discrete-event processes.

Every actor runs on its own goroutine and only communicates through channels.
A channel is an unbounded FIFO with exactly one producer and one consumer,
terminated by a single end of stream sentinel. Progress is driven purely by
blocking channel reads; there is no central scheduler.

Determinism across concurrently produced streams is provided by the
synchronization actors. NewMerge combines streams into a single, totally
ordered stream (ties between simultaneous events are broken by input order).
NewSummer and NewSubtractor combine streams tag by tag, buffering events from
streams that run ahead of the others.

A Model wires actors together and runs them:

	a, b, out := tagsim.NewChannel("a", tagsim.CT), tagsim.NewChannel("b", tagsim.CT), tagsim.NewChannel("out", tagsim.CT)
	sum, err := tagsim.NewSummer("sum", out, []*tagsim.Channel{a, b})
	if err != nil {
		// domain mismatch or bad wiring
	}
	m := tagsim.NewModel("example")
	m.Add(srcA, srcB, sum, sink)
	err = m.Run(ctx)

Package siglib provides a library of ready made blocks, including the
quantized-state integrator.

*/
package tagsim
